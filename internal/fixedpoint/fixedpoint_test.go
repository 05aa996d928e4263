package fixedpoint

import (
	"errors"
	"math/big"
	"testing"
)

func TestFromString_RoundTrip(t *testing.T) {
	cases := []string{
		"0.000000000000000000",
		"1.000000000000000000",
		"-1.050000000000000000",
		"0.952380952380952380",
		"86400.000000000000000000",
		"-0.000000000000000001",
	}

	for _, s := range cases {
		v, err := FromString(s)
		if err != nil {
			t.Fatalf("FromString(%q) failed: %v", s, err)
		}
		if got := v.String(); got != s {
			t.Errorf("round trip mismatch: got %q, want %q", got, s)
		}
	}
}

func TestFromString_Invalid(t *testing.T) {
	cases := []string{"", ".", "1.2.3", "abc", "1.0000000000000000001"}

	for _, s := range cases {
		if _, err := FromString(s); err == nil {
			t.Errorf("FromString(%q) expected error, got nil", s)
		}
	}
}

func TestMul_Truncation(t *testing.T) {
	// 1/3 * 3 truncates toward zero, not away.
	third := MustFromString("0.333333333333333333")
	three := FromInt64(3)

	got, err := third.Mul(three)
	if err != nil {
		t.Fatalf("Mul failed: %v", err)
	}
	want := MustFromString("0.999999999999999999")
	if !got.Eq(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestDiv_Truncation(t *testing.T) {
	// 1 / 1.05 = 0.952380952380952380(95...) truncated.
	one := FromInt64(1)
	rate := MustFromString("1.05")

	got, err := one.Div(rate)
	if err != nil {
		t.Fatalf("Div failed: %v", err)
	}
	want := MustFromString("0.952380952380952380")
	if !got.Eq(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestDiv_ByZero(t *testing.T) {
	_, err := FromInt64(1).Div(Zero())
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestMul_Overflow(t *testing.T) {
	_, err := Max().Mul(FromInt64(2))
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestAdd_Overflow(t *testing.T) {
	one, err := Max().Add(MustFromString("0.000000000000000001"))
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v (result %v)", err, one)
	}
}

func TestNeg_MinOverflows(t *testing.T) {
	if _, err := Min().Neg(); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow negating Min, got %v", err)
	}
}

func TestMax_SentinelMagnitude(t *testing.T) {
	// The sentinel is exactly 2^255 - 1 in raw form.
	wantRaw := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	if Max().Raw().Cmp(wantRaw) != 0 {
		t.Errorf("Max raw mismatch: got %s", Max().Raw())
	}

	want := "57896044618658097711785492504343953926634992332820282019728.792003956564819967"
	if got := Max().String(); got != want {
		t.Errorf("Max string mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestZeroValue_Usable(t *testing.T) {
	var v SD
	if !v.IsZero() {
		t.Error("zero value should be zero")
	}
	sum, err := v.Add(FromInt64(5))
	if err != nil || !sum.Eq(FromInt64(5)) {
		t.Errorf("zero value Add failed: %v %v", sum, err)
	}
}

func TestDivInt(t *testing.T) {
	// 10 / 1000 = 0.01, plain integer divisor operates on the raw value.
	got, err := FromInt64(10).DivInt(1000)
	if err != nil {
		t.Fatalf("DivInt failed: %v", err)
	}
	if want := MustFromString("0.01"); !got.Eq(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
