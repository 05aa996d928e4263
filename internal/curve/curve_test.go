package curve

import (
	"errors"
	"testing"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
)

func defaultCurve(t *testing.T) *Curve {
	t.Helper()
	c, err := New(fixedpoint.FromInt64(20), fixedpoint.FromInt64(10))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name     string
		duration int64
		rng      int64
		wantErr  error
	}{
		{"duration zero", 0, 10, ErrInvalidDurationPercent},
		{"duration negative", -1, 10, ErrInvalidDurationPercent},
		{"duration hundred", 100, 10, ErrInvalidDurationPercent},
		{"range negative", 20, -1, ErrInvalidRangePercent},
		{"range hundred", 20, 100, ErrInvalidRangePercent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(fixedpoint.FromInt64(tc.duration), fixedpoint.FromInt64(tc.rng))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("New(%d, %d) error = %v, want %v", tc.duration, tc.rng, err, tc.wantErr)
			}
		})
	}

	// Range of zero is allowed: the linear phase becomes flat.
	if _, err := New(fixedpoint.FromInt64(20), fixedpoint.Zero()); err != nil {
		t.Errorf("New with zero range failed: %v", err)
	}
}

func TestPhase_Selection(t *testing.T) {
	c := defaultCurve(t)

	// duration 20 => phase 1 ends at 40, phase 2 ends at 60.
	cases := []struct {
		percent string
		want    int
	}{
		{"0", 1},
		{"39.999999999999999999", 1},
		{"40", 2}, // phase 2 wins the lower boundary
		{"50", 2},
		{"60", 2}, // phase 2 wins the upper boundary
		{"60.000000000000000001", 3},
		{"100", 3},
	}

	for _, tc := range cases {
		if got := c.Phase(fixedpoint.MustFromString(tc.percent)); got != tc.want {
			t.Errorf("Phase(%s) = %d, want %d", tc.percent, got, tc.want)
		}
	}
}

func TestRate_PhaseTwoLinear(t *testing.T) {
	c := defaultCurve(t)
	target := fixedpoint.FromInt64(1)

	cases := []struct {
		percent string
		want    string
	}{
		{"50", "1.000000000000000000"}, // exactly the target at the center
		{"60", "1.050000000000000000"},
		{"40", "0.950000000000000000"},
		{"55", "1.025000000000000000"},
	}

	for _, tc := range cases {
		got, err := c.Rate(target, fixedpoint.MustFromString(tc.percent))
		if err != nil {
			t.Fatalf("Rate at %s%% failed: %v", tc.percent, err)
		}
		if want := fixedpoint.MustFromString(tc.want); !got.Eq(want) {
			t.Errorf("Rate at %s%% = %s, want %s", tc.percent, got, want)
		}
	}
}

func TestRate_PhaseOne_NegativeNearStart(t *testing.T) {
	c := defaultCurve(t)

	// One second into a 86400s period.
	percent := fixedpoint.MustFromString("0.001157407407407407")
	got, err := c.Rate(fixedpoint.FromInt64(1), percent)
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}

	want := fixedpoint.MustFromString("-172794.050000000060825600")
	if !got.Eq(want) {
		t.Errorf("phase one rate = %s, want %s", got, want)
	}
}

func TestRate_PhaseThree_LargeNearEnd(t *testing.T) {
	c := defaultCurve(t)

	// One second before the period closes.
	percent := fixedpoint.MustFromString("99.998842592592592592")
	got, err := c.Rate(fixedpoint.FromInt64(1), percent)
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}

	want := fixedpoint.MustFromString("172796.049999999911526400")
	if !got.Eq(want) {
		t.Errorf("phase three rate = %s, want %s", got, want)
	}
}

func TestRate_SingularityFaults(t *testing.T) {
	c := defaultCurve(t)
	target := fixedpoint.FromInt64(1)

	// Exactly 0%: phase 1 denominator is zero.
	if _, err := c.Rate(target, fixedpoint.Zero()); !errors.Is(err, fixedpoint.ErrDivisionByZero) {
		t.Errorf("Rate at 0%% error = %v, want division by zero", err)
	}

	// Exactly 100%: phase 3 denominator is zero.
	if _, err := c.Rate(target, fixedpoint.FromInt64(100)); !errors.Is(err, fixedpoint.ErrDivisionByZero) {
		t.Errorf("Rate at 100%% error = %v, want division by zero", err)
	}
}

func TestRate_OverflowFault(t *testing.T) {
	c := defaultCurve(t)

	// A target near the representable maximum overflows the range-rate
	// multiplication.
	if _, err := c.Rate(fixedpoint.Max(), fixedpoint.FromInt64(50)); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Errorf("Rate with max target error = %v, want overflow", err)
	}
}

func TestRate_ZeroRangeIsFlatInPhaseTwo(t *testing.T) {
	c, err := New(fixedpoint.FromInt64(20), fixedpoint.Zero())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	target := fixedpoint.MustFromString("2.5")
	for _, percent := range []string{"40", "47", "50", "53", "60"} {
		got, err := c.Rate(target, fixedpoint.MustFromString(percent))
		if err != nil {
			t.Fatalf("Rate at %s%% failed: %v", percent, err)
		}
		if !got.Eq(target) {
			t.Errorf("Rate at %s%% = %s, want flat %s", percent, got, target)
		}
	}
}

func TestRate_ContinuousAtPhaseBoundaries(t *testing.T) {
	c := defaultCurve(t)
	target := fixedpoint.FromInt64(1)

	// The hyperbola evaluates to the same value as the linear branch at
	// the handover percent, so the curve is continuous there.
	p1End := fixedpoint.FromInt64(40)
	atBoundary, err := c.Rate(target, p1End)
	if err != nil {
		t.Fatalf("Rate at 40%% failed: %v", err)
	}
	if want := fixedpoint.MustFromString("0.95"); !atBoundary.Eq(want) {
		t.Errorf("Rate at 40%% = %s, want %s", atBoundary, want)
	}

	// Just below the boundary phase 1 applies and sits close to the same value.
	justBelow, err := c.Rate(target, fixedpoint.MustFromString("39.999999999999999999"))
	if err != nil {
		t.Fatalf("Rate just below 40%% failed: %v", err)
	}
	diff, err := atBoundary.Sub(justBelow)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if diff.Cmp(fixedpoint.MustFromString("0.000000000000001")) > 0 {
		t.Errorf("discontinuity at phase boundary: %s vs %s", justBelow, atBoundary)
	}
}
