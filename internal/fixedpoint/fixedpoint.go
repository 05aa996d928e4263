// Package fixedpoint implements signed 18-decimal fixed-point arithmetic
// with explicit overflow detection.
//
// Values use a 59.18 layout: the raw integer is the real value scaled by
// 1e18, bounded to the signed 256-bit range. All operations are checked —
// a result outside [Min, Max] or a zero denominator yields an error instead
// of a panic, so callers can treat arithmetic faults as recoverable.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Arithmetic errors.
var (
	// ErrOverflow is returned when a result falls outside the signed
	// 256-bit raw range.
	ErrOverflow = errors.New("fixedpoint: overflow")

	// ErrDivisionByZero is returned on a zero denominator.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")

	// ErrInvalidDecimal is returned when parsing a malformed decimal string.
	ErrInvalidDecimal = errors.New("fixedpoint: invalid decimal string")
)

// Decimals is the number of fractional decimal digits carried by SD values.
const Decimals = 18

var (
	scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil) // 1e18

	// Raw bounds: the signed 256-bit integer range.
	maxRaw = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minRaw = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// SD is a signed 59.18 fixed-point number. The zero value is 0.
type SD struct {
	raw *big.Int
}

// Zero returns 0.
func Zero() SD { return SD{raw: new(big.Int)} }

// Max returns the largest representable value,
// 57896044618658097711785492504343953926634992332820282019728.792003956564819967.
// It doubles as the "infinitely expensive / unaffordable" sentinel amount.
func Max() SD { return SD{raw: new(big.Int).Set(maxRaw)} }

// Min returns the smallest (most negative) representable value.
func Min() SD { return SD{raw: new(big.Int).Set(minRaw)} }

// FromInt64 returns n as a fixed-point value (n * 1e18).
func FromInt64(n int64) SD {
	return SD{raw: new(big.Int).Mul(big.NewInt(n), scale)}
}

// FromRaw wraps an already-scaled raw integer. The value is copied.
// Raw integers outside the representable range are rejected.
func FromRaw(raw *big.Int) (SD, error) {
	if raw.Cmp(maxRaw) > 0 || raw.Cmp(minRaw) < 0 {
		return SD{}, ErrOverflow
	}
	return SD{raw: new(big.Int).Set(raw)}, nil
}

// FromString parses a plain decimal string such as "-1.05". Scientific
// notation is not supported; at most 18 fractional digits are accepted.
func FromString(s string) (SD, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SD{}, ErrInvalidDecimal
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return SD{}, ErrInvalidDecimal
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > Decimals {
		return SD{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidDecimal, Decimals)
	}
	// Right-pad the fraction to 18 digits.
	fracPart += strings.Repeat("0", Decimals-len(fracPart))

	raw, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return SD{}, ErrInvalidDecimal
	}
	if neg {
		raw.Neg(raw)
	}
	return FromRaw(raw)
}

// MustFromString is FromString for trusted literals; it panics on error.
func MustFromString(s string) SD {
	v, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Raw returns a copy of the underlying scaled integer.
func (a SD) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a SD) rawOrZero() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return a.raw
}

// Add returns a+b, or ErrOverflow.
func (a SD) Add(b SD) (SD, error) {
	return checked(new(big.Int).Add(a.rawOrZero(), b.rawOrZero()))
}

// Sub returns a-b, or ErrOverflow.
func (a SD) Sub(b SD) (SD, error) {
	return checked(new(big.Int).Sub(a.rawOrZero(), b.rawOrZero()))
}

// Mul returns a*b truncated toward zero, or ErrOverflow.
func (a SD) Mul(b SD) (SD, error) {
	r := new(big.Int).Mul(a.rawOrZero(), b.rawOrZero())
	r.Quo(r, scale)
	return checked(r)
}

// Div returns a/b truncated toward zero. Returns ErrDivisionByZero when b
// is zero and ErrOverflow when the quotient leaves the representable range.
func (a SD) Div(b SD) (SD, error) {
	if b.rawOrZero().Sign() == 0 {
		return SD{}, ErrDivisionByZero
	}
	r := new(big.Int).Mul(a.rawOrZero(), scale)
	r.Quo(r, b.rawOrZero())
	return checked(r)
}

// DivInt returns a/n for a plain integer divisor, truncated toward zero.
func (a SD) DivInt(n int64) (SD, error) {
	if n == 0 {
		return SD{}, ErrDivisionByZero
	}
	return checked(new(big.Int).Quo(a.rawOrZero(), big.NewInt(n)))
}

// Neg returns -a. Negating Min overflows.
func (a SD) Neg() (SD, error) {
	return checked(new(big.Int).Neg(a.rawOrZero()))
}

// Cmp compares a and b: -1 if a<b, 0 if equal, +1 if a>b.
func (a SD) Cmp(b SD) int { return a.rawOrZero().Cmp(b.rawOrZero()) }

// Sign reports the sign of a: -1, 0 or +1.
func (a SD) Sign() int { return a.rawOrZero().Sign() }

// IsZero reports whether a is exactly zero.
func (a SD) IsZero() bool { return a.Sign() == 0 }

// Eq reports whether a and b are bit-exact equal.
func (a SD) Eq(b SD) bool { return a.Cmp(b) == 0 }

// Float64 returns an approximate float64 rendering for analytics and
// logging. Not suitable for pricing math.
func (a SD) Float64() float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(a.rawOrZero()),
		new(big.Float).SetInt(scale),
	).Float64()
	return f
}

// String renders the value as a plain decimal with all 18 fractional digits,
// e.g. "1.050000000000000000".
func (a SD) String() string {
	raw := a.rawOrZero()
	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)

	q, r := new(big.Int).QuoRem(abs, scale, new(big.Int))
	s := fmt.Sprintf("%s.%018s", q.String(), r.String())
	if neg {
		s = "-" + s
	}
	return s
}

// checked wraps raw into an SD after a range check.
func checked(raw *big.Int) (SD, error) {
	if raw.Cmp(maxRaw) > 0 || raw.Cmp(minRaw) < 0 {
		return SD{}, ErrOverflow
	}
	return SD{raw: raw}, nil
}
