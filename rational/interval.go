// Package rational implements exact-rational interval algebra used by the
// arithmetic coder: half-open subintervals of [0, 1) represented with
// arbitrary-precision rationals, never floating point.
package rational

import (
	"fmt"
	"math/big"
)

// Interval is a half-open subinterval [B, B+L) of the rationals, closed on
// the left and open on the right. L must always be strictly positive.
type Interval struct {
	B *big.Rat
	L *big.Rat
}

// New constructs an Interval, rejecting non-positive length.
func New(b, l *big.Rat) (Interval, error) {
	if l.Sign() <= 0 {
		return Interval{}, fmt.Errorf("rational: interval length must be positive, got %s", l.RatString())
	}
	return Interval{B: b, L: l}, nil
}

// NewFrac builds an Interval from int64 numerators over a shared divisor,
// convenient for the small literal fractions tests work with.
func NewFrac(base, length, divisor int64) (Interval, error) {
	if divisor == 0 {
		divisor = 1
	}
	b := big.NewRat(base, divisor)
	l := big.NewRat(length, divisor)
	return New(b, l)
}

// SubUnit validates that the interval is a subinterval of [0, 1).
func SubUnit(i Interval) error {
	if i.B.Sign() < 0 {
		return fmt.Errorf("rational: interval base %s is negative", i.B.RatString())
	}
	end := new(big.Rat).Add(i.B, i.L)
	if end.Cmp(big.NewRat(1, 1)) > 0 {
		return fmt.Errorf("rational: interval end %s exceeds 1", end.RatString())
	}
	return nil
}

// End returns B + L.
func (i Interval) End() *big.Rat {
	return new(big.Rat).Add(i.B, i.L)
}

// Equal reports whether two intervals have the same base and length.
func (i Interval) Equal(o Interval) bool {
	return i.B.Cmp(o.B) == 0 && i.L.Cmp(o.L) == 0
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.B.RatString(), i.End().RatString())
}

// Unit returns the unit interval [0, 1).
func Unit() Interval {
	return Interval{B: big.NewRat(0, 1), L: big.NewRat(1, 1)}
}

// SelectSubinterval maps [0,1) onto outer and applies that affine map to
// inner: select_subinterval(outer, inner) in spec terms. This is the core
// narrowing step the arithmetic coder performs once per emitted token.
func SelectSubinterval(outer, inner Interval) Interval {
	b := new(big.Rat).Mul(inner.B, outer.L)
	b.Add(b, outer.B)
	l := new(big.Rat).Mul(outer.L, inner.L)
	return Interval{B: b, L: l}
}

// Scale is the inverse of SelectSubinterval: it rescales inner as if outer
// were [0, 1).
func Scale(outer, inner Interval) Interval {
	b := new(big.Rat).Sub(inner.B, outer.B)
	b.Quo(b, outer.L)
	l := new(big.Rat).Quo(inner.L, outer.L)
	return Interval{B: b, L: l}
}

// IsSubinterval reports whether sub is contained in i, properly or not.
func IsSubinterval(i, sub Interval, proper bool) bool {
	iEnd := i.End()
	subEnd := sub.End()
	if proper {
		return sub.B.Cmp(i.B) > 0 && subEnd.Cmp(iEnd) < 0
	}
	return sub.B.Cmp(i.B) >= 0 && subEnd.Cmp(iEnd) <= 0
}
