package rational

import "math/big"

// Projection selects which dyadic interval interval2bits names: the smallest
// enclosing superinterval, or the largest enclosed subinterval.
type Projection string

const (
	Super Projection = "super"
	Sub   Projection = "sub"
)

var (
	half       = big.NewRat(1, 2)
	firstHalf  = Interval{B: big.NewRat(0, 1), L: big.NewRat(1, 2)}
	secondHalf = Interval{B: big.NewRat(1, 2), L: big.NewRat(1, 2)}
)

func bitInterval(bit int) Interval {
	if bit == 0 {
		return firstHalf
	}
	return secondHalf
}

// Bits2Interval folds a finite bit string into the interval it names,
// starting from [0, 1) and repeatedly narrowing into the left or right half.
func Bits2Interval(bits []int) Interval {
	i := Unit()
	for _, bit := range bits {
		i = SelectSubinterval(i, bitInterval(bit))
	}
	return i
}

// Interval2Bit extracts a single bit from i under mode, and the interval
// rescaled as if the chosen half were [0, 1). Returns ok=false when no
// further bit can be extracted under that mode.
func Interval2Bit(i Interval, mode Projection) (bit int, rest Interval, ok bool) {
	switch mode {
	case Super:
		// Order matters: a degenerate [1/2, 1/2) interval must be
		// classified as 1 by this branch before the <= 1/2 check below
		// can claim it as 0.
		if i.B.Cmp(half) >= 0 {
			return 1, Scale(secondHalf, i), true
		}
		if i.End().Cmp(half) <= 0 {
			return 0, Scale(firstHalf, i), true
		}
		return 0, Interval{}, false
	case Sub:
		bottomDistance := new(big.Rat).Set(i.B)
		topDistance := new(big.Rat).Sub(big.NewRat(1, 1), i.End())

		if bottomDistance.Sign() <= 0 && topDistance.Sign() <= 0 {
			return 0, Interval{}, false
		}
		// Scale does not assert the sub-unit invariant: in "sub" mode the
		// rescaled interval may extend beyond the chosen half's far edge.
		if topDistance.Cmp(bottomDistance) < 0 {
			return 1, Scale(secondHalf, i), true
		}
		return 0, Scale(firstHalf, i), true
	default:
		return 0, Interval{}, false
	}
}

// Interval2Bits repeatedly applies Interval2Bit until it is exhausted,
// returning the bit string naming the smallest dyadic superinterval of i
// ("super") or the largest dyadic subinterval of i ("sub").
func Interval2Bits(i Interval, mode Projection) []int {
	var bits []int
	for {
		bit, rest, ok := Interval2Bit(i, mode)
		if !ok {
			break
		}
		bits = append(bits, bit)
		i = rest
	}
	return bits
}
