// Package ac is the arithmetic coder/decoder: it maps token sequences to and
// from exact rational subintervals of [0, 1) using a language model's
// conditional distributions. It depends only on two callback shapes so it
// can run against lm.Model or a toy model in tests.
package ac

import (
	"fmt"
	"math/big"

	"github.com/op/go-logging"

	"github.com/kryptco/steg/rational"
	"github.com/kryptco/steg/rng"
)

var log = logging.MustGetLogger("ac")

// ErrNoPathToEnd is returned by DeepDecode when the refined input interval
// has no reachable path to the requested end token: the engine fails
// loudly rather than silently truncating.
var ErrNoPathToEnd = fmt.Errorf("ac: deep_decode found no path to the requested end token")

// ConditionalInterval returns the interval a language model assigns to
// token given context.
type ConditionalInterval func(token int32, context []int32) (rational.Interval, error)

// NextToken returns the unique token whose conditional interval contains
// search (and search rescaled inside it), or ok=false if search straddles
// more than one candidate.
type NextToken func(search rational.Interval, context []int32) (token int32, scaled rational.Interval, ok bool, err error)

// Encode folds seq into the exact interval it names: starting from [0, 1),
// repeatedly narrowing into conditionalInterval(seq[i], seq[:i]).
func Encode(conditionalInterval ConditionalInterval, seq []int32) (rational.Interval, error) {
	interval := rational.Unit()
	for i, tok := range seq {
		ci, err := conditionalInterval(tok, seq[:i])
		if err != nil {
			return rational.Interval{}, fmt.Errorf("ac: encode: %w", err)
		}
		interval = rational.SelectSubinterval(interval, ci)
	}
	return interval, nil
}

// Decode is the shallow decoder: it emits tokens by repeatedly calling
// nextToken, terminating as soon as nextToken reports no further match. The
// emitted sequence's encoded interval is the smallest superinterval of i.
func Decode(nextToken NextToken, i rational.Interval) ([]int32, error) {
	return decode(nextToken, i, nil)
}

// DecodeUntil is Decode with an early stop: decoding additionally halts
// right after stopToken is emitted. Bit-exact plaintext recovery needs
// this: the bit string handed to the decoder carries trailing bits beyond
// the ones that name the hidden sentence, and without the stop the decoder
// would keep walking the model into tokens those stray bits happen to name.
func DecodeUntil(nextToken NextToken, i rational.Interval, stopToken int32) ([]int32, error) {
	return decode(nextToken, i, &stopToken)
}

func decode(nextToken NextToken, i rational.Interval, stopToken *int32) ([]int32, error) {
	var seq []int32
	current := i
	for {
		tok, scaled, ok, err := nextToken(current, seq)
		if err != nil {
			return nil, fmt.Errorf("ac: decode: %w", err)
		}
		if !ok {
			return seq, nil
		}
		seq = append(seq, tok)
		current = scaled
		if stopToken != nil && tok == *stopToken {
			return seq, nil
		}
	}
}

// maxDeepDecodeRounds bounds DeepDecode's refinement loop. A model that
// gives the end token probability >= epsilon everywhere terminates within
// O(log(1/epsilon)) expected rounds; this is a generous multiple of that
// for any plausible model, past which the engine fails loudly instead of
// looping forever.
const maxDeepDecodeRounds = 10000

// DeepDecode decodes i under the stronger requirement that the output
// sequence's encoded interval be a subinterval of i, achieved by randomly
// refining i until that holds. If endToken is non-nil, it additionally
// requires the last emitted token to equal *endToken.
func DeepDecode(nextToken NextToken, i rational.Interval, endToken *int32, source *rng.Source, refinementBits int) ([]int32, error) {
	ir := i
	irs := i
	var output []int32

	for round := 0; ; round++ {
		if round >= maxDeepDecodeRounds {
			return nil, ErrNoPathToEnd
		}

		r, err := source.RandomInterval(refinementBits)
		if err != nil {
			return nil, fmt.Errorf("ac: deep_decode: drawing refinement: %w", err)
		}
		ir = rational.SelectSubinterval(ir, r)
		irs = rational.SelectSubinterval(irs, r)

		for {
			tok, scaled, ok, err := nextToken(irs, output)
			if err != nil {
				return nil, fmt.Errorf("ac: deep_decode: %w", err)
			}
			if !ok {
				break
			}
			output = append(output, tok)
			irs = scaled

			o := outputInterval(ir, irs)

			if rational.IsSubinterval(i, o, false) && (endToken == nil || tok == *endToken) {
				log.Debugf("deep_decode terminated after %d refinement rounds, %d tokens", round+1, len(output))
				return output, nil
			}
		}
	}
}

// outputInterval computes the interval implied by the output sequence so
// far: o.b = ir.b - irs.b*ir.l/irs.l, o.l = ir.l/irs.l.
func outputInterval(ir, irs rational.Interval) rational.Interval {
	ratio := new(big.Rat).Quo(ir.L, irs.L)
	shift := new(big.Rat).Mul(irs.B, ratio)
	b := new(big.Rat).Sub(ir.B, shift)
	return rational.Interval{B: b, L: ratio}
}
