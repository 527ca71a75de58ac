package steg

import (
	"fmt"

	"github.com/kryptco/steg/ac"
	"github.com/kryptco/steg/rational"
	"github.com/kryptco/steg/rng"
	"github.com/kryptco/steg/tokenize"
	"github.com/kryptco/steg/vocab"
)

// Sentence is the immutable record shared by Plaintext, Key, and Stegotext:
// a token sequence, its rendered strings, the interval it encodes to, and
// (once projected) the bit string naming that interval.
type Sentence struct {
	TokenIDs     []int32
	TokenStrings []string
	Interval     rational.Interval
	Bits         []int
	hasBits      bool
}

// Text renders the sentence's token strings back to prose.
func (s Sentence) Text() string {
	return tokenize.TokensToText(s.TokenStrings)
}

// HasBits reports whether a bit projection has been computed.
func (s Sentence) HasBits() bool {
	return s.hasBits
}

func tokensFromText(text string, index *vocab.Index) ([]string, []int32, error) {
	strs := tokenize.TextToTokens(text)
	ids := make([]int32, len(strs))
	for i, str := range strs {
		id, err := index.S2I(str)
		if err != nil {
			return nil, nil, fmt.Errorf("steg: tokenizing %q: %w", text, err)
		}
		ids[i] = int32(id)
	}
	return strs, ids, nil
}

func stringsFromIDs(ids []int32, index *vocab.Index) ([]string, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		s, err := index.I2S(int(id))
		if err != nil {
			return nil, fmt.Errorf("steg: rendering token id %d: %w", id, err)
		}
		strs[i] = s
	}
	return strs, nil
}

// sentenceFromText runs encode() over text's tokens and projects the
// resulting interval to bits under mode, if mode is non-empty.
func sentenceFromText(text string, index *vocab.Index, conditionalInterval ac.ConditionalInterval, mode rational.Projection) (Sentence, error) {
	strs, ids, err := tokensFromText(text, index)
	if err != nil {
		return Sentence{}, err
	}
	interval, err := ac.Encode(conditionalInterval, ids)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: encoding %q: %w", text, err)
	}
	s := Sentence{TokenIDs: ids, TokenStrings: strs, Interval: interval}
	if mode != "" {
		s.Bits = rational.Interval2Bits(interval, mode)
		s.hasBits = true
	}
	return s, nil
}

// sentenceFromShallowDecode shallow-decodes i up to the first endToken and
// fills in the resulting token sequence, with no bit projection. The
// sentence's interval is the decoded sequence's own encoded interval, not
// the search interval that led to it.
func sentenceFromShallowDecode(i rational.Interval, index *vocab.Index, nextToken ac.NextToken, conditionalInterval ac.ConditionalInterval, endToken int32) (Sentence, error) {
	ids, err := ac.DecodeUntil(nextToken, i, endToken)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: shallow decode: %w", err)
	}
	strs, err := stringsFromIDs(ids, index)
	if err != nil {
		return Sentence{}, err
	}
	interval, err := ac.Encode(conditionalInterval, ids)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: re-encoding shallow decode result: %w", err)
	}
	return Sentence{TokenIDs: ids, TokenStrings: strs, Interval: interval}, nil
}

// sentenceFromDeepDecode runs deep_decode() over i, ending at endToken, and
// projects the resulting sentence's own encoded interval to bits under mode.
func sentenceFromDeepDecode(i rational.Interval, index *vocab.Index, nextToken ac.NextToken, conditionalInterval ac.ConditionalInterval, endToken int32, source *rng.Source, refinementBits int, mode rational.Projection) (Sentence, error) {
	ids, err := ac.DeepDecode(nextToken, i, &endToken, source, refinementBits)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: deep decode: %w", err)
	}
	strs, err := stringsFromIDs(ids, index)
	if err != nil {
		return Sentence{}, err
	}
	interval, err := ac.Encode(conditionalInterval, ids)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: re-encoding deep decode result: %w", err)
	}
	s := Sentence{TokenIDs: ids, TokenStrings: strs, Interval: interval}
	if mode != "" {
		s.Bits = rational.Interval2Bits(interval, mode)
		s.hasBits = true
	}
	return s, nil
}
