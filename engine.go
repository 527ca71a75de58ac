package steg

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/kryptco/steg/ac"
	"github.com/kryptco/steg/bindb"
	"github.com/kryptco/steg/cipher"
	"github.com/kryptco/steg/lm"
	"github.com/kryptco/steg/rational"
	"github.com/kryptco/steg/rng"
	"github.com/kryptco/steg/vocab"
)

// Engine ties together the vocabulary index, BinDB store, language model,
// and random bit source behind the three façade roles and the Pk2s/Sk2p
// operations. It is not safe for concurrent use: the BinDB store's
// cached-scan LRU has no locking. Serialize access behind a lock, or open
// one Engine per goroutine.
type Engine struct {
	config Config
	index  *vocab.Index
	store  *bindb.Store
	model  *lm.Model
	source *rng.Source
}

// NewEngine wires an Engine from an already-loaded vocabulary index and
// BinDB store, per cfg.
func NewEngine(cfg Config, index *vocab.Index, store *bindb.Store) (*Engine, error) {
	model, err := newModelFor(cfg, store)
	if err != nil {
		return nil, err
	}
	var source *rng.Source
	if cfg.Seed != nil {
		source, err = rng.NewSeeded(*cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("steg: seeding random source: %w", err)
		}
	} else {
		source = rng.New()
	}
	return &Engine{config: cfg, index: index, store: store, model: model, source: source}, nil
}

func newModelFor(cfg Config, store *bindb.Store) (*lm.Model, error) {
	model, err := lm.New(store, cfg.NMax, cfg.StartID, cfg.EndID, cfg.Alpha, cfg.Beta)
	if err != nil {
		return nil, fmt.Errorf("steg: constructing language model: %w", err)
	}
	return model, nil
}

// Close releases the Engine's BinDB file handles.
func (e *Engine) Close() error {
	return e.store.Close()
}

func (e *Engine) conditionalInterval(t int32, c []int32) (rational.Interval, error) {
	return e.model.ConditionalInterval(t, c)
}

func (e *Engine) nextToken(search rational.Interval, c []int32) (int32, rational.Interval, bool, error) {
	return e.model.NextToken(search, c)
}

// NewPlaintext constructs the Plaintext role from text: encode(), projected
// "sub" so its bits uniquely determine it on shallow decode.
func (e *Engine) NewPlaintext(text string) (Sentence, error) {
	return sentenceFromText(text, e.index, e.conditionalInterval, rational.Sub)
}

// PlaintextFromBits recovers a Plaintext by shallow-decoding the interval
// named by bits, with no further projection. Decoding stops at the first
// sentence boundary: a decrypted bit string names the hidden sentence in
// its leading bits and carries stegotext refinement beyond them, so
// everything past the first END is noise by construction.
func (e *Engine) PlaintextFromBits(bits []int) (Sentence, error) {
	i := rational.Bits2Interval(bits)
	return sentenceFromShallowDecode(i, e.index, e.nextToken, e.conditionalInterval, e.config.EndID)
}

// NewKey constructs the Key role from text: encode(), projected "super" so
// any later refinement still lies inside it.
func (e *Engine) NewKey(text string) (Sentence, error) {
	return sentenceFromText(text, e.index, e.conditionalInterval, rational.Super)
}

// GenerateKey draws a fresh Key of n random bits: a random sub-unit
// interval named by those bits, deep-decoded to a sentence ending at END,
// and projected "super".
func (e *Engine) GenerateKey(n int) (Sentence, error) {
	i, err := e.source.RandomInterval(n)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: generating key: drawing random interval: %w", err)
	}
	return sentenceFromDeepDecode(i, e.index, e.nextToken, e.conditionalInterval, e.config.EndID, e.source, e.config.RefinementBits, rational.Super)
}

// NewStegotext constructs the Stegotext role from text: encode(), projected
// "super".
func (e *Engine) NewStegotext(text string) (Sentence, error) {
	return sentenceFromText(text, e.index, e.conditionalInterval, rational.Super)
}

// StegotextFromBits recovers a Stegotext by deep-decoding the interval
// named by bits to a sentence ending at END, projected "super".
func (e *Engine) StegotextFromBits(bits []int) (Sentence, error) {
	i := rational.Bits2Interval(bits)
	s, err := sentenceFromDeepDecode(i, e.index, e.nextToken, e.conditionalInterval, e.config.EndID, e.source, e.config.RefinementBits, rational.Super)
	if errors.Is(err, ac.ErrNoPathToEnd) {
		return Sentence{}, fmt.Errorf("%w: %v", ErrNoCoverText, err)
	}
	return s, err
}

// Pk2s is pk2s(p, k) = Stegotext.from_bits(encrypt(p.bits, k.bits)): hide p
// under k. Requires len(k.Bits) >= len(p.Bits); the cipher runs
// non-strictly, so a longer key pads harmlessly beyond p's subinterval.
func (e *Engine) Pk2s(p, k Sentence) (Sentence, error) {
	if !p.HasBits() || !k.HasBits() {
		return Sentence{}, fmt.Errorf("steg: pk2s requires both plaintext and key to carry bit projections")
	}
	cipherBits, err := cipher.Encrypt(p.Bits, k.Bits, false)
	if err != nil {
		return Sentence{}, fmt.Errorf("%w: %v", ErrKeyTooShort, err)
	}
	return e.StegotextFromBits(cipherBits)
}

// Sk2p is sk2p(s, k) = Plaintext.from_bits(decrypt(s.bits, k.bits)): reveal
// the plaintext hidden in s under k.
func (e *Engine) Sk2p(s, k Sentence) (Sentence, error) {
	if !s.HasBits() || !k.HasBits() {
		return Sentence{}, fmt.Errorf("steg: sk2p requires both stegotext and key to carry bit projections")
	}
	plainBits, err := cipher.Decrypt(s.Bits, k.Bits)
	if err != nil {
		return Sentence{}, fmt.Errorf("steg: sk2p: %w", err)
	}
	return e.PlaintextFromBits(plainBits)
}

// Hide is the end-to-end convenience entry point: tokenize plaintext and
// key text, then run pk2s.
func (e *Engine) Hide(plaintext, key string) (Sentence, error) {
	p, err := e.NewPlaintext(plaintext)
	if err != nil {
		return Sentence{}, err
	}
	k, err := e.NewKey(key)
	if err != nil {
		return Sentence{}, err
	}
	return e.Pk2s(p, k)
}

// Reveal is the end-to-end convenience entry point: tokenize the stegotext
// and key text, then run sk2p.
func (e *Engine) Reveal(stegotext, key string) (Sentence, error) {
	s, err := e.NewStegotext(stegotext)
	if err != nil {
		return Sentence{}, fmt.Errorf("%w: %v", ErrCorruptStegotext, err)
	}
	k, err := e.NewKey(key)
	if err != nil {
		return Sentence{}, err
	}
	return e.Sk2p(s, k)
}

// Alpha and Beta expose the model's back-off weights for diagnostics.
func (e *Engine) Alpha() *big.Rat { return e.config.Alpha }
func (e *Engine) Beta() *big.Rat  { return e.config.Beta }
