// Package rng is the single random bit source the stegosystem draws on: a
// cryptographic RNG by default, or a deterministic one when a seed is
// supplied so runs can be reproduced in tests.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"

	"github.com/kryptco/steg/rational"
)

// Source produces cryptographically secure random bits, or a deterministic
// stream derived from a seed. The same seed always yields the same bits,
// which is what lets GenerateKey and DeepDecode be reproduced
// byte-for-byte in tests.
type Source struct {
	seeded bool
	stream *chacha20.Cipher
}

// New returns the default OS-entropy backed source.
func New() *Source {
	return &Source{}
}

// NewSeeded derives a ChaCha20 keystream from seed via a blake2b digest and
// returns a Source that draws bits from it deterministically.
func NewSeeded(seed int64) (*Source, error) {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], uint64(seed))

	key := blake2b.Sum256(seedBytes[:])
	nonce := make([]byte, chacha20.NonceSize)

	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce)
	if err != nil {
		return nil, fmt.Errorf("rng: deriving seeded stream: %w", err)
	}
	return &Source{seeded: true, stream: stream}, nil
}

// Bits returns n cryptographically secure (or seeded) random bits, each 0 or 1.
func (s *Source) Bits(n int) ([]int, error) {
	nBytes := (n + 7) / 8
	buf := make([]byte, nBytes)

	if s.seeded {
		s.stream.XORKeyStream(buf, make([]byte, nBytes))
	} else {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("rng: reading OS entropy: %w", err)
		}
	}

	bits := make([]int, n)
	for i := 0; i < n; i++ {
		byteIdx, bitIdx := i/8, uint(i%8)
		bits[i] = int((buf[byteIdx] >> (7 - bitIdx)) & 1)
	}
	return bits, nil
}

// RandomInterval returns the interval named by n random bits drawn from s,
// i.e. rational.Bits2Interval(s.Bits(n)).
func (s *Source) RandomInterval(n int) (rational.Interval, error) {
	bits, err := s.Bits(n)
	if err != nil {
		return rational.Interval{}, err
	}
	return rational.Bits2Interval(bits), nil
}
