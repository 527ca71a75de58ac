// Package cipher is the XOR stream cipher layer: a one-time pad that
// cycles the key when it is shorter than the plaintext. It is not a secure
// production cipher; a cycled key is trivially distinguishable and this
// package makes no claim otherwise.
package cipher

import "fmt"

// ErrKeyTooShort is raised by Encrypt in strict mode when the key is shorter
// than the plaintext it is asked to cover.
var ErrKeyTooShort = fmt.Errorf("cipher: key shorter than plaintext in strict mode")

// Encrypt XORs plain against key, cycling key to match plain's length. In
// strict mode a short key is an error rather than silently cycled, since a
// cycled key that covers the plaintext more than once defeats the one-time
// pad property Engine.GenerateKey is meant to provide.
func Encrypt(plain, key []int, strict bool) ([]int, error) {
	if len(key) == 0 {
		if len(plain) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("cipher: empty key")
	}
	if len(key) < len(plain) && strict {
		return nil, ErrKeyTooShort
	}

	out := make([]int, len(plain))
	for i, p := range plain {
		out[i] = p ^ key[i%len(key)]
	}
	return out, nil
}

// Decrypt recovers plain from cipher and key. XOR is its own inverse, so
// this is Encrypt run non-strict: a key shorter than the ciphertext is
// cycled exactly as Encrypt cycled it, so the original bits come back. An
// empty key with non-empty ciphertext is still an error.
func Decrypt(ciphertext, key []int) ([]int, error) {
	return Encrypt(ciphertext, key, false)
}
