package steg

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// Config holds the tunable parameters of a stegosystem instance: the model
// order, the vocabulary IDs reserved for START/END, the Katz back-off
// weights, the deep-decode refinement width, and an optional deterministic
// seed. The zero value is not valid; use DefaultConfig or LoadConfig.
type Config struct {
	NMax           int      `json:"n_max"`
	StartID        int32    `json:"start_id"`
	EndID          int32    `json:"end_id"`
	Alpha          *big.Rat `json:"-"`
	Beta           *big.Rat `json:"-"`
	AlphaString    string   `json:"alpha"`
	BetaString     string   `json:"beta"`
	RefinementBits int      `json:"refinement_bits"`
	Seed           *int64   `json:"seed,omitempty"`
}

// DefaultConfig returns the parameters used when no ~/.steg/config.json is
// present: a trigram model, alpha=1, beta=1, 100-bit refinement rounds.
func DefaultConfig() Config {
	return Config{
		NMax:           3,
		StartID:        1,
		EndID:          2,
		Alpha:          big.NewRat(1, 1),
		Beta:           big.NewRat(1, 1),
		AlphaString:    "1",
		BetaString:     "1",
		RefinementBits: 100,
	}
}

// LoadConfig reads a Config from path, falling back to DefaultConfig if path
// does not exist.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("steg: reading config: %w", err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("steg: parsing config: %w", err)
	}
	alpha, ok := new(big.Rat).SetString(c.AlphaString)
	if !ok {
		return Config{}, fmt.Errorf("steg: config alpha %q is not a valid rational", c.AlphaString)
	}
	beta, ok := new(big.Rat).SetString(c.BetaString)
	if !ok {
		return Config{}, fmt.Errorf("steg: config beta %q is not a valid rational", c.BetaString)
	}
	c.Alpha, c.Beta = alpha, beta
	if c.NMax < 1 {
		return Config{}, fmt.Errorf("steg: config n_max must be >= 1")
	}
	return c, nil
}

// Save writes c to path as indented JSON.
func (c Config) Save(path string) error {
	c.AlphaString = c.Alpha.RatString()
	c.BetaString = c.Beta.RatString()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("steg: encoding config: %w", err)
	}
	return os.WriteFile(path, data, os.FileMode(0600))
}

// DefaultConfigPath returns ~/.steg/config.json.
func DefaultConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
