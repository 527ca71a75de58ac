package steg

import (
	"fmt"
)

// Sentinel errors surfaced at the façade boundary. Component packages raise
// their own (lm.ErrModelInconsistency, cipher.ErrKeyTooShort, ...); these
// wrap or stand in for them at the engine level.
var ErrKeyTooShort = fmt.Errorf("steg: key shorter than plaintext and strict mode requested")
var ErrNoCoverText = fmt.Errorf("steg: no stegotext could be produced for this key and model")
var ErrCorruptStegotext = fmt.Errorf("steg: stegotext did not decode to a well-formed token sequence")
