package steg

import (
	"github.com/blang/semver"
)

// CurrentVersion is the engine/wire-format version, bumped whenever the
// BinDB record layout, vocabulary index format, or stegotext framing
// changes in an incompatible way.
var CurrentVersion = semver.MustParse("0.1.0")
