package steg

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("steg")

var stderrFormat = logging.MustStringFormatter(
	`%{color}steg ▶ %{time:15:04:05.000} %{level:.6s} %{message}%{color:reset}`,
)

// SetupLogging wires the package logger to a colourized stderr backend at
// defaultLevel, or at the level named by the STEG_LOG_LEVEL environment
// variable when set.
func SetupLogging(defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetFormatter(stderrFormat)
	leveled := logging.AddModuleLevel(backend)

	switch os.Getenv("STEG_LOG_LEVEL") {
	case "CRITICAL":
		leveled.SetLevel(logging.CRITICAL, "")
	case "ERROR":
		leveled.SetLevel(logging.ERROR, "")
	case "WARNING":
		leveled.SetLevel(logging.WARNING, "")
	case "NOTICE":
		leveled.SetLevel(logging.NOTICE, "")
	case "INFO":
		leveled.SetLevel(logging.INFO, "")
	case "DEBUG":
		leveled.SetLevel(logging.DEBUG, "")
	default:
		leveled.SetLevel(defaultLevel, "")
	}

	logging.SetBackend(leveled)
	return log
}
