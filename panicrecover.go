package steg

import (
	"fmt"
	"runtime/debug"

	"github.com/op/go-logging"
)

// RecoverToLog runs f, logging and swallowing any panic instead of
// crashing the process. Used to wrap per-event work in the fsnotify-driven
// table reloader (Engine.WatchTables), a long-running surface where a single
// malformed BinDB record should not take down an otherwise healthy engine.
func RecoverToLog(f func(), log *logging.Logger) {
	defer func() {
		if x := recover(); x != nil {
			if log != nil {
				log.Error(fmt.Sprintf("run time panic: %v", x))
				log.Error(string(debug.Stack()))
			}
		}
	}()
	f()
}
