package steg

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/kryptco/steg/bindb"
)

// WatchTables watches dir for BinDB table writes (a fresh bulk-load
// replacing "1gram".."{NMax}gram") and swaps e's store for a freshly opened
// one on every Write or Create event in dir, so a long-running process (a
// server wrapping this engine) picks up a regenerated corpus without a
// restart. Events are not debounced: a bulk load that writes several files
// triggers one reload attempt per event. It runs until stop is closed;
// reload errors are logged and
// leave the previous store in place rather than tearing down the engine.
func (e *Engine) WatchTables(dir string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("steg: starting table watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("steg: watching %s: %w", dir, err)
	}

	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			RecoverToLog(func() { e.reloadStore(dir) }, log)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("table watcher: %v", werr)
		}
	}
}

func (e *Engine) reloadStore(dir string) {
	store, err := bindb.Open(dir, e.config.NMax)
	if err != nil {
		log.Errorf("reloading bindb store from %s: %v", dir, err)
		return
	}
	model, err := newModelFor(e.config, store)
	if err != nil {
		store.Close()
		log.Errorf("rebuilding language model after reload: %v", err)
		return
	}
	old := e.store
	e.store, e.model = store, model
	if err := old.Close(); err != nil {
		log.Errorf("closing superseded bindb store: %v", err)
	}
	log.Noticef("reloaded bindb tables from %s", dir)
}
