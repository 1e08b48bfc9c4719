package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the user config file and reports collated changes.
// Editors commonly write config files via rename, so the watch is on
// the containing directory rather than the file itself.
type Watcher struct {
	path    string
	handler func(changes *Table)
	onError func(error)

	fw   *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher watches path's directory and invokes handler with the
// collated key changes each time the file at path is written,
// created, or renamed into place. Reload errors go to onError; a nil
// onError discards them.
func NewWatcher(path string, mgr *Manager, handler func(changes *Table), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:    path,
		handler: handler,
		onError: onError,
		fw:      fw,
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run(mgr)
	return w, nil
}

func (w *Watcher) run(mgr *Manager) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			changes, err := mgr.ReloadUser()
			if err != nil {
				if w.onError != nil {
					w.onError(err)
				}
				continue
			}
			if changes.Len() > 0 {
				w.handler(changes)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// Close stops the watcher. It is idempotent.
func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.stop)
		w.fw.Close()
		w.wg.Wait()
	})
}
