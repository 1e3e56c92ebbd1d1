package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"nourish/models"
)

// Watcher reports credential changes made by other processes sharing the
// session file, e.g. a logout in another terminal.
type Watcher struct {
	store    Store
	file     string
	watcher  *fsnotify.Watcher
	onChange func(*models.Credential)
	log      *zap.Logger

	mu   sync.Mutex
	last models.Credential
	done chan struct{}
}

// NewWatcher watches the directory holding dbPath. onChange receives the
// reloaded credential (nil after a logout) whenever it differs from the
// last one seen.
func NewWatcher(store Store, dbPath string, onChange func(*models.Credential), log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session: watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(dbPath)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("session: watch %s: %w", dbPath, err)
	}

	w := &Watcher{
		store:    store,
		file:     filepath.Base(dbPath),
		watcher:  fw,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}
	if cred, err := store.Get(); err == nil && cred != nil {
		w.last = *cred
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("session watcher error", zap.Error(err))
		}
	}
}

// relevant matches the database file and its sqlite journal/WAL siblings.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.file)
}

func (w *Watcher) reload() {
	cred, err := w.store.Get()
	if err != nil {
		w.log.Debug("session reload failed", zap.Error(err))
		return
	}
	var cur models.Credential
	if cred != nil {
		cur = *cred
	}

	w.mu.Lock()
	changed := cur != w.last
	w.last = cur
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(cred)
	}
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
