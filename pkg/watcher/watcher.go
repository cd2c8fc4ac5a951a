// Package watcher notifies on changes to Paradox table files. Change
// events are debounced and confirmed against a content hash so rewrite
// churn does not trigger duplicate reloads.
package watcher

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// TableWatcher watches table files (.db and the optional .MB side file)
// for content changes.
type TableWatcher struct {
	watcher   *fsnotify.Watcher
	log       *logrus.Logger
	mu        sync.RWMutex
	hashes    map[string]string
	callbacks map[string]func(string)
	debounce  map[string]time.Duration
	timersMu  sync.Mutex
	timers    map[string]*time.Timer
}

// New creates a table watcher.
func New() (*TableWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &TableWatcher{
		watcher:   fw,
		log:       logrus.StandardLogger(),
		hashes:    make(map[string]string),
		callbacks: make(map[string]func(string)),
		debounce:  make(map[string]time.Duration),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Watch registers a file with a change callback and a debounce duration.
func (w *TableWatcher) Watch(path string, callback func(string), debounce time.Duration) error {
	hash, err := w.fileHash(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	w.mu.Lock()
	w.hashes[path] = hash
	w.callbacks[path] = callback
	w.debounce[path] = debounce
	w.mu.Unlock()

	if err := w.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return nil
}

// WatchTable registers the .db file and, when mbPath is non-empty, the
// .MB side file, both reporting through the same callback.
func (w *TableWatcher) WatchTable(dbPath, mbPath string, callback func(string), debounce time.Duration) error {
	if err := w.Watch(dbPath, callback, debounce); err != nil {
		return err
	}
	if mbPath == "" {
		return nil
	}
	return w.Watch(mbPath, callback, debounce)
}

// Start begins delivering change events.
func (w *TableWatcher) Start() {
	go w.loop()
}

func (w *TableWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("watcher error: %v", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a changed path.
func (w *TableWatcher) schedule(path string) {
	w.mu.RLock()
	debounce := w.debounce[path]
	w.mu.RUnlock()

	if debounce == 0 {
		go w.fire(path)
		return
	}

	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(debounce, func() {
		w.fire(path)
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()
	})
}

// fire confirms the content actually changed before invoking the
// callback.
func (w *TableWatcher) fire(path string) {
	w.mu.RLock()
	callback, hasCallback := w.callbacks[path]
	oldHash := w.hashes[path]
	w.mu.RUnlock()

	if !hasCallback {
		return
	}

	newHash, err := w.fileHash(path)
	if err != nil {
		w.log.Warnf("failed to hash %s: %v", path, err)
		return
	}
	if newHash == oldHash {
		return
	}

	w.mu.Lock()
	w.hashes[path] = newHash
	w.mu.Unlock()

	callback(path)
}

func (w *TableWatcher) fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// Unwatch stops watching a path.
func (w *TableWatcher) Unwatch(path string) error {
	w.mu.Lock()
	delete(w.hashes, path)
	delete(w.callbacks, path)
	delete(w.debounce, path)
	w.mu.Unlock()
	return w.watcher.Remove(path)
}

// Close stops the watcher.
func (w *TableWatcher) Close() error {
	return w.watcher.Close()
}
