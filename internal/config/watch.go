package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SharedRunConfig wraps RunConfig with a mutex for thread-safe access
// between a host mutating it and any in-flight watcher reload.
type SharedRunConfig struct {
	mu  sync.RWMutex
	cfg RunConfig
}

// NewSharedRunConfig wraps an already-loaded RunConfig.
func NewSharedRunConfig(cfg RunConfig) *SharedRunConfig {
	return &SharedRunConfig{cfg: cfg}
}

// Get returns a copy of the current config.
func (s *SharedRunConfig) Get() RunConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update replaces the config.
func (s *SharedRunConfig) Update(cfg RunConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Watcher watches a config file for writes and reloads it into a
// SharedRunConfig.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchFile starts watching path for writes; each debounced write reloads
// the file and, on success, calls onReload with the new config and
// installs it into shared. Parse errors are reported via onError and the
// previous config is left in place. Stop must be called to release the
// underlying OS watch.
func WatchFile(path string, shared *SharedRunConfig, onReload func(RunConfig), onError func(error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go w.loop(path, shared, onReload, onError)
	return w, nil
}

func (w *Watcher) loop(path string, shared *SharedRunConfig, onReload func(RunConfig), onError func(error)) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			// Debounce: wait for atomic (rename+replace) writes to settle.
			time.Sleep(100 * time.Millisecond)
			cfg, err := Load(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			shared.Update(cfg)
			if onReload != nil {
				onReload(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Stop releases the underlying OS file watch.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}
