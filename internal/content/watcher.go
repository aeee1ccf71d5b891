package content

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads library pages when their files change.
type Watcher struct {
	lib      *Library
	log      *slog.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}

	// reloaded receives the path of every processed change; used by tests.
	reloaded chan string
}

// NewWatcher creates a watcher for the library's content directory.
func NewWatcher(lib *Library, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		lib:      lib,
		log:      log,
		debounce: debounce,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the content tree and processes changes until Stop.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.lib.Dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.lib.Dir() && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		w.watcher.Close()
		return err
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for path := range pending {
					w.apply(path)
				}
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.log.Warn("watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, t := range pending {
				if now.Sub(t) >= w.debounce {
					w.apply(path)
					delete(pending, path)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("content watch error", "error", err)
		}
	}
}

func (w *Watcher) apply(path string) {
	if err := w.lib.Reload(path); err != nil {
		w.log.Warn("reload page", "path", path, "error", err)
	}
	if w.reloaded != nil {
		select {
		case w.reloaded <- path:
		default:
		}
	}
}
