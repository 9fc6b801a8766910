package dirtyoverlay

import (
	"io/fs"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a working tree and calls onChange, debounced, whenever a
// file is created, written, removed, or renamed. It exists so a long-lived
// caller can keep an Overlay's cached result (see Overlay.Invalidate)
// instead of reparsing the working tree on every query.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching repoPath recursively, skipping .git,
// node_modules, and .cortex, and returns a Watcher the caller must Close.
func NewWatcher(repoPath string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, debounce: 300 * time.Millisecond, onChange: onChange, done: make(chan struct{})}
	if err := w.addRecursive(repoPath); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "node_modules", ".cortex":
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("dirtyoverlay: watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if w.onChange != nil {
				w.onChange()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("dirtyoverlay: watch error: %v", err)
		}
	}
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
