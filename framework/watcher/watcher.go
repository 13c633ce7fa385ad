// Package watcher reports debounced changes to Go sources under a set of
// bundle directories.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors bundle trees and signals when a Go source changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	roots     []string
	skip      map[string]bool
	debounce  time.Duration
	onChange  chan struct{}
	onError   chan error
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Roots       []string
	Skip        []string // directory names never descended into
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(roots ...string) Config {
	return Config{
		Roots:       roots,
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a new source watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	skip := make(map[string]bool, len(cfg.Skip))
	for _, name := range cfg.Skip {
		skip[name] = true
	}
	return &Watcher{
		fsWatcher: fsw,
		roots:     cfg.Roots,
		skip:      skip,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		onError:   make(chan error, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching every directory below the roots. The returned channel
// receives a signal after a burst of changes settles.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return nil, err
		}
	}

	go w.loop()

	return w.onChange, nil
}

// Errors carries watch errors. Sends never block; errors are dropped while
// one is pending.
func (w *Watcher) Errors() <-chan error { return w.onError }

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// addTree watches dir and every directory below it. fsnotify is not
// recursive.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || w.skip[name]
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				// New directories are watched too; a failure here is reported
				// but does not stop the loop.
				if err := w.addNewDir(event.Name); err != nil {
					w.report(err)
				}
			}

			if !isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.report(err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) addNewDir(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(filepath.Base(path)) {
		return nil
	}
	return w.addTree(path)
}

func (w *Watcher) report(err error) {
	select {
	case w.onError <- err:
	default:
	}
}

// isRelevantEvent checks if the event should trigger a re-scan: any change to
// a non-test Go source, including removal.
func isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}
