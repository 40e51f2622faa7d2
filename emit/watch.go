/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package emit

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// shouldIgnore skips directories the watcher should never recurse into,
// matching serve/filewatcher.go's ignore list.
func shouldIgnore(name string) bool {
	base := filepath.Base(name)
	return base == ".git" || base == "node_modules" || base == ".mako_cache"
}

// Watcher debounces raw fsnotify events into batches of changed paths,
// ported from serve/filewatcher.go's debounced fileWatcher but emitting
// spec §4.7-shaped batches (a slice of changed paths per flush) rather than
// one event per file.
type Watcher struct {
	fsw            *fsnotify.Watcher
	debounceWindow time.Duration
	mu             sync.Mutex
	pending        map[string]bool
	timer          *time.Timer
	batches        chan []string
	done           chan struct{}
}

// NewWatcher starts watching root recursively (skipping ignored
// directories) and debounces bursts of events within debounceWindow into
// one batch.
func NewWatcher(root string, debounceWindow time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:            fsw,
		debounceWindow: debounceWindow,
		pending:        make(map[string]bool),
		batches:        make(chan []string, 16),
		done:           make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || p == root {
			return nil
		}
		if shouldIgnore(p) {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// Batches returns the channel of debounced path batches.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Close stops the watcher and the debounce loop.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			// A Create on a directory means new subtree to watch, so
			// Added-path recovery (spec §4.7 step 2) can discover files
			// under it.
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			w.debounce(ev.Name)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceWindow, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	select {
	case w.batches <- batch:
	case <-w.done:
	}
}
