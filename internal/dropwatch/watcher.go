// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dropwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/warriorchat/internal/attach"
)

// Defaults for Options.
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultMaxSize  = attach.MaxFileSize
)

// ErrNotDirectory is returned by New when the drop path is not a directory.
var ErrNotDirectory = errors.New("drop path is not a directory")

// Handler receives the files that settled during one debounce pass.
type Handler func(files []attach.LocalFile)

// Options tune a Watcher.
type Options struct {
	// Debounce is how long a file must go without events before it is read.
	Debounce time.Duration

	// MaxSize skips files larger than this many bytes.
	MaxSize int64

	Logger *log.Logger
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher watches one directory (not recursive).
type Watcher struct {
	dir     string
	handler Handler
	opts    Options
	logger  *log.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time // path -> last event
	staged  map[string]fileStamp // path -> version already handed over

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// same reports whether o describes the same file contents. Monotonic
// readings and locations do not take part.
func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// New creates a watcher on dir. Call Start to begin delivering files.
func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:     dir,
		handler: handler,
		opts:    opts,
		logger:  logger.WithPrefix("dropwatch"),
		watcher: fw,
		pending: make(map[string]time.Time),
		staged:  make(map[string]fileStamp),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start begins watching. Files already in the folder are not staged.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()

	w.logger.Info("watching drop folder", "dir", w.dir)
	return nil
}

// Close stops watching and waits for the goroutines to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ignoredName(filepath.Base(event.Name)) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.mu.Lock()
				delete(w.pending, event.Name)
				delete(w.staged, event.Name)
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.opts.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			if files := w.collect(time.Now()); len(files) > 0 && w.handler != nil {
				w.handler(files)
			}
		}
	}
}

// collect reads every pending file that has settled.
func (w *Watcher) collect(now time.Time) []attach.LocalFile {
	w.mu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	var files []attach.LocalFile
	for _, path := range ready {
		f, ok := w.read(path)
		if ok {
			files = append(files, f)
		}
	}
	return files
}

func (w *Watcher) read(path string) (attach.LocalFile, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return attach.LocalFile{}, false
	}
	if info.Size() > w.opts.MaxSize {
		w.logger.Warn("skipping oversized file", "file", filepath.Base(path), "bytes", info.Size())
		return attach.LocalFile{}, false
	}

	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	w.mu.Lock()
	prev, seen := w.staged[path]
	w.mu.Unlock()
	if seen && prev.same(stamp) {
		return attach.LocalFile{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("read failed", "file", filepath.Base(path), "err", err)
		return attach.LocalFile{}, false
	}

	w.mu.Lock()
	w.staged[path] = stamp
	w.mu.Unlock()

	w.logger.Debug("staging dropped file", "file", filepath.Base(path), "bytes", len(data))
	return attach.LocalFile{Name: filepath.Base(path), Data: data}, true
}

// ignoredName skips dotfiles and the partial files browsers and editors
// leave behind while writing.
func ignoredName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".part", ".crdownload", ".tmp", ".swp":
		return true
	}
	return false
}
