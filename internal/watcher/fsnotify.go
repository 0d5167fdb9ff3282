package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher watches individual files using fsnotify.
type FileWatcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	config  Config
	logger  *zap.Logger

	// files are the watched absolute paths; dirs counts watched files per
	// parent directory.
	files map[string]bool
	dirs  map[string]int

	events   chan Event
	errors   chan error
	debounce *debouncer

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New creates a FileWatcher.
func New(opts ...Option) (*FileWatcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &FileWatcher{
		watcher: fsw,
		config:  config,
		logger:  config.Logger,
		files:   make(map[string]bool),
		dirs:    make(map[string]int),
		events:  make(chan Event, config.BufferSize),
		errors:  make(chan error, config.BufferSize),
		closeCh: make(chan struct{}),
	}
	w.debounce = newDebouncer(config.DebounceDelay, w.events, w.logger)

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch starts watching the file at path. The file itself need not exist,
// but its directory must.
func (w *FileWatcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if w.files[absPath] {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				return ErrPathNotExist
			}
			return err
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}

	w.dirs[dir]++
	w.files[absPath] = true
	w.logger.Debug("watching file", zap.String("path", absPath))
	return nil
}

// Unwatch stops watching the file at path.
func (w *FileWatcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !w.files[absPath] {
		return ErrNotWatching
	}

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.watcher.Remove(dir); err != nil {
			w.logger.Debug("removing directory watch", zap.String("dir", dir), zap.Error(err))
		}
	}
	delete(w.files, absPath)
	return nil
}

// IsWatching returns true if the file at path is being watched.
func (w *FileWatcher) IsWatching(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return w.files[absPath]
}

// Events returns the debounced event channel. It is closed by Close.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel. It is closed by Close.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Flush delivers pending events immediately.
func (w *FileWatcher) Flush() {
	w.debounce.flush()
}

// PendingCount returns the number of events waiting out their debounce
// delay.
func (w *FileWatcher) PendingCount() int {
	return w.debounce.pendingCount()
}

// Close stops the watcher. Pending events are discarded.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	w.debounce.stop()

	close(w.events)
	close(w.errors)

	return w.watcher.Close()
}

// processLoop handles incoming fsnotify events.
func (w *FileWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// handleFSEvent filters an fsnotify event down to the watched files.
func (w *FileWatcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	path := filepath.Clean(fsEvent.Name)
	w.mu.Lock()
	watched := w.files[path]
	w.mu.Unlock()
	if !watched {
		return
	}

	w.debounce.add(Event{
		Path:      path,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// convertOp converts fsnotify.Op to watcher.Op. Chmod alone is not a
// content change and maps to 0.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
