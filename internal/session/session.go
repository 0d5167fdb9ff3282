// Package session ties a preference root to its command history and its
// file on disk.
//
// A Session is owned by one goroutine, the one that edits. Loads requested
// with RequestLoad read and decode the file on a background goroutine; the
// result is committed only when the owner calls Poll or Wait, and only if no
// newer load was requested in the meantime. While a requested load is
// pending, edits and saves are refused with ErrLoadInFlight so they cannot
// be lost when the load replaces the state.
package session

import (
	"context"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/notify"
	"github.com/stepforge/stepforge/internal/prefs"
	"github.com/stepforge/stepforge/internal/watcher"
)

// Session is an editing session over one preference file.
//
// Session is not safe for concurrent use.
type Session struct {
	prefs   *prefs.Root
	history *history.History
	logger  *zap.Logger
	fs      prefs.FileSystem

	path string

	// savedHash is the hash of the bytes last read from or written to path,
	// used to recognize watcher events caused by our own saves.
	savedHash uint64
	haveHash  bool

	generation uint64
	loading    bool
	cancel     context.CancelFunc
	results    chan loadResult

	watcher      *watcher.FileWatcher
	watchOptions []watcher.Option

	subs notify.Group
}

type options struct {
	logger       *zap.Logger
	prefsOptions []prefs.Option
	watchOptions []watcher.Option
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger shared by the session, its preference root
// and its history.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPrefsOptions passes options to the preference root.
func WithPrefsOptions(opts ...prefs.Option) Option {
	return func(o *options) {
		o.prefsOptions = append(o.prefsOptions, opts...)
	}
}

// WithWatchOptions passes options to the file watcher started by Watch.
func WithWatchOptions(opts ...watcher.Option) Option {
	return func(o *options) {
		o.watchOptions = append(o.watchOptions, opts...)
	}
}

// New creates a session holding default preferences and no file.
func New(opts ...Option) *Session {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	root := prefs.New(append([]prefs.Option{prefs.WithLogger(o.logger)}, o.prefsOptions...)...)
	s := &Session{
		prefs:        root,
		history:      history.NewHistory(root.UndoHistorySize(), history.WithLogger(o.logger)),
		logger:       o.logger,
		fs:           root.FileSystem(),
		results:      make(chan loadResult, 1),
		watchOptions: append([]watcher.Option{watcher.WithLogger(o.logger)}, o.watchOptions...),
	}

	s.subs.Add(root.Events().Subscribe(prefs.EventUndoHistorySize, func(r *prefs.Root, _ any) {
		s.history.SetMaxDepth(r.UndoHistorySize())
	}))
	return s
}

// Prefs returns the preference root. Its identity never changes; loads
// replace its contents.
func (s *Session) Prefs() *prefs.Root {
	return s.prefs
}

// History returns the command history.
func (s *Session) History() *history.History {
	return s.history
}

// Path returns the file the session saves to, or "".
func (s *Session) Path() string {
	return s.path
}

// IsDirty reports whether there are unsaved persisted edits.
func (s *Session) IsDirty() bool {
	return s.history.IsDirty()
}

// Loading reports whether a requested load has not been committed yet.
func (s *Session) Loading() bool {
	return s.loading
}

// Submit applies cmd through the history.
func (s *Session) Submit(cmd history.Command) error {
	if s.loading {
		return ErrLoadInFlight
	}
	s.history.Submit(cmd)
	return nil
}

// Undo reverts the most recent command. It does nothing while a load is
// pending.
func (s *Session) Undo() bool {
	if s.loading {
		return false
	}
	return s.history.Undo()
}

// Redo reapplies the most recently undone command. It does nothing while a
// load is pending.
func (s *Session) Redo() bool {
	if s.loading {
		return false
	}
	return s.history.Redo()
}

// Open loads path synchronously, superseding any pending load. The path is
// adopted even when it could not be read, so a later Save creates it.
func (s *Session) Open(path string) error {
	s.cancelLoad()
	s.generation++

	data, err := s.prefs.Load(path)
	s.history.Reset()
	s.setPath(path)
	s.haveHash = false
	if err == nil {
		s.remember(data)
	}
	return opError("open", path, err)
}

// Save writes the preferences to the session's file. The session becomes
// clean only when the write succeeded.
func (s *Session) Save() error {
	if s.path == "" {
		return opError("save", "", ErrNoPath)
	}
	if err := s.saveTo(s.path); err != nil {
		return opError("save", s.path, err)
	}
	s.history.MarkClean()
	return nil
}

// SaveAs writes the preferences to path and makes it the session's file.
// On success the history starts over.
func (s *Session) SaveAs(path string) error {
	if err := s.saveTo(path); err != nil {
		return opError("save as", path, err)
	}
	s.setPath(path)
	s.history.Reset()
	return nil
}

func (s *Session) saveTo(path string) error {
	if s.loading {
		return ErrLoadInFlight
	}
	if s.cancel != nil {
		// A pending reload would overwrite what is being saved.
		s.cancelLoad()
		s.generation++
	}
	data, err := s.prefs.Save(path)
	if err != nil {
		return err
	}
	s.remember(data)
	return nil
}

// NewDefaults discards the current state, pending loads and file, leaving
// fresh default preferences.
func (s *Session) NewDefaults() {
	s.cancelLoad()
	s.generation++
	s.prefs.Apply(prefs.DefaultFile())
	s.history.Reset()
	s.setPath("")
	s.haveHash = false
}

// Close stops background work and removes the session's subscriptions.
func (s *Session) Close() error {
	s.cancelLoad()
	s.subs.UnsubscribeAll()
	s.prefs.Close()
	if s.watcher != nil {
		w := s.watcher
		s.watcher = nil
		return w.Close()
	}
	return nil
}

func (s *Session) remember(data []byte) {
	s.savedHash = xxh3.Hash(data)
	s.haveHash = true
}

func (s *Session) setPath(path string) {
	if path == s.path {
		return
	}
	if s.watcher != nil && s.path != "" {
		if err := s.watcher.Unwatch(s.path); err != nil {
			s.logger.Debug("unwatching previous preferences file", zap.String("path", s.path), zap.Error(err))
		}
	}
	s.path = path
	if s.watcher != nil && path != "" {
		if err := s.watcher.Watch(path); err != nil {
			s.logger.Warn("cannot watch preferences file", zap.String("path", path), zap.Error(err))
		}
	}
}
