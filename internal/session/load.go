package session

import (
	"context"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/prefs"
	"github.com/stepforge/stepforge/internal/watcher"
)

// loadResult is the outcome of a background read. It carries no reference
// to live state, so it can cross goroutines.
type loadResult struct {
	generation uint64
	path       string
	file       *prefs.File
	data       []byte
	err        error

	// external marks reloads triggered by the watcher.
	external bool
}

// RequestLoad starts reading path in the background. A later request
// supersedes this one: only the most recently requested load is ever
// committed. Until it is committed by Poll or Wait, Submit and Save return
// ErrLoadInFlight.
func (s *Session) RequestLoad(ctx context.Context, path string) {
	s.startLoad(ctx, path, false)
	s.loading = true
}

func (s *Session) startLoad(ctx context.Context, path string, external bool) {
	s.cancelLoad()
	s.generation++

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	gen := s.generation
	fsys, logger, results := s.fs, s.logger, s.results
	go func() {
		f, data, err := prefs.ReadFile(fsys, path, logger)
		res := loadResult{
			generation: gen,
			path:       path,
			file:       f,
			data:       data,
			err:        err,
			external:   external,
		}
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) cancelLoad() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
}

// Poll commits a finished load and handles file watcher events without
// blocking. It reports whether the preferences were replaced.
func (s *Session) Poll() bool {
	committed := false
	for {
		select {
		case res := <-s.results:
			if s.commit(res) {
				committed = true
			}
		case ev, ok := <-s.watchEvents():
			if ok {
				s.onExternalChange(ev)
			}
		default:
			return committed
		}
	}
}

// Wait blocks until the pending requested load, if any, is committed, or
// ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	for s.loading {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-s.results:
			s.commit(res)
		}
	}
	return nil
}

func (s *Session) commit(res loadResult) bool {
	if res.generation != s.generation {
		s.logger.Debug("discarding superseded load", zap.String("path", res.path))
		return false
	}
	s.cancelLoad()

	if res.external {
		switch {
		case res.err != nil:
			s.logger.Warn("cannot reload preferences changed on disk",
				zap.String("path", res.path), zap.Error(res.err))
			return false
		case s.haveHash && xxh3.Hash(res.data) == s.savedHash:
			s.logger.Debug("preferences file unchanged", zap.String("path", res.path))
			return false
		case s.history.IsDirty():
			s.logger.Warn("preferences changed on disk, keeping unsaved edits", zap.String("path", res.path))
			return false
		}
	}

	err := s.prefs.ApplyResult(res.path, res.file, res.err)
	s.history.Reset()
	s.setPath(res.path)
	s.haveHash = false
	if err == nil {
		s.remember(res.data)
	}
	return true
}

// Watch starts reloading the session's file when another program changes
// it. Changes made while there are unsaved edits are ignored.
func (s *Session) Watch() error {
	if s.path == "" {
		return opError("watch", "", ErrNoPath)
	}
	if s.watcher != nil {
		return nil
	}

	w, err := watcher.New(s.watchOptions...)
	if err != nil {
		return opError("watch", s.path, err)
	}
	if err := w.Watch(s.path); err != nil {
		_ = w.Close()
		return opError("watch", s.path, err)
	}
	s.watcher = w
	return nil
}

func (s *Session) watchEvents() <-chan watcher.Event {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Events()
}

func (s *Session) onExternalChange(ev watcher.Event) {
	if s.loading {
		return
	}
	if !ev.Op.Has(watcher.OpCreate) && !ev.Op.Has(watcher.OpWrite) {
		s.logger.Warn("preferences file removed on disk", zap.String("path", ev.Path), zap.Stringer("op", ev.Op))
		return
	}
	s.logger.Debug("preferences file changed on disk", zap.String("path", ev.Path))
	s.startLoad(context.Background(), s.path, true)
}
