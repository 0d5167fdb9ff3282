package watcher

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// debouncer coalesces events per path and delivers each path's merged
// event once no new event arrived for delay.
type debouncer struct {
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingEvent
	out     chan Event
	closed  bool
}

// pendingEvent tracks a debounced event.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

func newDebouncer(delay time.Duration, out chan Event, logger *zap.Logger) *debouncer {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &debouncer{
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*pendingEvent),
		out:     out,
	}
}

// add schedules event, merging it into a pending event for the same path.
func (d *debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, exists := d.pending[event.Path]; exists {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(d.delay, func() {
		d.fire(event.Path)
	})
	d.pending[event.Path] = p
}

// fire sends a pending event and removes it from the map. The send never
// blocks, so it happens under the lock and cannot race with stop.
func (d *debouncer) fire(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, exists := d.pending[path]
	if !exists || d.closed {
		return
	}
	delete(d.pending, path)

	select {
	case d.out <- p.event:
	default:
		d.logger.Debug("watch event channel full, dropping event", zap.String("path", path))
	}
}

// flush immediately fires all pending events.
func (d *debouncer) flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.fire(path)
	}
}

// pendingCount returns the number of pending events.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// stop cancels all pending timers. Events not yet fired are discarded.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
