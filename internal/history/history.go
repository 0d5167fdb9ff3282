package history

import (
	"time"

	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/notify"
)

// DefaultMaxDepth is used when a non-positive depth is requested.
const DefaultMaxDepth = 1024

// Event identifies a History notification.
type Event int

const (
	// EventSubmitted fires after a command is applied and pushed. Payload: Command.
	EventSubmitted Event = iota

	// EventUndone fires after a command is reverted. Payload: Command.
	EventUndone

	// EventRedone fires after a command is re-applied. Payload: Command.
	EventRedone

	// EventDirtyChanged fires when IsDirty flips. Payload: bool.
	EventDirtyChanged

	// EventCleared fires after Reset.
	EventCleared

	// EventEvicted fires when old entries are dropped by the depth limit. Payload: int.
	EventEvicted
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventSubmitted:
		return "submitted"
	case EventUndone:
		return "undone"
	case EventRedone:
		return "redone"
	case EventDirtyChanged:
		return "dirtyChanged"
	case EventCleared:
		return "cleared"
	case EventEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// undoEntry wraps a command with metadata.
type undoEntry struct {
	command   Command
	timestamp time.Time
}

// History manages the applied and redo stacks of an editing session.
//
// History is not safe for concurrent use; it belongs to the main loop.
type History struct {
	undoStack []*undoEntry
	redoStack []*undoEntry

	// Grouping state
	grouping  bool
	groupName string
	groupCmds []Command

	maxDepth int

	// dropped counts evictions and resets; checkpoints taken before a drop
	// may no longer be reachable.
	dropped uint64

	// savePoint is the undo depth at the last MarkClean. lostSave records
	// that persisted commands between the save point and the current
	// position were discarded, so the saved state is no longer reachable.
	savePoint int
	lostSave  bool
	dirty     bool

	events *notify.Bus[*History, Event]
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHistory creates a new history manager.
func NewHistory(maxDepth int, opts ...Option) *History {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	h := &History{
		maxDepth: maxDepth,
		events:   notify.New[*History, Event](),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Events returns the history's notification bus.
func (h *History) Events() *notify.Bus[*History, Event] {
	return h.events
}

// Submit applies cmd and pushes it onto the undo stack, clearing the redo
// stack. Inside a group the command is applied and collected instead.
func (h *History) Submit(cmd Command) {
	cmd.Apply()

	if h.grouping {
		h.groupCmds = append(h.groupCmds, cmd)
		h.updateDirty()
		return
	}

	h.push(cmd)
	h.logger.Debug("command submitted",
		zap.String("command", cmd.Description()),
		zap.Bool("persisted", cmd.AffectsPersistedState()),
		zap.Int("depth", len(h.undoStack)))
	h.updateDirty()
	h.events.Notify(EventSubmitted, h, cmd)
}

// push adds an already applied command.
func (h *History) push(cmd Command) {
	h.dropRedo()
	h.undoStack = append(h.undoStack, &undoEntry{
		command:   cmd,
		timestamp: h.now(),
	})
	h.evict()
}

// dropRedo discards the redo stack. If the save point was on the redo side
// it moves to the branch point.
func (h *History) dropRedo() {
	n := len(h.undoStack)
	if h.savePoint > n {
		for k := 0; k < h.savePoint-n && k < len(h.redoStack); k++ {
			if h.redoStack[len(h.redoStack)-1-k].command.AffectsPersistedState() {
				h.lostSave = true
				break
			}
		}
		h.savePoint = n
	}
	h.redoStack = nil
}

// evict drops the oldest entries beyond maxDepth without reverting them.
func (h *History) evict() {
	excess := len(h.undoStack) - h.maxDepth
	if excess <= 0 {
		return
	}

	if h.savePoint < excess {
		for _, e := range h.undoStack[h.savePoint:excess] {
			if e.command.AffectsPersistedState() {
				h.lostSave = true
				break
			}
		}
		h.savePoint = 0
	} else {
		h.savePoint -= excess
	}

	// Release references held by the shared backing array.
	for i := 0; i < excess; i++ {
		h.undoStack[i] = nil
	}
	h.undoStack = h.undoStack[excess:]
	h.dropped++

	h.logger.Debug("history entries evicted", zap.Int("count", excess))
	h.events.Notify(EventEvicted, h, excess)
}

// Undo reverts the most recent command. It returns false if there was
// nothing to undo. An open group is closed first.
func (h *History) Undo() bool {
	if h.grouping {
		h.EndGroup()
	}
	if len(h.undoStack) == 0 {
		return false
	}

	entry := h.undoStack[len(h.undoStack)-1]
	h.undoStack[len(h.undoStack)-1] = nil
	h.undoStack = h.undoStack[:len(h.undoStack)-1]

	entry.command.Revert()
	h.redoStack = append(h.redoStack, entry)

	h.logger.Debug("command undone", zap.String("command", entry.command.Description()))
	h.updateDirty()
	h.events.Notify(EventUndone, h, entry.command)
	return true
}

// Redo re-applies the most recently undone command. It returns false if
// there was nothing to redo.
func (h *History) Redo() bool {
	if h.grouping || len(h.redoStack) == 0 {
		return false
	}

	entry := h.redoStack[len(h.redoStack)-1]
	h.redoStack[len(h.redoStack)-1] = nil
	h.redoStack = h.redoStack[:len(h.redoStack)-1]

	entry.command.Apply()
	h.undoStack = append(h.undoStack, entry)

	h.logger.Debug("command redone", zap.String("command", entry.command.Description()))
	h.updateDirty()
	h.events.Notify(EventRedone, h, entry.command)
	return true
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0 || (h.grouping && len(h.groupCmds) > 0)
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	return !h.grouping && len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	return len(h.redoStack)
}

// SetMaxDepth changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are forgotten.
func (h *History) SetMaxDepth(depth int) {
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	h.maxDepth = depth
	h.evict()
	h.updateDirty()
}

// MaxDepth returns the maximum number of undo entries.
func (h *History) MaxDepth() int {
	return h.maxDepth
}

// IsDirty reports whether there are unsaved persisted changes.
func (h *History) IsDirty() bool {
	return h.dirty
}

// MarkClean records the current position as saved. Neither stack changes.
func (h *History) MarkClean() {
	h.savePoint = len(h.undoStack)
	h.lostSave = false
	h.updateDirty()
}

// Reset clears both stacks and the dirty flag. It is used after save-as
// and when a new document replaces the current one.
func (h *History) Reset() {
	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupName = ""
	h.groupCmds = nil
	h.savePoint = 0
	h.lostSave = false
	h.dropped++

	h.logger.Debug("history reset")
	h.events.Notify(EventCleared, h, nil)
	h.updateDirty()
}

// updateDirty recomputes the cached dirty flag and notifies on change.
func (h *History) updateDirty() {
	dirty := h.computeDirty()
	if dirty == h.dirty {
		return
	}
	h.dirty = dirty
	h.events.Notify(EventDirtyChanged, h, dirty)
}

func (h *History) computeDirty() bool {
	if h.lostSave {
		return true
	}
	for _, cmd := range h.groupCmds {
		if cmd.AffectsPersistedState() {
			return true
		}
	}

	n := len(h.undoStack)
	if n >= h.savePoint {
		for _, e := range h.undoStack[h.savePoint:] {
			if e.command.AffectsPersistedState() {
				return true
			}
		}
		return false
	}

	// The save point is ahead of us on the redo stack.
	for k := 0; k < h.savePoint-n && k < len(h.redoStack); k++ {
		if h.redoStack[len(h.redoStack)-1-k].command.AffectsPersistedState() {
			return true
		}
	}
	return false
}

// UndoInfo returns info about available undo operations, oldest first.
func (h *History) UndoInfo() []EntryInfo {
	return entryInfos(h.undoStack)
}

// RedoInfo returns info about available redo operations, oldest undone last.
func (h *History) RedoInfo() []EntryInfo {
	return entryInfos(h.redoStack)
}

// PeekUndo returns info about the next undo operation without removing it.
func (h *History) PeekUndo() (EntryInfo, bool) {
	if len(h.undoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns info about the next redo operation without removing it.
func (h *History) PeekRedo() (EntryInfo, bool) {
	if len(h.redoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}
