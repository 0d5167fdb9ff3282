package history

// BeginGroup starts a command group.
// Commands submitted while grouping are combined into a single undo unit.
func (h *History) BeginGroup(name string) {
	if h.grouping {
		// Already grouping, ignore nested calls
		return
	}

	h.grouping = true
	h.groupName = name
	h.groupCmds = nil
}

// EndGroup finishes a command group.
// All commands since BeginGroup are combined into a CompoundCommand.
func (h *History) EndGroup() {
	if !h.grouping {
		return
	}

	h.grouping = false
	cmds := h.groupCmds
	h.groupCmds = nil

	if len(cmds) == 0 {
		return
	}

	compound := &CompoundCommand{
		Name:     h.groupName,
		Commands: cmds,
	}

	h.push(compound)
	h.updateDirty()
	h.events.Notify(EventSubmitted, h, compound)
}

// CancelGroup ends a group by reverting the commands submitted in it.
// Nothing is added to the history.
func (h *History) CancelGroup() {
	if !h.grouping {
		return
	}

	for i := len(h.groupCmds) - 1; i >= 0; i-- {
		h.groupCmds[i].Revert()
	}
	h.grouping = false
	h.groupCmds = nil
	h.updateDirty()
}

// IsGrouping returns true if currently in a command group.
func (h *History) IsGrouping() bool {
	return h.grouping
}

// GroupScope is an open group that is closed by End or Cancel, typically
// deferred:
//
//	scope := h.GroupScope("Restore defaults")
//	defer scope.End()
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope begins a group and returns its scope. Inside an open group
// the scope is inert, leaving the outer group open.
func (h *History) GroupScope(name string) *GroupScope {
	scope := &GroupScope{history: h, active: !h.grouping}
	h.BeginGroup(name)
	return scope
}

// End closes the group. Later calls do nothing.
func (g *GroupScope) End() {
	if !g.active {
		return
	}
	g.active = false
	g.history.EndGroup()
}

// Cancel closes the group, reverting its commands. Later calls do nothing.
func (g *GroupScope) Cancel() {
	if !g.active {
		return
	}
	g.active = false
	g.history.CancelGroup()
}

// Transaction runs fn inside a group named name. When fn fails, the
// commands it submitted are reverted and its error returned.
func (h *History) Transaction(name string, fn func() error) error {
	scope := h.GroupScope(name)
	if err := fn(); err != nil {
		scope.Cancel()
		return err
	}
	scope.End()
	return nil
}

// SubmitGrouped applies cmds as one undo step. A single command is
// submitted as is.
func (h *History) SubmitGrouped(name string, cmds ...Command) {
	switch len(cmds) {
	case 0:
		return
	case 1:
		h.Submit(cmds[0])
		return
	}

	scope := h.GroupScope(name)
	defer scope.End()
	for _, cmd := range cmds {
		h.Submit(cmd)
	}
}

// Checkpoint marks a history position by the command on top of the undo
// stack when it was taken.
type Checkpoint struct {
	top     *undoEntry
	dropped uint64
}

// CreateCheckpoint marks the current position.
func (h *History) CreateCheckpoint() Checkpoint {
	return Checkpoint{top: top(h.undoStack), dropped: h.dropped}
}

func top(stack []*undoEntry) *undoEntry {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

func indexOf(stack []*undoEntry, e *undoEntry) int {
	for i, x := range stack {
		if x == e {
			return i
		}
	}
	return -1
}

// UndoToCheckpoint undoes commands until the history is back at cp. It
// does nothing and returns false when cp is not behind the current
// position or its command has been evicted.
func (h *History) UndoToCheckpoint(cp Checkpoint) bool {
	if h.grouping {
		h.EndGroup()
	}
	switch {
	case cp.top == nil && cp.dropped != h.dropped:
		return false
	case cp.top != nil && indexOf(h.undoStack, cp.top) < 0:
		return false
	}
	for top(h.undoStack) != cp.top {
		if !h.Undo() {
			return false
		}
	}
	return true
}

// RedoToCheckpoint redoes commands until the history is back at cp. It
// does nothing and returns false when cp is not ahead of the current
// position.
func (h *History) RedoToCheckpoint(cp Checkpoint) bool {
	if h.grouping {
		return false
	}
	if top(h.undoStack) == cp.top {
		return cp.top != nil || cp.dropped == h.dropped
	}
	if cp.top == nil || indexOf(h.redoStack, cp.top) < 0 {
		return false
	}
	for top(h.undoStack) != cp.top {
		if !h.Redo() {
			return false
		}
	}
	return true
}
