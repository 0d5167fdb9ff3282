// Package history provides undo/redo for every user-visible edit to editor
// state.
//
// The history system uses the Command pattern: UI code never mutates state
// directly, it builds a Command and submits it to a History, which applies
// it immediately and keeps it for undo.
//
// # Commands
//
// A Command applies and reverts a change and carries a description for the
// undo menu plus a fixed AffectsPersistedState classification. Most commands
// are built from field changes:
//
//	cmd := history.NewSetValue("Set undo history size", true,
//	    root.UndoHistorySize, root.SetUndoHistorySize, 512)
//	if !cmd.IsNoop() {
//	    h.Submit(cmd)
//	}
//
// Each field change snapshots the current value when it is constructed and
// writes through the same setter on apply and revert, so a revert fires the
// same change notifications as a forward edit.
//
// # History Stack
//
//	h := history.NewHistory(1024)
//	h.Submit(cmd)
//	h.Undo()
//	h.Redo()
//
// Submitting a command clears the redo stack. The undo stack is bounded by
// MaxDepth; the oldest entries are forgotten (never reverted) when the limit
// is exceeded.
//
// # Dirty Tracking
//
// IsDirty reports whether a command that affects persisted state lies
// between the current position and the last MarkClean. Undoing back to the
// save point makes the history clean again.
//
// # Command Grouping
//
//	h.BeginGroup("Reset key bindings")
//	// ... multiple submits ...
//	h.EndGroup()
//
// All commands submitted inside the group undo together.
package history
