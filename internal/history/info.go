package history

import "time"

// EntryInfo provides read-only info about a history entry.
// Used for displaying the undo/redo menus.
type EntryInfo struct {
	Description string    // Human-readable description
	Timestamp   time.Time // When the command was first submitted
	Persisted   bool      // Whether the command affects persisted state
}

func (e *undoEntry) info() EntryInfo {
	return EntryInfo{
		Description: e.command.Description(),
		Timestamp:   e.timestamp,
		Persisted:   e.command.AffectsPersistedState(),
	}
}

func entryInfos(stack []*undoEntry) []EntryInfo {
	result := make([]EntryInfo, len(stack))
	for i, entry := range stack {
		result[i] = entry.info()
	}
	return result
}
