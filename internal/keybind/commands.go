package keybind

import (
	"fmt"

	"github.com/stepforge/stepforge/internal/history"
)

func bindingChange(t *Table, a Action, chords []Chord) history.FieldChange {
	return history.ChangeFunc(a.String(),
		func() []Chord { return t.Get(a) },
		func(c []Chord) { t.Set(a, c) },
		cloneChords(chords),
		equalChords)
}

// NewSetBindingCommand creates a command that binds a to chords. ok is
// false for an unknown action or an unchanged binding.
func NewSetBindingCommand(t *Table, a Action, chords []Chord) (*history.SetFieldsCommand, bool) {
	if !a.Valid() {
		return nil, false
	}
	cmd := history.NewSetFields(fmt.Sprintf("Bind %s", a), true, bindingChange(t, a, chords))
	if cmd.IsNoop() {
		return nil, false
	}
	return cmd, true
}

// NewResetBindingCommand creates a command that restores the default
// binding of a. ok is false when it is already the default.
func NewResetBindingCommand(t *Table, a Action) (*history.SetFieldsCommand, bool) {
	if !a.Valid() || t.IsDefault(a) {
		return nil, false
	}
	return history.NewSetFields(fmt.Sprintf("Reset %s binding", a), true,
		bindingChange(t, a, descriptors[a].Defaults)), true
}

// NewResetAllCommand creates a command that restores every default
// binding. ok is false when nothing differs from the defaults.
func NewResetAllCommand(t *Table) (*history.SetFieldsCommand, bool) {
	var changes []history.FieldChange
	for a := Action(0); a < actionCount; a++ {
		if !t.IsDefault(a) {
			changes = append(changes, bindingChange(t, a, descriptors[a].Defaults))
		}
	}
	if len(changes) == 0 {
		return nil, false
	}
	return history.NewSetFields("Reset all key bindings", true, changes...), true
}
