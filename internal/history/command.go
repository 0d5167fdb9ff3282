package history

import (
	"fmt"
)

// Command represents a reversible change to editor state.
//
// Apply and Revert do not return errors: a command is only constructed when
// its preconditions hold, so a failure is a programming error.
type Command interface {
	// Apply performs the change.
	Apply()

	// Revert restores every value Apply changed.
	Revert()

	// Description returns a human-readable description of the command.
	Description() string

	// AffectsPersistedState reports whether the change is saved to disk.
	AffectsPersistedState() bool
}

// lifecycle guards the Applied/Reverted alternation of a command.
type lifecycle struct {
	applied bool
}

func (l *lifecycle) markApplied(description string) {
	if l.applied {
		panic(fmt.Sprintf("history: command %q applied twice", description))
	}
	l.applied = true
}

func (l *lifecycle) markReverted(description string) {
	if !l.applied {
		panic(fmt.Sprintf("history: command %q reverted while not applied", description))
	}
	l.applied = false
}

// SetFieldsCommand writes a fixed set of field changes.
type SetFieldsCommand struct {
	lifecycle
	description string
	persisted   bool
	changes     []FieldChange
}

// NewSetFields creates a command from field changes. Previous values were
// captured when each change was built.
func NewSetFields(description string, persisted bool, changes ...FieldChange) *SetFieldsCommand {
	return &SetFieldsCommand{
		description: description,
		persisted:   persisted,
		changes:     changes,
	}
}

// NewSetValue creates a command that sets a single value.
func NewSetValue[T comparable](description string, persisted bool, get func() T, set func(T), value T) *SetFieldsCommand {
	return NewSetFields(description, persisted, Change(description, get, set, value))
}

// Apply writes the new values in order.
func (c *SetFieldsCommand) Apply() {
	c.markApplied(c.description)
	for _, ch := range c.changes {
		ch.apply()
	}
}

// Revert writes the captured previous values in reverse order.
func (c *SetFieldsCommand) Revert() {
	c.markReverted(c.description)
	for i := len(c.changes) - 1; i >= 0; i-- {
		c.changes[i].revert()
	}
}

// Description returns a human-readable description.
func (c *SetFieldsCommand) Description() string {
	return c.description
}

// AffectsPersistedState reports whether the fields are saved to disk.
func (c *SetFieldsCommand) AffectsPersistedState() bool {
	return c.persisted
}

// IsNoop returns true if no field would change. Call sites use this to
// avoid submitting commands with no observable effect.
func (c *SetFieldsCommand) IsNoop() bool {
	for _, ch := range c.changes {
		if ch.Changed() {
			return false
		}
	}
	return true
}

// Fields returns the names of the fields this command writes.
func (c *SetFieldsCommand) Fields() []string {
	names := make([]string, len(c.changes))
	for i, ch := range c.changes {
		names[i] = ch.Name()
	}
	return names
}

// FuncCommand wraps a pair of closures. It is meant for commands whose
// state capture does not fit a field change, such as collection membership.
type FuncCommand struct {
	lifecycle
	description string
	persisted   bool
	apply       func()
	revert      func()
}

// NewFuncCommand creates a command from apply and revert closures.
func NewFuncCommand(description string, persisted bool, apply, revert func()) *FuncCommand {
	return &FuncCommand{
		description: description,
		persisted:   persisted,
		apply:       apply,
		revert:      revert,
	}
}

// Apply runs the apply closure.
func (c *FuncCommand) Apply() {
	c.markApplied(c.description)
	c.apply()
}

// Revert runs the revert closure.
func (c *FuncCommand) Revert() {
	c.markReverted(c.description)
	c.revert()
}

// Description returns a human-readable description.
func (c *FuncCommand) Description() string {
	return c.description
}

// AffectsPersistedState reports the fixed classification.
func (c *FuncCommand) AffectsPersistedState() bool {
	return c.persisted
}

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompoundCommand creates a new compound command.
func NewCompoundCommand(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{
		Name:     name,
		Commands: commands,
	}
}

// Apply runs all commands in order.
func (c *CompoundCommand) Apply() {
	for _, cmd := range c.Commands {
		cmd.Apply()
	}
}

// Revert reverses all commands in reverse order.
func (c *CompoundCommand) Revert() {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		c.Commands[i].Revert()
	}
}

// Description returns the compound command's name.
func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// AffectsPersistedState is true if any child command affects persisted state.
func (c *CompoundCommand) AffectsPersistedState() bool {
	for _, cmd := range c.Commands {
		if cmd.AffectsPersistedState() {
			return true
		}
	}
	return false
}

// Add adds a command to the compound command.
func (c *CompoundCommand) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound command has no commands.
func (c *CompoundCommand) IsEmpty() bool {
	return len(c.Commands) == 0
}
