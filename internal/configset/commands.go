package configset

import (
	"errors"
	"fmt"

	"github.com/stepforge/stepforge/internal/history"
)

// Command constructors validate their preconditions against the current
// collection state and return ok=false when the edit would be rejected or
// would have no effect. A command that was constructed is always valid to
// submit immediately.

// EntryCommand is a command that introduces an entry into a collection.
type EntryCommand[T Payload[T]] struct {
	*history.FuncCommand
	entry *Entry[T]
}

// Entry returns the entry the command adds.
func (c *EntryCommand[T]) Entry() *Entry[T] {
	return c.entry
}

func mustAdd[T Payload[T]](c *Collection[T], e *Entry[T]) {
	if !c.Add(e) {
		panic(fmt.Sprintf("configset: cannot add %q to %s", e.name, c.kind))
	}
}

func mustDelete[T Payload[T]](c *Collection[T], id ID) {
	if !c.Delete(id) {
		panic(fmt.Sprintf("configset: cannot delete %s from %s", id, c.kind))
	}
}

// NewAddCommand creates a command that adds a user entry with default
// payload values. The entry is displayed after the add.
func NewAddCommand[T Payload[T]](c *Collection[T], name string) (*EntryCommand[T], bool) {
	if !c.NameAvailable(name) {
		return nil, false
	}
	e := c.NewEntry(name, c.defaults())
	return newEntryCommand(c, e, fmt.Sprintf("Add %s %q", c.kind, e.name)), true
}

// NewCloneCommand creates a command that copies an entry into a new user
// entry named name.
func NewCloneCommand[T Payload[T]](c *Collection[T], id ID, name string) (*EntryCommand[T], bool) {
	src, ok := c.Get(id)
	if !ok || !c.NameAvailable(name) {
		return nil, false
	}
	e := c.NewEntry(name, src.payload.Clone())
	e.description = src.description
	return newEntryCommand(c, e, fmt.Sprintf("Clone %s %q", c.kind, src.name)), true
}

func newEntryCommand[T Payload[T]](c *Collection[T], e *Entry[T], description string) *EntryCommand[T] {
	var prevDisplay ID
	apply := func() {
		prevDisplay = c.display
		mustAdd(c, e)
		c.SetDisplay(e.id)
	}
	revert := func() {
		mustDelete(c, e.id)
		c.SetDisplay(prevDisplay)
	}
	return &EntryCommand[T]{
		FuncCommand: history.NewFuncCommand(description, true, apply, revert),
		entry:       e,
	}
}

// NewDeleteCommand creates a command that deletes a user entry. Built-ins
// are refused.
func NewDeleteCommand[T Payload[T]](c *Collection[T], id ID) (*history.FuncCommand, bool) {
	e, ok := c.Get(id)
	if !ok || e.builtin {
		return nil, false
	}

	var wasDisplayed bool
	apply := func() {
		wasDisplayed = c.display == id
		mustDelete(c, id)
	}
	revert := func() {
		mustAdd(c, e)
		if wasDisplayed {
			c.SetDisplay(id)
		}
	}
	return history.NewFuncCommand(fmt.Sprintf("Delete %s %q", c.kind, e.name), true, apply, revert), true
}

// NewRenameCommand creates a command that renames a user entry.
func NewRenameCommand[T Payload[T]](c *Collection[T], id ID, name string) (*history.SetFieldsCommand, bool) {
	if !c.CanRename(id, name) {
		return nil, false
	}
	e, _ := c.Get(id)
	name = NormalizeName(name)
	if e.name == name {
		return nil, false
	}

	change := history.Change("name", e.Name, func(n string) {
		if !c.Rename(id, n) {
			panic(fmt.Sprintf("configset: cannot rename %s to %q", id, n))
		}
	}, name)
	return history.NewSetFields(fmt.Sprintf("Rename %s %q to %q", c.kind, e.name, name), true, change), true
}

// NewSetDescriptionCommand creates a command that changes an entry's
// description.
func NewSetDescriptionCommand[T Payload[T]](c *Collection[T], id ID, description string) (*history.SetFieldsCommand, bool) {
	e, ok := c.Get(id)
	if !ok || e.builtin || e.description == description {
		return nil, false
	}
	cmd := history.NewSetValue(fmt.Sprintf("Set %s %q description", c.kind, e.name), true,
		e.Description, e.SetDescription, description)
	return cmd, true
}

// NewRestoreDefaultsCommand creates a command that resets a user entry's
// payload to the collection defaults. It is refused when the payload
// already equals the defaults.
func NewRestoreDefaultsCommand[T Payload[T]](c *Collection[T], id ID) (*history.FuncCommand, bool) {
	e, ok := c.Get(id)
	if !ok || e.builtin {
		return nil, false
	}
	defaults := c.defaults()
	if e.payload.Equal(defaults) {
		return nil, false
	}

	previous := e.payload.Clone()
	apply := func() { e.payload.Assign(defaults) }
	revert := func() { e.payload.Assign(previous) }
	return history.NewFuncCommand(fmt.Sprintf("Restore %s %q defaults", c.kind, e.name), true, apply, revert), true
}

// NewSetDisplayCommand creates a command that moves the display pointer.
// The pointer is not saved.
func NewSetDisplayCommand[T Payload[T]](c *Collection[T], id ID) (*history.SetFieldsCommand, bool) {
	if id != NilID {
		if _, ok := c.Get(id); !ok {
			return nil, false
		}
	}
	if c.display == id {
		return nil, false
	}
	get := func() ID { return c.display }
	set := func(v ID) { c.SetDisplay(v) }
	return history.NewSetValue(fmt.Sprintf("Show %s", c.kind), false, get, set, id), true
}

// ErrInvalidPayload indicates an edit that would leave a payload failing
// its own validation.
var ErrInvalidPayload = errors.New("invalid payload")

// EditPayload wraps payload field changes for a user entry into a command.
// bind builds the changes against the payload it is given; it is called
// once on a scratch clone, which must validate after the changes are
// applied, and once on the live payload. Built-ins and edits that change
// nothing are refused with ok false.
func EditPayload[T Payload[T]](c *Collection[T], id ID, description string, bind func(T) ([]history.FieldChange, error)) (*history.SetFieldsCommand, bool, error) {
	e, ok := c.Get(id)
	if !ok || e.builtin {
		return nil, false, nil
	}

	scratch := e.payload.Clone()
	trial, err := bind(scratch)
	if err != nil {
		return nil, false, err
	}
	history.NewSetFields(description, false, trial...).Apply()
	if err := scratch.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	changes, err := bind(e.payload)
	if err != nil {
		return nil, false, err
	}
	if len(changes) == 0 {
		return nil, false, nil
	}
	cmd := history.NewSetFields(description, true, changes...)
	if cmd.IsNoop() {
		return nil, false, nil
	}
	return cmd, true, nil
}
