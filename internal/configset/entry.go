package configset

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/stepforge/stepforge/internal/notify"
)

// Payload is the domain data carried by an entry. T is the payload's own
// pointer type.
type Payload[T any] interface {
	// Clone returns a deep copy.
	Clone() T

	// Assign copies every field of src into the receiver through its
	// setters, so field change notifications fire.
	Assign(src T)

	// Equal reports whether all fields match.
	Equal(other T) bool

	// Validate checks domain constraints.
	Validate() error
}

// EntryEvent identifies an Entry notification.
type EntryEvent int

const (
	// EntryRenamed fires after the display name changes. Payload: Rename.
	EntryRenamed EntryEvent = iota

	// EntryDescriptionChanged fires after the description changes. Payload: string (old).
	EntryDescriptionChanged
)

// String returns the event name.
func (e EntryEvent) String() string {
	switch e {
	case EntryRenamed:
		return "renamed"
	case EntryDescriptionChanged:
		return "descriptionChanged"
	default:
		return "unknown"
	}
}

// Rename is the payload of rename notifications.
type Rename struct {
	ID      ID
	OldName string
	NewName string
}

// Entry is a named configuration.
type Entry[T Payload[T]] struct {
	id          ID
	name        string
	description string
	payload     T
	builtin     bool

	events *notify.Bus[*Entry[T], EntryEvent]
}

func newEntry[T Payload[T]](id ID, name, description string, payload T, builtin bool) *Entry[T] {
	return &Entry[T]{
		id:          id,
		name:        name,
		description: description,
		payload:     payload,
		builtin:     builtin,
		events:      notify.New[*Entry[T], EntryEvent](),
	}
}

// ID returns the entry's permanent identity.
func (e *Entry[T]) ID() ID {
	return e.id
}

// Name returns the display name.
func (e *Entry[T]) Name() string {
	return e.name
}

// Description returns the description.
func (e *Entry[T]) Description() string {
	return e.description
}

// SetDescription changes the description.
func (e *Entry[T]) SetDescription(description string) {
	if description == e.description {
		return
	}
	old := e.description
	e.description = description
	e.events.Notify(EntryDescriptionChanged, e, old)
}

// Payload returns the live payload.
func (e *Entry[T]) Payload() T {
	return e.payload
}

// IsBuiltin reports whether the entry is a built-in preset.
func (e *Entry[T]) IsBuiltin() bool {
	return e.builtin
}

// Events returns the entry's notification bus.
func (e *Entry[T]) Events() *notify.Bus[*Entry[T], EntryEvent] {
	return e.events
}

// setName is only called by the owning collection, which keeps the sort
// cache and collision rules consistent.
func (e *Entry[T]) setName(name string) Rename {
	r := Rename{ID: e.id, OldName: e.name, NewName: name}
	e.name = name
	e.events.Notify(EntryRenamed, e, r)
	return r
}

// NormalizeName trims surrounding space and applies Unicode NFC, so that
// visually identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
