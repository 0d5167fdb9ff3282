package configset

import (
	"bytes"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/stepforge/stepforge/internal/notify"
)

// Event identifies a Collection notification.
type Event int

const (
	// EventAdded fires after an entry joins the collection. Payload: *Entry[T].
	EventAdded Event = iota

	// EventRemoved fires after an entry is deleted. Payload: *Entry[T].
	EventRemoved

	// EventRenamed fires after an entry's display name changes. Payload: Rename.
	EventRenamed

	// EventDisplayChanged fires when the display pointer moves. Payload: ID (new, may be NilID).
	EventDisplayChanged

	// EventReseeded fires after built-ins are recreated.
	EventReseeded

	// EventPruned fires for each entry removed by validation. Payload: *Entry[T].
	EventPruned
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	case EventDisplayChanged:
		return "displayChanged"
	case EventReseeded:
		return "reseeded"
	case EventPruned:
		return "pruned"
	default:
		return "unknown"
	}
}

// Builtin declares a built-in preset.
type Builtin[T Payload[T]] struct {
	ID          ID
	Name        string
	Description string
	New         func() T
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger for load-time repairs.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Collection is a keyed set of entries with unique display names.
//
// Collection is not safe for concurrent use.
type Collection[T Payload[T]] struct {
	kind     string
	defaults func() T
	builtins []Builtin[T]
	// builtinOrder maps a built-in identity to its declared position.
	builtinOrder map[ID]int

	entries map[ID]*Entry[T]
	display ID

	sorted    []ID
	sortValid bool
	collator  *collate.Collator

	events *notify.Bus[*Collection[T], Event]
	logger *zap.Logger
}

// NewCollection creates a collection seeded with its built-ins. kind names
// the collection in logs and command descriptions; defaults creates the
// payload for new user entries.
func NewCollection[T Payload[T]](kind string, defaults func() T, builtins []Builtin[T], opts ...Option) *Collection[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Collection[T]{
		kind:         kind,
		defaults:     defaults,
		builtins:     builtins,
		builtinOrder: make(map[ID]int, len(builtins)),
		entries:      make(map[ID]*Entry[T]),
		collator:     collate.New(language.English),
		events:       notify.New[*Collection[T], Event](),
		logger:       o.logger.With(zap.String("collection", kind)),
	}
	for i, b := range builtins {
		c.builtinOrder[b.ID] = i
		c.entries[b.ID] = newEntry(b.ID, NormalizeName(b.Name), b.Description, b.New(), true)
	}
	return c
}

// Kind returns the collection's name.
func (c *Collection[T]) Kind() string {
	return c.kind
}

// Events returns the collection's notification bus.
func (c *Collection[T]) Events() *notify.Bus[*Collection[T], Event] {
	return c.events
}

// Builtins returns the declared built-ins.
func (c *Collection[T]) Builtins() []Builtin[T] {
	return c.builtins
}

// IsBuiltinID reports whether id is a well-known built-in identity.
func (c *Collection[T]) IsBuiltinID(id ID) bool {
	_, ok := c.builtinOrder[id]
	return ok
}

// DefaultPayload returns a new payload with default values.
func (c *Collection[T]) DefaultPayload() T {
	return c.defaults()
}

// Len returns the number of entries, built-ins included.
func (c *Collection[T]) Len() int {
	return len(c.entries)
}

// Get returns the entry with the given identity.
func (c *Collection[T]) Get(id ID) (*Entry[T], bool) {
	e, ok := c.entries[id]
	return e, ok
}

// FindByName returns the entry whose display name matches name.
func (c *Collection[T]) FindByName(name string) (*Entry[T], bool) {
	name = NormalizeName(name)
	for _, e := range c.entries {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// nameTaken reports whether another entry (not except) uses name.
func (c *Collection[T]) nameTaken(name string, except ID) bool {
	for id, e := range c.entries {
		if id != except && e.name == name {
			return true
		}
	}
	return false
}

// NameAvailable reports whether name is valid and unused.
func (c *Collection[T]) NameAvailable(name string) bool {
	name = NormalizeName(name)
	return name != "" && !c.nameTaken(name, NilID)
}

// UniqueName returns base if it is available, otherwise base with the
// smallest " (n)" suffix that is.
func (c *Collection[T]) UniqueName(base string) string {
	base = NormalizeName(base)
	if base == "" {
		base = "New Config"
	}
	if !c.nameTaken(base, NilID) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !c.nameTaken(candidate, NilID) {
			return candidate
		}
	}
}

// NewEntry creates a detached user entry with a fresh identity. It joins
// the collection through Add.
func (c *Collection[T]) NewEntry(name string, payload T) *Entry[T] {
	return newEntry(NewID(), NormalizeName(name), "", payload, false)
}

// Add inserts e. It returns false, leaving the collection unchanged, if the
// name is empty or collides with another entry, or if the identity is
// already present.
func (c *Collection[T]) Add(e *Entry[T]) bool {
	if e == nil || e.name == "" {
		return false
	}
	if _, exists := c.entries[e.id]; exists {
		return false
	}
	if c.nameTaken(e.name, NilID) {
		return false
	}

	c.entries[e.id] = e
	c.sortValid = false
	c.events.Notify(EventAdded, c, e)
	return true
}

// Insert adds an entry read from disk. A missing or duplicate identity is
// treated as a new entry and gets a fresh one; a colliding name is made
// unique. An entry stored under a built-in identity replaces the built-in
// until ReseedBuiltins runs.
func (c *Collection[T]) Insert(id ID, name, description string, payload T) *Entry[T] {
	name = NormalizeName(name)

	if c.IsBuiltinID(id) {
		if name == "" || c.nameTaken(name, id) {
			name = c.entries[id].name
		}
		e := newEntry(id, name, description, payload, true)
		c.entries[id] = e
		c.sortValid = false
		return e
	}

	if id == NilID {
		id = NewID()
	} else if _, exists := c.entries[id]; exists {
		c.logger.Warn("duplicate entry identity, assigning a new one",
			zap.String("id", id.String()), zap.String("name", name))
		id = NewID()
	}

	if name == "" || c.nameTaken(name, NilID) {
		unique := c.UniqueName(name)
		c.logger.Warn("entry name collides, renaming",
			zap.String("name", name), zap.String("renamed", unique))
		name = unique
	}

	e := newEntry(id, name, description, payload, false)
	c.entries[id] = e
	c.sortValid = false
	c.events.Notify(EventAdded, c, e)
	return e
}

// CanRename reports whether Rename(id, name) would succeed.
func (c *Collection[T]) CanRename(id ID, name string) bool {
	e, ok := c.entries[id]
	if !ok || e.builtin {
		return false
	}
	name = NormalizeName(name)
	return name != "" && !c.nameTaken(name, id)
}

// Rename changes an entry's display name. It returns false, leaving every
// name unchanged, if the entry is missing or built-in, or if the new name is
// empty or used by another entry.
func (c *Collection[T]) Rename(id ID, name string) bool {
	if !c.CanRename(id, name) {
		return false
	}
	e := c.entries[id]
	name = NormalizeName(name)
	if e.name == name {
		return true
	}

	r := e.setName(name)
	c.sortValid = false
	c.events.Notify(EventRenamed, c, r)
	return true
}

// Delete removes a user entry. Built-ins and unknown identities are refused.
// Deleting the displayed entry clears the display pointer.
func (c *Collection[T]) Delete(id ID) bool {
	e, ok := c.entries[id]
	if !ok || e.builtin {
		return false
	}
	c.remove(e)
	c.events.Notify(EventRemoved, c, e)
	return true
}

func (c *Collection[T]) remove(e *Entry[T]) {
	delete(c.entries, e.id)
	c.sortValid = false
	if c.display == e.id {
		c.SetDisplay(NilID)
	}
}

// Clone copies an entry's payload and description into a new user entry
// with a fresh identity.
func (c *Collection[T]) Clone(id ID, name string) (*Entry[T], bool) {
	src, ok := c.entries[id]
	if !ok || !c.NameAvailable(name) {
		return nil, false
	}
	e := c.NewEntry(name, src.payload.Clone())
	e.description = src.description
	if !c.Add(e) {
		return nil, false
	}
	return e, true
}

// ReseedBuiltins recreates every built-in from its defaults, discarding
// whatever was stored under its identity. A user entry squatting on a
// built-in name is renamed.
func (c *Collection[T]) ReseedBuiltins() {
	for _, b := range c.builtins {
		name := NormalizeName(b.Name)
		if squatter, ok := c.FindByName(name); ok && squatter.id != b.ID {
			unique := c.UniqueName(name)
			c.logger.Warn("user entry uses a built-in name, renaming",
				zap.String("name", name), zap.String("renamed", unique))
			r := squatter.setName(unique)
			c.events.Notify(EventRenamed, c, r)
		}
		c.entries[b.ID] = newEntry(b.ID, name, b.Description, b.New(), true)
	}
	c.sortValid = false
	c.events.Notify(EventReseeded, c, nil)
}

// Clear removes every user entry and the display pointer, then reseeds the
// built-ins. It is used before loading a file into an existing collection.
func (c *Collection[T]) Clear() {
	for _, e := range c.Entries() {
		if e.builtin {
			continue
		}
		c.remove(e)
		c.events.Notify(EventRemoved, c, e)
	}
	c.SetDisplay(NilID)
	c.ReseedBuiltins()
}

// ValidateAndPrune removes every user entry whose payload fails validation
// and returns how many were removed. Built-ins are reported but kept.
func (c *Collection[T]) ValidateAndPrune() int {
	pruned := 0
	for _, id := range c.Sorted() {
		e := c.entries[id]
		err := e.payload.Validate()
		if err == nil {
			continue
		}
		if e.builtin {
			c.logger.Error("built-in entry failed validation",
				zap.String("name", e.name), zap.Error(err))
			continue
		}

		c.logger.Warn("removing invalid entry",
			zap.String("id", e.id.String()),
			zap.String("name", e.name),
			zap.Error(err))
		c.remove(e)
		c.events.Notify(EventPruned, c, e)
		pruned++
	}
	return pruned
}

// Display returns the identity of the entry shown in the edit surface.
func (c *Collection[T]) Display() (ID, bool) {
	return c.display, c.display != NilID
}

// SetDisplay moves the display pointer. It returns false if id is neither
// NilID nor a member.
func (c *Collection[T]) SetDisplay(id ID) bool {
	if id != NilID {
		if _, ok := c.entries[id]; !ok {
			return false
		}
	}
	if c.display == id {
		return true
	}
	c.display = id
	c.events.Notify(EventDisplayChanged, c, id)
	return true
}

// ClearDisplay clears the display pointer.
func (c *Collection[T]) ClearDisplay() {
	c.SetDisplay(NilID)
}

// Sorted returns identities in display order.
func (c *Collection[T]) Sorted() []ID {
	if !c.sortValid {
		c.resort()
	}
	out := make([]ID, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// Entries returns the entries in display order.
func (c *Collection[T]) Entries() []*Entry[T] {
	ids := c.Sorted()
	out := make([]*Entry[T], len(ids))
	for i, id := range ids {
		out[i] = c.entries[id]
	}
	return out
}

// Names returns the display names in display order.
func (c *Collection[T]) Names() []string {
	entries := c.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.name
	}
	return out
}

func (c *Collection[T]) resort() {
	ids := make([]ID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := c.entries[ids[i]], c.entries[ids[j]]
		ai, aBuiltin := c.builtinOrder[a.id]
		bi, bBuiltin := c.builtinOrder[b.id]
		if aBuiltin != bBuiltin {
			return aBuiltin
		}
		if aBuiltin {
			return ai < bi
		}
		if cmp := c.collator.CompareString(a.name, b.name); cmp != 0 {
			return cmp < 0
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return bytes.Compare(a.id[:], b.id[:]) < 0
	})

	c.sorted = ids
	c.sortValid = true
}
