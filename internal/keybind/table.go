package keybind

import (
	"sort"

	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/notify"
)

// Table maps every action to its bound chords. Change notifications are
// keyed by action and carry the previous chords.
//
// Table is not safe for concurrent use.
type Table struct {
	bindings [actionCount][]Chord
	events   *notify.Bus[*Table, Action]
	logger   *zap.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used when repairing loaded bindings.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTable creates a table holding the default bindings.
func NewTable(opts ...Option) *Table {
	t := &Table{
		events: notify.New[*Table, Action](),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	for a := Action(0); a < actionCount; a++ {
		t.bindings[a] = cloneChords(descriptors[a].Defaults)
	}
	return t
}

// Events returns the per-action change bus.
func (t *Table) Events() *notify.Bus[*Table, Action] {
	return t.events
}

// Get returns a copy of the chords bound to a.
func (t *Table) Get(a Action) []Chord {
	if !a.Valid() {
		return nil
	}
	return cloneChords(t.bindings[a])
}

// Set binds a to chords, replacing its previous binding. An empty list
// leaves the action unbound.
func (t *Table) Set(a Action, chords []Chord) {
	if !a.Valid() || equalChords(t.bindings[a], chords) {
		return
	}
	old := t.bindings[a]
	t.bindings[a] = cloneChords(chords)
	t.events.Notify(a, t, old)
}

// Reset restores the default binding of a.
func (t *Table) Reset(a Action) {
	if a.Valid() {
		t.Set(a, descriptors[a].Defaults)
	}
}

// ResetAll restores every default binding.
func (t *Table) ResetAll() {
	for a := Action(0); a < actionCount; a++ {
		t.Reset(a)
	}
}

// IsDefault reports whether a has its default binding.
func (t *Table) IsDefault(a Action) bool {
	return a.Valid() && equalChords(t.bindings[a], descriptors[a].Defaults)
}

// Lookup returns the actions bound to c.
func (t *Table) Lookup(c Chord) []Action {
	var out []Action
	for a := Action(0); a < actionCount; a++ {
		for _, bound := range t.bindings[a] {
			if bound == c {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Conflict is a chord bound to more than one action.
type Conflict struct {
	Chord   Chord
	Actions []Action
}

// Conflicts returns every chord bound to more than one action, ordered by
// chord text.
func (t *Table) Conflicts() []Conflict {
	byChord := make(map[Chord][]Action)
	for a := Action(0); a < actionCount; a++ {
		for _, c := range t.bindings[a] {
			byChord[c] = append(byChord[c], a)
		}
	}

	var out []Conflict
	for c, actions := range byChord {
		if len(actions) > 1 {
			out = append(out, Conflict{Chord: c, Actions: actions})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Chord.String() < out[j].Chord.String()
	})
	return out
}

// Assign copies every binding of src through Set.
func (t *Table) Assign(src *Table) {
	for a := Action(0); a < actionCount; a++ {
		t.Set(a, src.bindings[a])
	}
}

// Equal reports whether both tables bind the same chords.
func (t *Table) Equal(other *Table) bool {
	for a := Action(0); a < actionCount; a++ {
		if !equalChords(t.bindings[a], other.bindings[a]) {
			return false
		}
	}
	return true
}

// Export returns the bindings keyed by persisted action name.
func (t *Table) Export() map[string][]string {
	out := make(map[string][]string, actionCount)
	for a := Action(0); a < actionCount; a++ {
		specs := make([]string, len(t.bindings[a]))
		for i, c := range t.bindings[a] {
			specs[i] = c.String()
		}
		out[descriptors[a].Name] = specs
	}
	return out
}

// Load applies persisted bindings. Actions missing from raw keep their
// current binding. Unknown action names and unparseable chords are
// dropped with a warning.
func (t *Table) Load(raw map[string][]string) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a, ok := ActionByName(name)
		if !ok {
			t.logger.Warn("dropping binding for unknown action", zap.String("action", name))
			continue
		}

		specs := raw[name]
		parsed := make([]Chord, 0, len(specs))
		for _, spec := range specs {
			c, err := ParseChord(spec)
			if err != nil {
				t.logger.Warn("dropping unparseable key chord",
					zap.String("action", name),
					zap.String("chord", spec),
					zap.Error(err))
				continue
			}
			parsed = append(parsed, c)
		}
		t.Set(a, parsed)
	}
}

// Repair removes duplicate chords within each action and reports chords
// shared between actions. It returns the number of actions changed.
func (t *Table) Repair() int {
	changed := 0
	for a := Action(0); a < actionCount; a++ {
		deduped := dedupeChords(t.bindings[a])
		if len(deduped) != len(t.bindings[a]) {
			t.logger.Warn("removing duplicate key chords", zap.Stringer("action", a))
			t.Set(a, deduped)
			changed++
		}
	}

	for _, c := range t.Conflicts() {
		names := make([]string, len(c.Actions))
		for i, a := range c.Actions {
			names[i] = a.String()
		}
		t.logger.Warn("key chord bound to several actions",
			zap.Stringer("chord", c.Chord),
			zap.Strings("actions", names))
	}
	return changed
}

func cloneChords(c []Chord) []Chord {
	if c == nil {
		return []Chord{}
	}
	out := make([]Chord, len(c))
	copy(out, c)
	return out
}

func equalChords(a, b []Chord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupeChords(c []Chord) []Chord {
	seen := make(map[Chord]bool, len(c))
	out := make([]Chord, 0, len(c))
	for _, chord := range c {
		if seen[chord] {
			continue
		}
		seen[chord] = true
		out = append(out, chord)
	}
	return out
}
