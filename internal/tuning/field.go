package tuning

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/multierr"

	"github.com/stepforge/stepforge/internal/history"
)

var (
	// ErrUnknownField indicates a field name that the payload does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidValue indicates a value that cannot be parsed for a field.
	ErrInvalidValue = errors.New("invalid value")

	// ErrOutOfRange indicates a value outside the field's allowed range.
	ErrOutOfRange = errors.New("value out of range")
)

// Field describes one payload field by its persisted name, for tools that
// edit payloads from text.
type Field[O any] struct {
	Name string

	// Format renders the current value.
	Format func(O) string

	// Parse builds a change that writes the value parsed from s.
	Parse func(owner O, s string) (history.FieldChange, error)
}

// Fields is an ordered field table.
type Fields[O any] []Field[O]

// Lookup returns the field with the given name.
func (fs Fields[O]) Lookup(name string) (Field[O], bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Field[O]{}, false
}

// Change parses s for the named field.
func (fs Fields[O]) Change(owner O, name, s string) (history.FieldChange, error) {
	f, ok := fs.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f.Parse(owner, s)
}

// Names returns the field names in table order.
func (fs Fields[O]) Names() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func intField[O any](a history.Accessor[O, int]) Field[O] {
	return Field[O]{
		Name:   a.Name,
		Format: func(o O) string { return strconv.Itoa(a.Get(o)) },
		Parse: func(o O, s string) (history.FieldChange, error) {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w for %s: %q", ErrInvalidValue, a.Name, s)
			}
			return a.Change(o, v), nil
		},
	}
}

func floatField[O any](a history.Accessor[O, float64]) Field[O] {
	return Field[O]{
		Name:   a.Name,
		Format: func(o O) string { return strconv.FormatFloat(a.Get(o), 'g', -1, 64) },
		Parse: func(o O, s string) (history.FieldChange, error) {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w for %s: %q", ErrInvalidValue, a.Name, s)
			}
			return a.Change(o, v), nil
		},
	}
}

func boolField[O any](a history.Accessor[O, bool]) Field[O] {
	return Field[O]{
		Name:   a.Name,
		Format: func(o O) string { return strconv.FormatBool(a.Get(o)) },
		Parse: func(o O, s string) (history.FieldChange, error) {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("%w for %s: %q", ErrInvalidValue, a.Name, s)
			}
			return a.Change(o, v), nil
		},
	}
}

func enumField[O any, E comparable](a history.Accessor[O, E], set *EnumSet[E]) Field[O] {
	return Field[O]{
		Name:   a.Name,
		Format: func(o O) string { return set.Name(a.Get(o)) },
		Parse: func(o O, s string) (history.FieldChange, error) {
			v, ok := set.Parse(s)
			if !ok {
				return nil, fmt.Errorf("%w for %s: %q (want one of %v)", ErrInvalidValue, a.Name, s, set.Names())
			}
			return a.Change(o, v), nil
		},
	}
}

// appendNonFinite appends an ErrInvalidValue for a NaN or infinite v.
func appendNonFinite(err error, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return multierr.Append(err, fmt.Errorf("%w: %s %g is not finite", ErrInvalidValue, name, v))
	}
	return err
}
