package history

// FieldChange is one captured field write. The previous value is read when
// the change is constructed; apply writes the new value and revert writes
// the previous one back through the same setter.
type FieldChange interface {
	// Name identifies the field for logging.
	Name() string

	// Changed reports whether the new value differs from the captured one.
	Changed() bool

	apply()
	revert()
}

type valueChange[T any] struct {
	name  string
	set   func(T)
	old   T
	new   T
	equal func(a, b T) bool
}

func (c *valueChange[T]) Name() string  { return c.name }
func (c *valueChange[T]) Changed() bool { return !c.equal(c.old, c.new) }
func (c *valueChange[T]) apply()        { c.set(c.new) }
func (c *valueChange[T]) revert()       { c.set(c.old) }

// Change captures get() as the previous value of a comparable field.
func Change[T comparable](name string, get func() T, set func(T), value T) FieldChange {
	return &valueChange[T]{
		name:  name,
		set:   set,
		old:   get(),
		new:   value,
		equal: func(a, b T) bool { return a == b },
	}
}

// ChangeFunc is Change for values that are not comparable with ==, such as
// slices. get must return a value that does not alias live state.
func ChangeFunc[T any](name string, get func() T, set func(T), value T, equal func(a, b T) bool) FieldChange {
	return &valueChange[T]{
		name:  name,
		set:   set,
		old:   get(),
		new:   value,
		equal: equal,
	}
}

// Accessor describes one editable field of an owner type. Accessors are
// declared once per field as package-level values, so the set of mutable
// fields is fixed at compile time.
type Accessor[O any, V comparable] struct {
	Name string
	Get  func(O) V
	Set  func(O, V)
}

// Change captures the field's current value on owner.
func (a Accessor[O, V]) Change(owner O, value V) FieldChange {
	return Change(a.Name,
		func() V { return a.Get(owner) },
		func(v V) { a.Set(owner, v) },
		value)
}

// Command builds a single-field command for owner.
func (a Accessor[O, V]) Command(description string, persisted bool, owner O, value V) *SetFieldsCommand {
	return NewSetFields(description, persisted, a.Change(owner, value))
}
