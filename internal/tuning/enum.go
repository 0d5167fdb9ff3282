package tuning

import (
	"go.uber.org/zap"
)

// EnumSet maps the values of a closed enum to their persisted names and
// holds the value substituted when a persisted name is not recognized.
type EnumSet[E comparable] struct {
	order  []E
	names  map[E]string
	values map[string]E
	def    E
}

// EnumValue pairs a value with its persisted name.
type EnumValue[E comparable] struct {
	Value E
	Name  string
}

// NewEnumSet registers values in declaration order with def as the
// fallback. Names are lowercase camel case.
func NewEnumSet[E comparable](def E, values ...EnumValue[E]) *EnumSet[E] {
	s := &EnumSet[E]{
		names:  make(map[E]string, len(values)),
		values: make(map[string]E, len(values)),
		def:    def,
	}
	for _, v := range values {
		s.order = append(s.order, v.Value)
		s.names[v.Value] = v.Name
		s.values[v.Name] = v.Value
	}
	return s
}

// Default returns the registered fallback.
func (s *EnumSet[E]) Default() E {
	return s.def
}

// Valid reports whether v is a registered value.
func (s *EnumSet[E]) Valid(v E) bool {
	_, ok := s.names[v]
	return ok
}

// Name returns the persisted name of v, or the empty string.
func (s *EnumSet[E]) Name(v E) string {
	return s.names[v]
}

// Names returns every name in declaration order.
func (s *EnumSet[E]) Names() []string {
	out := make([]string, len(s.order))
	for i, v := range s.order {
		out[i] = s.names[v]
	}
	return out
}

// Parse looks up a persisted name.
func (s *EnumSet[E]) Parse(name string) (E, bool) {
	v, ok := s.values[name]
	return v, ok
}

// ParseOr parses name, substituting the default for an unrecognized name
// and logging a warning that identifies field.
func (s *EnumSet[E]) ParseOr(name string, logger *zap.Logger, field string) E {
	if v, ok := s.values[name]; ok {
		return v
	}
	if logger != nil {
		logger.Warn("unrecognized enum value, using default",
			zap.String("field", field),
			zap.String("value", name),
			zap.String("default", s.names[s.def]))
	}
	return s.def
}

// BracketParsingMethod selects how aggressively brackets are used when a
// chart is expressed.
type BracketParsingMethod int

const (
	BracketParsingAggressive BracketParsingMethod = iota
	BracketParsingBalanced
	BracketParsingNoBrackets
)

// BracketParsingMethods is the registry of BracketParsingMethod names.
var BracketParsingMethods = NewEnumSet(BracketParsingBalanced,
	EnumValue[BracketParsingMethod]{BracketParsingAggressive, "aggressive"},
	EnumValue[BracketParsingMethod]{BracketParsingBalanced, "balanced"},
	EnumValue[BracketParsingMethod]{BracketParsingNoBrackets, "noBrackets"},
)

func (m BracketParsingMethod) String() string {
	if name := BracketParsingMethods.Name(m); name != "" {
		return name
	}
	return "unknown"
}

// BracketParsingDetermination selects whether the method is chosen per
// chart or fixed to the configured default.
type BracketParsingDetermination int

const (
	DetermineDynamically BracketParsingDetermination = iota
	DetermineUseDefault
)

// BracketParsingDeterminations is the registry of
// BracketParsingDetermination names.
var BracketParsingDeterminations = NewEnumSet(DetermineDynamically,
	EnumValue[BracketParsingDetermination]{DetermineDynamically, "chooseMethodDynamically"},
	EnumValue[BracketParsingDetermination]{DetermineUseDefault, "useDefaultMethod"},
)

func (d BracketParsingDetermination) String() string {
	if name := BracketParsingDeterminations.Name(d); name != "" {
		return name
	}
	return "unknown"
}
