package tuning

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/notify"
)

// ExpressedField identifies an ExpressedChartConfig field in change
// notifications. The payload is the previous value.
type ExpressedField int

const (
	ExpressedDefaultMethod ExpressedField = iota
	ExpressedDetermination
	ExpressedMinLevelForBrackets
	ExpressedAggressiveForSimultaneousNotes
	ExpressedBracketsPerMinuteForAggressive
	ExpressedBracketsPerMinuteForNoBrackets
)

// ExpressedChartConfig controls how a chart's steps are expressed as
// bracket and non-bracket movements.
type ExpressedChartConfig struct {
	defaultMethod                  BracketParsingMethod
	determination                  BracketParsingDetermination
	minLevelForBrackets            int
	aggressiveForSimultaneousNotes bool
	bracketsPerMinuteForAggressive float64
	bracketsPerMinuteForNoBrackets float64

	events *notify.Bus[*ExpressedChartConfig, ExpressedField]
}

// ExpressedValues is the plain value form of an ExpressedChartConfig.
type ExpressedValues struct {
	DefaultMethod                  BracketParsingMethod
	Determination                  BracketParsingDetermination
	MinLevelForBrackets            int
	AggressiveForSimultaneousNotes bool
	BracketsPerMinuteForAggressive float64
	BracketsPerMinuteForNoBrackets float64
}

// NewExpressedChartConfig creates a config holding v.
func NewExpressedChartConfig(v ExpressedValues) *ExpressedChartConfig {
	return &ExpressedChartConfig{
		defaultMethod:                  v.DefaultMethod,
		determination:                  v.Determination,
		minLevelForBrackets:            v.MinLevelForBrackets,
		aggressiveForSimultaneousNotes: v.AggressiveForSimultaneousNotes,
		bracketsPerMinuteForAggressive: v.BracketsPerMinuteForAggressive,
		bracketsPerMinuteForNoBrackets: v.BracketsPerMinuteForNoBrackets,
		events:                         notify.New[*ExpressedChartConfig, ExpressedField](),
	}
}

// Values returns the plain value form.
func (c *ExpressedChartConfig) Values() ExpressedValues {
	return ExpressedValues{
		DefaultMethod:                  c.defaultMethod,
		Determination:                  c.determination,
		MinLevelForBrackets:            c.minLevelForBrackets,
		AggressiveForSimultaneousNotes: c.aggressiveForSimultaneousNotes,
		BracketsPerMinuteForAggressive: c.bracketsPerMinuteForAggressive,
		BracketsPerMinuteForNoBrackets: c.bracketsPerMinuteForNoBrackets,
	}
}

// Events returns the per-field change bus.
func (c *ExpressedChartConfig) Events() *notify.Bus[*ExpressedChartConfig, ExpressedField] {
	return c.events
}

// DefaultMethod returns the method used when the determination is fixed.
func (c *ExpressedChartConfig) DefaultMethod() BracketParsingMethod {
	return c.defaultMethod
}

// Determination returns how the bracket parsing method is chosen.
func (c *ExpressedChartConfig) Determination() BracketParsingDetermination {
	return c.determination
}

// MinLevelForBrackets returns the lowest chart level that may use brackets.
func (c *ExpressedChartConfig) MinLevelForBrackets() int {
	return c.minLevelForBrackets
}

// AggressiveForSimultaneousNotes reports whether charts with more
// simultaneous notes than feet can cover use aggressive brackets.
func (c *ExpressedChartConfig) AggressiveForSimultaneousNotes() bool {
	return c.aggressiveForSimultaneousNotes
}

// BracketsPerMinuteForAggressive returns the balanced bracket rate above
// which aggressive parsing is chosen.
func (c *ExpressedChartConfig) BracketsPerMinuteForAggressive() float64 {
	return c.bracketsPerMinuteForAggressive
}

// BracketsPerMinuteForNoBrackets returns the balanced bracket rate below
// which no-bracket parsing is chosen.
func (c *ExpressedChartConfig) BracketsPerMinuteForNoBrackets() float64 {
	return c.bracketsPerMinuteForNoBrackets
}

func setExpressed[V comparable](c *ExpressedChartConfig, field ExpressedField, dst *V, v V) {
	if *dst == v {
		return
	}
	old := *dst
	*dst = v
	c.events.Notify(field, c, old)
}

func (c *ExpressedChartConfig) SetDefaultMethod(v BracketParsingMethod) {
	setExpressed(c, ExpressedDefaultMethod, &c.defaultMethod, v)
}

func (c *ExpressedChartConfig) SetDetermination(v BracketParsingDetermination) {
	setExpressed(c, ExpressedDetermination, &c.determination, v)
}

func (c *ExpressedChartConfig) SetMinLevelForBrackets(v int) {
	setExpressed(c, ExpressedMinLevelForBrackets, &c.minLevelForBrackets, v)
}

func (c *ExpressedChartConfig) SetAggressiveForSimultaneousNotes(v bool) {
	setExpressed(c, ExpressedAggressiveForSimultaneousNotes, &c.aggressiveForSimultaneousNotes, v)
}

func (c *ExpressedChartConfig) SetBracketsPerMinuteForAggressive(v float64) {
	setExpressed(c, ExpressedBracketsPerMinuteForAggressive, &c.bracketsPerMinuteForAggressive, v)
}

func (c *ExpressedChartConfig) SetBracketsPerMinuteForNoBrackets(v float64) {
	setExpressed(c, ExpressedBracketsPerMinuteForNoBrackets, &c.bracketsPerMinuteForNoBrackets, v)
}

// Clone returns a copy with its own, empty, change bus.
func (c *ExpressedChartConfig) Clone() *ExpressedChartConfig {
	return NewExpressedChartConfig(c.Values())
}

// Assign copies every field of src through the setters.
func (c *ExpressedChartConfig) Assign(src *ExpressedChartConfig) {
	c.SetDefaultMethod(src.defaultMethod)
	c.SetDetermination(src.determination)
	c.SetMinLevelForBrackets(src.minLevelForBrackets)
	c.SetAggressiveForSimultaneousNotes(src.aggressiveForSimultaneousNotes)
	c.SetBracketsPerMinuteForAggressive(src.bracketsPerMinuteForAggressive)
	c.SetBracketsPerMinuteForNoBrackets(src.bracketsPerMinuteForNoBrackets)
}

// Equal reports whether all fields match.
func (c *ExpressedChartConfig) Equal(other *ExpressedChartConfig) bool {
	return c.Values() == other.Values()
}

// Validate reports every constraint violation.
func (c *ExpressedChartConfig) Validate() error {
	var err error
	if !BracketParsingMethods.Valid(c.defaultMethod) {
		err = multierr.Append(err, fmt.Errorf("%w: defaultBracketParsingMethod %d", ErrInvalidValue, c.defaultMethod))
	}
	if !BracketParsingDeterminations.Valid(c.determination) {
		err = multierr.Append(err, fmt.Errorf("%w: bracketParsingDetermination %d", ErrInvalidValue, c.determination))
	}
	err = appendNonFinite(err, "bracketsPerMinuteForAggressive", c.bracketsPerMinuteForAggressive)
	err = appendNonFinite(err, "bracketsPerMinuteForNoBrackets", c.bracketsPerMinuteForNoBrackets)
	if c.minLevelForBrackets < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: minLevelForBrackets %d < 0", ErrOutOfRange, c.minLevelForBrackets))
	}
	if c.bracketsPerMinuteForAggressive < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: bracketsPerMinuteForAggressive %g < 0",
			ErrOutOfRange, c.bracketsPerMinuteForAggressive))
	}
	if c.bracketsPerMinuteForNoBrackets < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: bracketsPerMinuteForNoBrackets %g < 0",
			ErrOutOfRange, c.bracketsPerMinuteForNoBrackets))
	}
	if c.bracketsPerMinuteForNoBrackets > c.bracketsPerMinuteForAggressive {
		err = multierr.Append(err, fmt.Errorf("%w: bracketsPerMinuteForNoBrackets %g exceeds bracketsPerMinuteForAggressive %g",
			ErrOutOfRange, c.bracketsPerMinuteForNoBrackets, c.bracketsPerMinuteForAggressive))
	}
	return err
}

// Expressed field accessors, in persisted order.
var (
	ExpressedDefaultMethodField = history.Accessor[*ExpressedChartConfig, BracketParsingMethod]{
		Name: "defaultBracketParsingMethod",
		Get:  (*ExpressedChartConfig).DefaultMethod,
		Set:  (*ExpressedChartConfig).SetDefaultMethod,
	}
	ExpressedDeterminationField = history.Accessor[*ExpressedChartConfig, BracketParsingDetermination]{
		Name: "bracketParsingDetermination",
		Get:  (*ExpressedChartConfig).Determination,
		Set:  (*ExpressedChartConfig).SetDetermination,
	}
	ExpressedMinLevelField = history.Accessor[*ExpressedChartConfig, int]{
		Name: "minLevelForBrackets",
		Get:  (*ExpressedChartConfig).MinLevelForBrackets,
		Set:  (*ExpressedChartConfig).SetMinLevelForBrackets,
	}
	ExpressedSimultaneousNotesField = history.Accessor[*ExpressedChartConfig, bool]{
		Name: "useAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets",
		Get:  (*ExpressedChartConfig).AggressiveForSimultaneousNotes,
		Set:  (*ExpressedChartConfig).SetAggressiveForSimultaneousNotes,
	}
	ExpressedAggressiveRateField = history.Accessor[*ExpressedChartConfig, float64]{
		Name: "balancedBracketsPerMinuteForAggressiveBrackets",
		Get:  (*ExpressedChartConfig).BracketsPerMinuteForAggressive,
		Set:  (*ExpressedChartConfig).SetBracketsPerMinuteForAggressive,
	}
	ExpressedNoBracketsRateField = history.Accessor[*ExpressedChartConfig, float64]{
		Name: "balancedBracketsPerMinuteForNoBrackets",
		Get:  (*ExpressedChartConfig).BracketsPerMinuteForNoBrackets,
		Set:  (*ExpressedChartConfig).SetBracketsPerMinuteForNoBrackets,
	}
)

// ExpressedFields is the text-editable field table.
var ExpressedFields = Fields[*ExpressedChartConfig]{
	enumField(ExpressedDefaultMethodField, BracketParsingMethods),
	enumField(ExpressedDeterminationField, BracketParsingDeterminations),
	intField(ExpressedMinLevelField),
	boolField(ExpressedSimultaneousNotesField),
	floatField(ExpressedAggressiveRateField),
	floatField(ExpressedNoBracketsRateField),
}
