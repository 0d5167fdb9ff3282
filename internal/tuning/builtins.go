package tuning

import (
	"fmt"

	"github.com/stepforge/stepforge/internal/configset"
	"github.com/stepforge/stepforge/internal/history"
)

// Collection kinds, used in logs and command descriptions.
const (
	ExpressedKind = "expressed chart config"
	PerformedKind = "performed chart config"
)

// Well-known built-in identities. They never change between versions.
var (
	DynamicID            = configset.MustParseID("c2a8b1d4-1f6e-4f3a-9a57-6a0e3d5f8b01")
	AggressiveBracketsID = configset.MustParseID("c2a8b1d4-1f6e-4f3a-9a57-6a0e3d5f8b02")
	NoBracketsID         = configset.MustParseID("c2a8b1d4-1f6e-4f3a-9a57-6a0e3d5f8b03")
	DefaultPerformedID   = configset.MustParseID("5d0e7c62-8b14-4c0d-b1f3-2e9a4a7c6d01")
)

// Built-in names.
const (
	DynamicName            = "Dynamic"
	AggressiveBracketsName = "Aggressive Brackets"
	NoBracketsName         = "No Brackets"
	DefaultPerformedName   = "Default"
)

// DefaultExpressedValues are the values of new expressed configs and of the
// Dynamic built-in.
func DefaultExpressedValues() ExpressedValues {
	return ExpressedValues{
		DefaultMethod:                  BracketParsingBalanced,
		Determination:                  DetermineDynamically,
		MinLevelForBrackets:            7,
		AggressiveForSimultaneousNotes: true,
		BracketsPerMinuteForAggressive: 3.0,
		BracketsPerMinuteForNoBrackets: 0.5,
	}
}

// DefaultExpressed returns a new expressed config with default values.
func DefaultExpressed() *ExpressedChartConfig {
	return NewExpressedChartConfig(DefaultExpressedValues())
}

// DefaultPerformedValues are the values of new performed configs and of the
// Default built-in.
func DefaultPerformedValues() PerformedValues {
	return PerformedValues{
		TravelSpeedEnabled: true,
		TravelSpeedMinTime: 0.176471,
		TravelSpeedMaxTime: 0.25,
		LateralEnabled:     true,
		LateralRelativeNPS: 1.65,
		LateralAbsoluteNPS: 12.0,
		FacingMaxInward:    1.0,
		FacingMaxOutward:   1.0,
	}
}

// DefaultPerformed returns a new performed config with default values.
func DefaultPerformed() *PerformedChartConfig {
	return NewPerformedChartConfig(DefaultPerformedValues())
}

// ExpressedBuiltins returns the built-in expressed presets in display order.
func ExpressedBuiltins() []configset.Builtin[*ExpressedChartConfig] {
	withMethod := func(m BracketParsingMethod) func() *ExpressedChartConfig {
		return func() *ExpressedChartConfig {
			v := DefaultExpressedValues()
			v.DefaultMethod = m
			v.Determination = DetermineUseDefault
			return NewExpressedChartConfig(v)
		}
	}
	return []configset.Builtin[*ExpressedChartConfig]{
		{
			ID:          DynamicID,
			Name:        DynamicName,
			Description: "Chooses the bracket parsing method per chart from its step density.",
			New:         DefaultExpressed,
		},
		{
			ID:          AggressiveBracketsID,
			Name:        AggressiveBracketsName,
			Description: "Always interprets steps as brackets when possible.",
			New:         withMethod(BracketParsingAggressive),
		},
		{
			ID:          NoBracketsID,
			Name:        NoBracketsName,
			Description: "Never interprets steps as brackets.",
			New:         withMethod(BracketParsingNoBrackets),
		},
	}
}

// PerformedBuiltins returns the built-in performed presets.
func PerformedBuiltins() []configset.Builtin[*PerformedChartConfig] {
	return []configset.Builtin[*PerformedChartConfig]{
		{
			ID:          DefaultPerformedID,
			Name:        DefaultPerformedName,
			Description: "Default performance tuning.",
			New:         DefaultPerformed,
		},
	}
}

// NewExpressedCollection creates the expressed config collection seeded
// with its built-ins.
func NewExpressedCollection(opts ...configset.Option) *configset.Collection[*ExpressedChartConfig] {
	return configset.NewCollection(ExpressedKind, DefaultExpressed, ExpressedBuiltins(), opts...)
}

// NewPerformedCollection creates the performed config collection seeded
// with its built-in.
func NewPerformedCollection(opts ...configset.Option) *configset.Collection[*PerformedChartConfig] {
	return configset.NewCollection(PerformedKind, DefaultPerformed, PerformedBuiltins(), opts...)
}

// NewSetFieldCommand builds a command that writes one field of a user
// entry's payload from text. ok is false when the entry is missing or
// built-in, or the value is unchanged. A value that would leave the payload
// invalid is reported as an error wrapping configset.ErrInvalidPayload.
func NewSetFieldCommand[T configset.Payload[T]](c *configset.Collection[T], fields Fields[T], id configset.ID, field, value string) (cmd *history.SetFieldsCommand, ok bool, err error) {
	e, found := c.Get(id)
	if !found {
		return nil, false, nil
	}
	bind := func(p T) ([]history.FieldChange, error) {
		change, err := fields.Change(p, field, value)
		if err != nil {
			return nil, err
		}
		return []history.FieldChange{change}, nil
	}
	return configset.EditPayload(c, id, fmt.Sprintf("Set %s %q %s", c.Kind(), e.Name(), field), bind)
}
