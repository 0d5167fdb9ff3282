package tuning

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/notify"
)

// PerformedField identifies a PerformedChartConfig field in change
// notifications. The payload is the previous value.
type PerformedField int

const (
	PerformedTravelSpeedEnabled PerformedField = iota
	PerformedTravelSpeedMinTime
	PerformedTravelSpeedMaxTime
	PerformedLateralEnabled
	PerformedLateralRelativeNPS
	PerformedLateralAbsoluteNPS
	PerformedFacingMaxInward
	PerformedFacingMaxOutward
)

// PerformedValues is the plain value form of a PerformedChartConfig.
type PerformedValues struct {
	// Travel speed tightening penalizes fast movements between arrows whose
	// time between steps falls inside [MinTime, MaxTime] seconds.
	TravelSpeedEnabled bool
	TravelSpeedMinTime float64
	TravelSpeedMaxTime float64

	// Lateral tightening penalizes lateral body movement above the given
	// notes per second, relative to the chart average or absolute.
	LateralEnabled     bool
	LateralRelativeNPS float64
	LateralAbsoluteNPS float64

	// Facing limits, as fractions of steps.
	FacingMaxInward  float64
	FacingMaxOutward float64
}

// PerformedChartConfig controls how an expressed chart is performed on a
// target pad layout.
type PerformedChartConfig struct {
	v      PerformedValues
	events *notify.Bus[*PerformedChartConfig, PerformedField]
}

// NewPerformedChartConfig creates a config holding v.
func NewPerformedChartConfig(v PerformedValues) *PerformedChartConfig {
	return &PerformedChartConfig{
		v:      v,
		events: notify.New[*PerformedChartConfig, PerformedField](),
	}
}

// Values returns the plain value form.
func (c *PerformedChartConfig) Values() PerformedValues {
	return c.v
}

// Events returns the per-field change bus.
func (c *PerformedChartConfig) Events() *notify.Bus[*PerformedChartConfig, PerformedField] {
	return c.events
}

func setPerformed[V comparable](c *PerformedChartConfig, field PerformedField, dst *V, v V) {
	if *dst == v {
		return
	}
	old := *dst
	*dst = v
	c.events.Notify(field, c, old)
}

// Clone returns a copy with its own, empty, change bus.
func (c *PerformedChartConfig) Clone() *PerformedChartConfig {
	return NewPerformedChartConfig(c.v)
}

// Assign copies every field of src through the setters.
func (c *PerformedChartConfig) Assign(src *PerformedChartConfig) {
	for _, f := range performedAccessors {
		f.assign(c, src)
	}
}

// Equal reports whether all fields match.
func (c *PerformedChartConfig) Equal(other *PerformedChartConfig) bool {
	return c.v == other.v
}

// Validate reports every constraint violation.
func (c *PerformedChartConfig) Validate() error {
	var err error
	v := c.v
	err = appendNonFinite(err, "travelSpeedMinTime", v.TravelSpeedMinTime)
	err = appendNonFinite(err, "travelSpeedMaxTime", v.TravelSpeedMaxTime)
	err = appendNonFinite(err, "lateralRelativeNPS", v.LateralRelativeNPS)
	err = appendNonFinite(err, "lateralAbsoluteNPS", v.LateralAbsoluteNPS)
	err = appendNonFinite(err, "facingMaxInwardPercentage", v.FacingMaxInward)
	err = appendNonFinite(err, "facingMaxOutwardPercentage", v.FacingMaxOutward)
	if v.TravelSpeedMinTime < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: travelSpeedMinTime %g < 0", ErrOutOfRange, v.TravelSpeedMinTime))
	}
	if v.TravelSpeedMaxTime < v.TravelSpeedMinTime {
		err = multierr.Append(err, fmt.Errorf("%w: travelSpeedMaxTime %g < travelSpeedMinTime %g",
			ErrOutOfRange, v.TravelSpeedMaxTime, v.TravelSpeedMinTime))
	}
	if v.LateralRelativeNPS < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: lateralRelativeNPS %g < 0", ErrOutOfRange, v.LateralRelativeNPS))
	}
	if v.LateralAbsoluteNPS < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: lateralAbsoluteNPS %g < 0", ErrOutOfRange, v.LateralAbsoluteNPS))
	}
	if v.FacingMaxInward < 0 || v.FacingMaxInward > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: facingMaxInwardPercentage %g not in [0, 1]", ErrOutOfRange, v.FacingMaxInward))
	}
	if v.FacingMaxOutward < 0 || v.FacingMaxOutward > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: facingMaxOutwardPercentage %g not in [0, 1]", ErrOutOfRange, v.FacingMaxOutward))
	}
	return err
}

type performedAccessor interface {
	assign(dst, src *PerformedChartConfig)
}

type performedField[V comparable] struct {
	history.Accessor[*PerformedChartConfig, V]
}

func (f performedField[V]) assign(dst, src *PerformedChartConfig) {
	f.Set(dst, f.Get(src))
}

func performedBool(name string, tag PerformedField, ptr func(*PerformedValues) *bool) history.Accessor[*PerformedChartConfig, bool] {
	return history.Accessor[*PerformedChartConfig, bool]{
		Name: name,
		Get:  func(c *PerformedChartConfig) bool { return *ptr(&c.v) },
		Set:  func(c *PerformedChartConfig, v bool) { setPerformed(c, tag, ptr(&c.v), v) },
	}
}

func performedFloat(name string, tag PerformedField, ptr func(*PerformedValues) *float64) history.Accessor[*PerformedChartConfig, float64] {
	return history.Accessor[*PerformedChartConfig, float64]{
		Name: name,
		Get:  func(c *PerformedChartConfig) float64 { return *ptr(&c.v) },
		Set:  func(c *PerformedChartConfig, v float64) { setPerformed(c, tag, ptr(&c.v), v) },
	}
}

// Performed field accessors, in persisted order.
var (
	PerformedTravelSpeedEnabledField = performedBool("travelSpeedTighteningEnabled", PerformedTravelSpeedEnabled,
		func(v *PerformedValues) *bool { return &v.TravelSpeedEnabled })
	PerformedTravelSpeedMinTimeField = performedFloat("travelSpeedMinTime", PerformedTravelSpeedMinTime,
		func(v *PerformedValues) *float64 { return &v.TravelSpeedMinTime })
	PerformedTravelSpeedMaxTimeField = performedFloat("travelSpeedMaxTime", PerformedTravelSpeedMaxTime,
		func(v *PerformedValues) *float64 { return &v.TravelSpeedMaxTime })
	PerformedLateralEnabledField = performedBool("lateralTighteningEnabled", PerformedLateralEnabled,
		func(v *PerformedValues) *bool { return &v.LateralEnabled })
	PerformedLateralRelativeNPSField = performedFloat("lateralRelativeNPS", PerformedLateralRelativeNPS,
		func(v *PerformedValues) *float64 { return &v.LateralRelativeNPS })
	PerformedLateralAbsoluteNPSField = performedFloat("lateralAbsoluteNPS", PerformedLateralAbsoluteNPS,
		func(v *PerformedValues) *float64 { return &v.LateralAbsoluteNPS })
	PerformedFacingMaxInwardField = performedFloat("facingMaxInwardPercentage", PerformedFacingMaxInward,
		func(v *PerformedValues) *float64 { return &v.FacingMaxInward })
	PerformedFacingMaxOutwardField = performedFloat("facingMaxOutwardPercentage", PerformedFacingMaxOutward,
		func(v *PerformedValues) *float64 { return &v.FacingMaxOutward })
)

var performedAccessors = []performedAccessor{
	performedField[bool]{PerformedTravelSpeedEnabledField},
	performedField[float64]{PerformedTravelSpeedMinTimeField},
	performedField[float64]{PerformedTravelSpeedMaxTimeField},
	performedField[bool]{PerformedLateralEnabledField},
	performedField[float64]{PerformedLateralRelativeNPSField},
	performedField[float64]{PerformedLateralAbsoluteNPSField},
	performedField[float64]{PerformedFacingMaxInwardField},
	performedField[float64]{PerformedFacingMaxOutwardField},
}

// PerformedFields is the text-editable field table.
var PerformedFields = Fields[*PerformedChartConfig]{
	boolField(PerformedTravelSpeedEnabledField),
	floatField(PerformedTravelSpeedMinTimeField),
	floatField(PerformedTravelSpeedMaxTimeField),
	boolField(PerformedLateralEnabledField),
	floatField(PerformedLateralRelativeNPSField),
	floatField(PerformedLateralAbsoluteNPSField),
	floatField(PerformedFacingMaxInwardField),
	floatField(PerformedFacingMaxOutwardField),
}
