package prefs

import (
	"fmt"

	"github.com/stepforge/stepforge/internal/configset"
	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/keybind"
	"github.com/stepforge/stepforge/internal/tuning"
)

// Volume selects one of the volume preferences.
type Volume int

const (
	VolumeMusic Volume = iota
	VolumeAssistTick
)

func (v Volume) String() string {
	switch v {
	case VolumeMusic:
		return "music volume"
	case VolumeAssistTick:
		return "assist tick volume"
	default:
		return "unknown volume"
	}
}

// View selects one of the view toggles.
type View int

const (
	ViewWaveform View = iota
	ViewMiniMap
	ViewLog
)

func (v View) String() string {
	switch v {
	case ViewWaveform:
		return "waveform"
	case ViewMiniMap:
		return "mini map"
	case ViewLog:
		return "log"
	default:
		return "unknown view"
	}
}

func setCommand(cmd *history.SetFieldsCommand) (*history.SetFieldsCommand, bool) {
	if cmd.IsNoop() {
		return nil, false
	}
	return cmd, true
}

// NewSetUndoHistorySize creates a command that changes the undo depth. The
// value is clamped before comparison, so an out-of-range request that
// clamps to the current value is a no-op.
func NewSetUndoHistorySize(r *Root, n int) (*history.SetFieldsCommand, bool) {
	return setCommand(history.NewSetValue("Set undo history size", true,
		r.UndoHistorySize, r.SetUndoHistorySize, ClampUndoHistorySize(n)))
}

// NewSetVolume creates a command that changes a volume.
func NewSetVolume(r *Root, which Volume, v float64) (*history.SetFieldsCommand, bool) {
	desc := "Set " + which.String()
	v = clampUnit(v)
	switch which {
	case VolumeMusic:
		return setCommand(history.NewSetValue(desc, true, r.MusicVolume, r.SetMusicVolume, v))
	case VolumeAssistTick:
		return setCommand(history.NewSetValue(desc, true, r.AssistTickVolume, r.SetAssistTickVolume, v))
	default:
		return nil, false
	}
}

// NewSetReceptorPosition creates a command that moves the receptors.
func NewSetReceptorPosition(r *Root, p Position) (*history.SetFieldsCommand, bool) {
	return setCommand(history.NewSetValue("Move receptors", true,
		r.ReceptorPosition, r.SetReceptorPosition, r.clampPosition(p)))
}

// NewToggleView creates a command that flips a view toggle. View toggles
// do not make the session dirty.
func NewToggleView(r *Root, which View) (*history.SetFieldsCommand, bool) {
	var get func() bool
	var set func(bool)
	switch which {
	case ViewWaveform:
		get, set = r.ShowWaveform, r.SetShowWaveform
	case ViewMiniMap:
		get, set = r.ShowMiniMap, r.SetShowMiniMap
	case ViewLog:
		get, set = r.ShowLog, r.SetShowLog
	default:
		return nil, false
	}
	return history.NewSetValue("Toggle "+which.String(), false, get, set, !get()), true
}

// NewSetDefaultExpressedConfig creates a command that makes the entry id
// the default expressed config for new charts.
func NewSetDefaultExpressedConfig(r *Root, id configset.ID) (*history.SetFieldsCommand, bool) {
	e, ok := r.Expressed.Get(id)
	if !ok {
		return nil, false
	}
	return setCommand(history.NewSetValue(fmt.Sprintf("Use %q for new charts", e.Name()), true,
		r.DefaultExpressedConfigName, r.SetDefaultExpressedConfig, e.Name()))
}

// NewRestoreDefaultsCommand creates a command that restores every scalar
// preference and key binding to its default. Config collections are left
// alone. ok is false when nothing differs from the defaults.
func NewRestoreDefaultsCommand(r *Root) (*history.CompoundCommand, bool) {
	d := DefaultFile()
	scalars := history.NewSetFields("Restore default preferences", true,
		history.Change("undoHistorySize", r.UndoHistorySize, r.SetUndoHistorySize, d.UndoHistorySize),
		history.Change("musicVolume", r.MusicVolume, r.SetMusicVolume, d.MusicVolume),
		history.Change("assistTickVolume", r.AssistTickVolume, r.SetAssistTickVolume, d.AssistTickVolume),
		history.Change("receptorPosition", r.ReceptorPosition, r.SetReceptorPosition,
			r.clampPosition(Position{d.ReceptorX, d.ReceptorY})),
		history.Change("showWaveform", r.ShowWaveform, r.SetShowWaveform, d.ShowWaveform),
		history.Change("showMiniMap", r.ShowMiniMap, r.SetShowMiniMap, d.ShowMiniMap),
		history.Change("showLog", r.ShowLog, r.SetShowLog, d.ShowLog),
		history.Change("defaultExpressedChartConfig", r.DefaultExpressedConfigName,
			r.SetDefaultExpressedConfig, tuning.DynamicName))

	cmd := history.NewCompoundCommand("Restore default preferences")
	if !scalars.IsNoop() {
		cmd.Add(scalars)
	}
	if bindings, ok := keybind.NewResetAllCommand(r.KeyBindings); ok {
		cmd.Add(bindings)
	}
	if cmd.IsEmpty() {
		return nil, false
	}
	return cmd, true
}
