package prefs

import (
	"math"

	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/configset"
	"github.com/stepforge/stepforge/internal/history"
	"github.com/stepforge/stepforge/internal/keybind"
	"github.com/stepforge/stepforge/internal/notify"
	"github.com/stepforge/stepforge/internal/tuning"
)

// Ranges of the clamped scalar preferences.
const (
	MinUndoHistorySize = 1
	MaxUndoHistorySize = 10000

	DefaultUndoHistorySize  = history.DefaultMaxDepth
	DefaultMusicVolume      = 1.0
	DefaultAssistTickVolume = 1.0
	DefaultReceptorX        = 640
	DefaultReceptorY        = 100
)

// Event identifies a Root notification. Scalar events carry the previous
// value as payload.
type Event int

const (
	EventUndoHistorySize Event = iota
	EventMusicVolume
	EventAssistTickVolume
	// EventReceptorPosition carries the previous Position.
	EventReceptorPosition
	EventShowWaveform
	EventShowMiniMap
	EventShowLog
	EventDefaultExpressedConfig

	// EventLoaded fires after a file (or the defaults) replaced the
	// contents. Payload: nil.
	EventLoaded
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventUndoHistorySize:
		return "undoHistorySize"
	case EventMusicVolume:
		return "musicVolume"
	case EventAssistTickVolume:
		return "assistTickVolume"
	case EventReceptorPosition:
		return "receptorPosition"
	case EventShowWaveform:
		return "showWaveform"
	case EventShowMiniMap:
		return "showMiniMap"
	case EventShowLog:
		return "showLog"
	case EventDefaultExpressedConfig:
		return "defaultExpressedConfig"
	case EventLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Viewport reports the size of the live editing surface. Receptor
// positions are clamped to it.
type Viewport interface {
	Size() (width, height int)
}

// Position is a point in viewport pixels.
type Position struct {
	X, Y int
}

// Root is the preference aggregate. One Root is owned by the editing
// session and passed to the components that need it.
//
// Root is not safe for concurrent use.
type Root struct {
	undoHistorySize        int
	musicVolume            float64
	assistTickVolume       float64
	receptor               Position
	showWaveform           bool
	showMiniMap            bool
	showLog                bool
	defaultExpressedConfig string

	Expressed   *configset.Collection[*tuning.ExpressedChartConfig]
	Performed   *configset.Collection[*tuning.PerformedChartConfig]
	KeyBindings *keybind.Table

	events   *notify.Bus[*Root, Event]
	subs     notify.Group
	logger   *zap.Logger
	fs       FileSystem
	viewport Viewport
}

// Option configures a Root.
type Option func(*Root)

// WithLogger sets the logger for load, save and repair reports.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Root) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFileSystem sets the file access used by Load and Save.
func WithFileSystem(fsys FileSystem) Option {
	return func(r *Root) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithViewport sets the viewport receptor positions are clamped to.
func WithViewport(vp Viewport) Option {
	return func(r *Root) {
		r.viewport = vp
	}
}

// New creates a Root holding default values.
func New(opts ...Option) *Root {
	r := &Root{
		events: notify.New[*Root, Event](),
		logger: zap.NewNop(),
		fs:     DefaultFS(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Expressed = tuning.NewExpressedCollection(configset.WithLogger(r.logger))
	r.Performed = tuning.NewPerformedCollection(configset.WithLogger(r.logger))
	r.KeyBindings = keybind.NewTable(keybind.WithLogger(r.logger))

	d := DefaultFile()
	r.undoHistorySize = d.UndoHistorySize
	r.musicVolume = d.MusicVolume
	r.assistTickVolume = d.AssistTickVolume
	r.receptor = Position{d.ReceptorX, d.ReceptorY}
	r.showWaveform = d.ShowWaveform
	r.showMiniMap = d.ShowMiniMap
	r.showLog = d.ShowLog
	r.defaultExpressedConfig = d.DefaultExpressedConfig

	// The default config is referenced by name, so follow renames.
	r.subs.Add(r.Expressed.Events().Subscribe(configset.EventRenamed,
		func(_ *configset.Collection[*tuning.ExpressedChartConfig], payload any) {
			rename, ok := notify.PayloadAs[configset.Rename](payload)
			if ok && rename.OldName == r.defaultExpressedConfig {
				r.SetDefaultExpressedConfig(rename.NewName)
			}
		}))
	return r
}

// DefaultFile returns the persisted form of a fresh Root.
func DefaultFile() *File {
	return &File{
		Version:                CurrentVersion.String(),
		UndoHistorySize:        DefaultUndoHistorySize,
		MusicVolume:            DefaultMusicVolume,
		AssistTickVolume:       DefaultAssistTickVolume,
		ReceptorX:              DefaultReceptorX,
		ReceptorY:              DefaultReceptorY,
		ShowWaveform:           true,
		ShowMiniMap:            true,
		ShowLog:                false,
		DefaultExpressedConfig: tuning.DynamicName,
	}
}

// Close removes the Root's subscriptions on its collections.
func (r *Root) Close() {
	r.subs.UnsubscribeAll()
}

// Events returns the Root's notification bus.
func (r *Root) Events() *notify.Bus[*Root, Event] {
	return r.events
}

// Logger returns the Root's logger.
func (r *Root) Logger() *zap.Logger {
	return r.logger
}

// FileSystem returns the file access used by Load and Save.
func (r *Root) FileSystem() FileSystem {
	return r.fs
}

// Viewport returns the viewport used for clamping, or nil.
func (r *Root) Viewport() Viewport {
	return r.viewport
}

func setRoot[V comparable](r *Root, event Event, dst *V, v V) {
	if *dst == v {
		return
	}
	old := *dst
	*dst = v
	r.events.Notify(event, r, old)
}

// UndoHistorySize returns the maximum number of undo entries.
func (r *Root) UndoHistorySize() int {
	return r.undoHistorySize
}

// SetUndoHistorySize sets the undo depth, clamped to its range.
func (r *Root) SetUndoHistorySize(n int) {
	setRoot(r, EventUndoHistorySize, &r.undoHistorySize, ClampUndoHistorySize(n))
}

// MusicVolume returns the music volume in [0, 1].
func (r *Root) MusicVolume() float64 {
	return r.musicVolume
}

// SetMusicVolume sets the music volume, clamped to [0, 1].
func (r *Root) SetMusicVolume(v float64) {
	setRoot(r, EventMusicVolume, &r.musicVolume, clampUnit(v))
}

// AssistTickVolume returns the assist tick volume in [0, 1].
func (r *Root) AssistTickVolume() float64 {
	return r.assistTickVolume
}

// SetAssistTickVolume sets the assist tick volume, clamped to [0, 1].
func (r *Root) SetAssistTickVolume(v float64) {
	setRoot(r, EventAssistTickVolume, &r.assistTickVolume, clampUnit(v))
}

// ReceptorPosition returns where the receptors are drawn.
func (r *Root) ReceptorPosition() Position {
	return r.receptor
}

// SetReceptorPosition moves the receptors, clamped to the viewport.
func (r *Root) SetReceptorPosition(p Position) {
	setRoot(r, EventReceptorPosition, &r.receptor, r.clampPosition(p))
}

// ShowWaveform reports whether the waveform is drawn.
func (r *Root) ShowWaveform() bool { return r.showWaveform }

// ShowMiniMap reports whether the mini map is drawn.
func (r *Root) ShowMiniMap() bool { return r.showMiniMap }

// ShowLog reports whether the log window is open.
func (r *Root) ShowLog() bool { return r.showLog }

// SetShowWaveform shows or hides the waveform.
func (r *Root) SetShowWaveform(v bool) { setRoot(r, EventShowWaveform, &r.showWaveform, v) }

// SetShowMiniMap shows or hides the mini map.
func (r *Root) SetShowMiniMap(v bool) { setRoot(r, EventShowMiniMap, &r.showMiniMap, v) }

// SetShowLog opens or closes the log window.
func (r *Root) SetShowLog(v bool) { setRoot(r, EventShowLog, &r.showLog, v) }

// DefaultExpressedConfigName returns the name of the expressed config used
// for new charts.
func (r *Root) DefaultExpressedConfigName() string {
	return r.defaultExpressedConfig
}

// SetDefaultExpressedConfig sets the default expressed config by name.
func (r *Root) SetDefaultExpressedConfig(name string) {
	setRoot(r, EventDefaultExpressedConfig, &r.defaultExpressedConfig, configset.NormalizeName(name))
}

// DefaultExpressedConfig resolves the default expressed config, falling
// back to the Dynamic built-in when the name no longer matches an entry.
func (r *Root) DefaultExpressedConfig() *configset.Entry[*tuning.ExpressedChartConfig] {
	if e, ok := r.Expressed.FindByName(r.defaultExpressedConfig); ok {
		return e
	}
	e, _ := r.Expressed.Get(tuning.DynamicID)
	return e
}

// ClampUndoHistorySize clamps n to the allowed undo depth range.
func ClampUndoHistorySize(n int) int {
	return max(MinUndoHistorySize, min(n, MaxUndoHistorySize))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(v, 1))
}

func (r *Root) clampPosition(p Position) Position {
	p.X = max(p.X, 0)
	p.Y = max(p.Y, 0)
	if r.viewport != nil {
		w, h := r.viewport.Size()
		if w > 0 {
			p.X = min(p.X, w-1)
		}
		if h > 0 {
			p.Y = min(p.Y, h-1)
		}
	}
	return p
}
