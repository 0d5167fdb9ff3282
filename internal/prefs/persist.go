package prefs

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/stepforge/stepforge/internal/configset"
	"github.com/stepforge/stepforge/internal/tuning"
)

// Export returns the persisted form of r.
func (r *Root) Export() *File {
	f := &File{
		Version:                CurrentVersion.String(),
		UndoHistorySize:        r.undoHistorySize,
		MusicVolume:            r.musicVolume,
		AssistTickVolume:       r.assistTickVolume,
		ReceptorX:              r.receptor.X,
		ReceptorY:              r.receptor.Y,
		ShowWaveform:           r.showWaveform,
		ShowMiniMap:            r.showMiniMap,
		ShowLog:                r.showLog,
		DefaultExpressedConfig: r.defaultExpressedConfig,
		KeyBindings:            r.KeyBindings.Export(),
	}

	for _, e := range r.Expressed.Entries() {
		v := e.Payload().Values()
		pe := ExpressedEntry{
			ID:                          e.ID().String(),
			Name:                        e.Name(),
			Description:                 e.Description(),
			DefaultBracketParsingMethod: tuning.BracketParsingMethods.Name(v.DefaultMethod),
			BracketParsingDetermination: tuning.BracketParsingDeterminations.Name(v.Determination),
			MinLevelForBrackets:         v.MinLevelForBrackets,
		}
		pe.UseAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets = v.AggressiveForSimultaneousNotes
		pe.BalancedBracketsPerMinuteForAggressiveBrackets = v.BracketsPerMinuteForAggressive
		pe.BalancedBracketsPerMinuteForNoBrackets = v.BracketsPerMinuteForNoBrackets
		f.ExpressedConfigs = append(f.ExpressedConfigs, pe)
	}

	for _, e := range r.Performed.Entries() {
		v := e.Payload().Values()
		f.PerformedConfigs = append(f.PerformedConfigs, PerformedEntry{
			ID:                           e.ID().String(),
			Name:                         e.Name(),
			Description:                  e.Description(),
			TravelSpeedTighteningEnabled: v.TravelSpeedEnabled,
			TravelSpeedMinTime:           v.TravelSpeedMinTime,
			TravelSpeedMaxTime:           v.TravelSpeedMaxTime,
			LateralTighteningEnabled:     v.LateralEnabled,
			LateralRelativeNPS:           v.LateralRelativeNPS,
			LateralAbsoluteNPS:           v.LateralAbsoluteNPS,
			FacingMaxInwardPercentage:    v.FacingMaxInward,
			FacingMaxOutwardPercentage:   v.FacingMaxOutward,
		})
	}
	return f
}

// Apply replaces the contents of r with f in place, so existing
// subscriptions stay attached, then repairs the result. Apply(DefaultFile())
// restores a fresh state.
func (r *Root) Apply(f *File) {
	r.SetUndoHistorySize(f.UndoHistorySize)
	r.SetMusicVolume(f.MusicVolume)
	r.SetAssistTickVolume(f.AssistTickVolume)
	r.SetReceptorPosition(Position{f.ReceptorX, f.ReceptorY})
	r.SetShowWaveform(f.ShowWaveform)
	r.SetShowMiniMap(f.ShowMiniMap)
	r.SetShowLog(f.ShowLog)
	r.SetDefaultExpressedConfig(f.DefaultExpressedConfig)

	r.Expressed.Clear()
	for i, pe := range f.ExpressedConfigs {
		field := func(name string) string {
			return fmt.Sprintf("expressedChartConfigs[%d].%s", i, name)
		}
		v := tuning.ExpressedValues{
			DefaultMethod: tuning.BracketParsingMethods.ParseOr(pe.DefaultBracketParsingMethod, r.logger,
				field("defaultBracketParsingMethod")),
			Determination: tuning.BracketParsingDeterminations.ParseOr(pe.BracketParsingDetermination, r.logger,
				field("bracketParsingDetermination")),
			MinLevelForBrackets:            pe.MinLevelForBrackets,
			AggressiveForSimultaneousNotes: pe.UseAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets,
			BracketsPerMinuteForAggressive: pe.BalancedBracketsPerMinuteForAggressiveBrackets,
			BracketsPerMinuteForNoBrackets: pe.BalancedBracketsPerMinuteForNoBrackets,
		}
		r.Expressed.Insert(r.parseID(pe.ID, pe.Name), pe.Name, pe.Description, tuning.NewExpressedChartConfig(v))
	}

	r.Performed.Clear()
	for _, pe := range f.PerformedConfigs {
		v := tuning.PerformedValues{
			TravelSpeedEnabled: pe.TravelSpeedTighteningEnabled,
			TravelSpeedMinTime: pe.TravelSpeedMinTime,
			TravelSpeedMaxTime: pe.TravelSpeedMaxTime,
			LateralEnabled:     pe.LateralTighteningEnabled,
			LateralRelativeNPS: pe.LateralRelativeNPS,
			LateralAbsoluteNPS: pe.LateralAbsoluteNPS,
			FacingMaxInward:    pe.FacingMaxInwardPercentage,
			FacingMaxOutward:   pe.FacingMaxOutwardPercentage,
		}
		r.Performed.Insert(r.parseID(pe.ID, pe.Name), pe.Name, pe.Description, tuning.NewPerformedChartConfig(v))
	}

	r.KeyBindings.ResetAll()
	r.KeyBindings.Load(f.KeyBindings)

	r.Repair()
	r.events.Notify(EventLoaded, r, nil)
}

// parseID treats a missing or malformed identity as a new entry.
func (r *Root) parseID(s, name string) configset.ID {
	if s == "" {
		return configset.NilID
	}
	id, err := configset.ParseID(s)
	if err != nil {
		r.logger.Warn("malformed entry identity, assigning a new one",
			zap.String("name", name), zap.String("id", s), zap.Error(err))
		return configset.NilID
	}
	return id
}

// Repair brings loaded state back within its invariants: built-ins are
// recreated from their defaults, invalid entries are removed, key bindings
// are deduplicated, and clamped scalars are re-clamped.
func (r *Root) Repair() {
	r.Expressed.ReseedBuiltins()
	r.Performed.ReseedBuiltins()

	if n := r.Expressed.ValidateAndPrune(); n > 0 {
		r.logger.Warn("removed invalid expressed chart configs", zap.Int("count", n))
	}
	if n := r.Performed.ValidateAndPrune(); n > 0 {
		r.logger.Warn("removed invalid performed chart configs", zap.Int("count", n))
	}

	r.KeyBindings.Repair()

	r.SetUndoHistorySize(r.undoHistorySize)
	r.SetMusicVolume(r.musicVolume)
	r.SetAssistTickVolume(r.assistTickVolume)
	r.SetReceptorPosition(r.receptor)

	if _, ok := r.Expressed.FindByName(r.defaultExpressedConfig); !ok {
		r.logger.Warn("default expressed chart config not found, using built-in",
			zap.String("name", r.defaultExpressedConfig),
			zap.String("fallback", tuning.DynamicName))
		r.SetDefaultExpressedConfig(tuning.DynamicName)
	}
}

// ReadFile reads and decodes the preference file at path.
func ReadFile(fsys FileSystem, path string, logger *zap.Logger) (*File, []byte, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Decode(CodecFor(path), data, logger)
	if err != nil {
		return nil, data, fmt.Errorf("decoding %s: %w", path, err)
	}
	return f, data, nil
}

// Load replaces the contents of r with the file at path. Load never leaves
// r without a valid state: on any failure the defaults are applied instead
// and the failure is logged. It returns the bytes read, for change
// detection, and the failure.
func (r *Root) Load(path string) ([]byte, error) {
	f, data, err := ReadFile(r.fs, path, r.logger)
	return data, r.ApplyResult(path, f, err)
}

// ApplyResult commits the outcome of ReadFile: f when err is nil, the
// defaults otherwise. It returns err.
func (r *Root) ApplyResult(path string, f *File, err error) error {
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("no preferences file, using defaults", zap.String("path", path))
		} else {
			r.logger.Error("failed to load preferences, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		r.Apply(DefaultFile())
		return err
	}

	r.Apply(f)
	r.logger.Info("loaded preferences", zap.String("path", path))
	return nil
}

// Load creates a Root from the file at path, falling back to defaults.
func Load(path string, opts ...Option) *Root {
	r := New(opts...)
	_, _ = r.Load(path)
	return r
}

// Marshal encodes r in the format chosen by path's extension.
func (r *Root) Marshal(path string) ([]byte, error) {
	return Encode(CodecFor(path), r.Export())
}

// Save writes r to path atomically. A failure is logged and returned; the
// caller keeps its unsaved state so the save can be retried.
func (r *Root) Save(path string) ([]byte, error) {
	data, err := r.Marshal(path)
	if err == nil {
		err = WriteFileAtomic(r.fs, path, data)
	}
	if err != nil {
		r.logger.Error("failed to save preferences", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	r.logger.Info("saved preferences", zap.String("path", path))
	return data, nil
}
