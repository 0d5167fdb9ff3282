package prefs

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrParse indicates a preference file that could not be decoded.
var ErrParse = errors.New("cannot parse preferences")

// File is the persisted form of a Root. Enums are stored by name so an
// unrecognized value can fall back to its default instead of failing the
// whole load.
type File struct {
	Version string `toml:"version" yaml:"version"`

	UndoHistorySize  int     `toml:"undoHistorySize" yaml:"undoHistorySize"`
	MusicVolume      float64 `toml:"musicVolume" yaml:"musicVolume"`
	AssistTickVolume float64 `toml:"assistTickVolume" yaml:"assistTickVolume"`
	ReceptorX        int     `toml:"receptorX" yaml:"receptorX"`
	ReceptorY        int     `toml:"receptorY" yaml:"receptorY"`
	ShowWaveform     bool    `toml:"showWaveform" yaml:"showWaveform"`
	ShowMiniMap      bool    `toml:"showMiniMap" yaml:"showMiniMap"`
	ShowLog          bool    `toml:"showLog" yaml:"showLog"`

	DefaultExpressedConfig string `toml:"defaultExpressedChartConfig" yaml:"defaultExpressedChartConfig"`

	ExpressedConfigs []ExpressedEntry    `toml:"expressedChartConfigs" yaml:"expressedChartConfigs"`
	PerformedConfigs []PerformedEntry    `toml:"performedChartConfigs" yaml:"performedChartConfigs"`
	KeyBindings      map[string][]string `toml:"keyBindings" yaml:"keyBindings"`
}

// ExpressedEntry is a persisted expressed chart config.
type ExpressedEntry struct {
	ID          string `toml:"id" yaml:"id"`
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description,omitempty" yaml:"description,omitempty"`

	DefaultBracketParsingMethod                                                   string  `toml:"defaultBracketParsingMethod" yaml:"defaultBracketParsingMethod"`
	BracketParsingDetermination                                                   string  `toml:"bracketParsingDetermination" yaml:"bracketParsingDetermination"`
	MinLevelForBrackets                                                           int     `toml:"minLevelForBrackets" yaml:"minLevelForBrackets"`
	UseAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets bool    `toml:"useAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets" yaml:"useAggressiveBracketsWhenMoreSimultaneousNotesThanCanBeCoveredWithoutBrackets"`
	BalancedBracketsPerMinuteForAggressiveBrackets                                float64 `toml:"balancedBracketsPerMinuteForAggressiveBrackets" yaml:"balancedBracketsPerMinuteForAggressiveBrackets"`
	BalancedBracketsPerMinuteForNoBrackets                                        float64 `toml:"balancedBracketsPerMinuteForNoBrackets" yaml:"balancedBracketsPerMinuteForNoBrackets"`
}

// PerformedEntry is a persisted performed chart config.
type PerformedEntry struct {
	ID          string `toml:"id" yaml:"id"`
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description,omitempty" yaml:"description,omitempty"`

	TravelSpeedTighteningEnabled bool    `toml:"travelSpeedTighteningEnabled" yaml:"travelSpeedTighteningEnabled"`
	TravelSpeedMinTime           float64 `toml:"travelSpeedMinTime" yaml:"travelSpeedMinTime"`
	TravelSpeedMaxTime           float64 `toml:"travelSpeedMaxTime" yaml:"travelSpeedMaxTime"`
	LateralTighteningEnabled     bool    `toml:"lateralTighteningEnabled" yaml:"lateralTighteningEnabled"`
	LateralRelativeNPS           float64 `toml:"lateralRelativeNPS" yaml:"lateralRelativeNPS"`
	LateralAbsoluteNPS           float64 `toml:"lateralAbsoluteNPS" yaml:"lateralAbsoluteNPS"`
	FacingMaxInwardPercentage    float64 `toml:"facingMaxInwardPercentage" yaml:"facingMaxInwardPercentage"`
	FacingMaxOutwardPercentage   float64 `toml:"facingMaxOutwardPercentage" yaml:"facingMaxOutwardPercentage"`
}

// Decode parses preference file bytes. Missing scalar keys keep their
// default values. Legacy format versions are migrated first.
func Decode(codec Codec, data []byte, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}

	migrator := DefaultMigrator()
	version := Version(raw)
	if version.GT(migrator.Current()) {
		logger.Warn("preferences written by a newer version, loading what is recognized",
			zap.String("version", version.String()),
			zap.String("supported", migrator.Current().String()))
	}

	results, err := migrator.Migrate(raw)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		logger.Info("migrated preferences",
			zap.String("from", r.From.String()),
			zap.String("to", r.To.String()),
			zap.String("migration", r.Description))
	}

	if len(results) > 0 {
		// Re-encode the migrated tree so the typed decode sees current keys.
		data, err = codec.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: re-encoding migrated data: %w", ErrParse, err)
		}
	}

	f := DefaultFile()
	if err := codec.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return f, nil
}

// Encode renders f with codec.
func Encode(codec Codec, f *File) ([]byte, error) {
	return codec.Marshal(f)
}
