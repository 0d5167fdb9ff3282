package prefs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
)

// versionKey holds the file format version.
const versionKey = "version"

// CurrentVersion is the file format version written by Save.
var CurrentVersion = semver.MustParse("1.0.0")

// Migration rewrites decoded file data from one format version to the next.
type Migration struct {
	// From is the lowest version the migration applies to.
	From semver.Version

	// To is the version the data has after the migration.
	To semver.Version

	// Description describes what the migration does.
	Description string

	// Migrate performs the migration in place.
	Migrate func(data map[string]any) error
}

// Migrator brings decoded file data up to the current format version.
type Migrator struct {
	migrations []Migration
	current    semver.Version
}

// NewMigrator creates a Migrator targeting current.
func NewMigrator(current semver.Version) *Migrator {
	return &Migrator{current: current}
}

// Register adds a migration.
func (m *Migrator) Register(migration Migration) {
	m.migrations = append(m.migrations, migration)
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].From.LT(m.migrations[j].From)
	})
}

// MigrationResult records one applied migration.
type MigrationResult struct {
	From        semver.Version
	To          semver.Version
	Description string
}

// Version reads the format version of data. Missing or malformed versions
// are treated as 0.0.0.
func Version(data map[string]any) semver.Version {
	s, ok := data[versionKey].(string)
	if !ok {
		return semver.Version{}
	}
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}
	}
	return v
}

// Migrate applies every migration between the data's version and the
// current version, then stamps the current version.
func (m *Migrator) Migrate(data map[string]any) ([]MigrationResult, error) {
	from := Version(data)
	var results []MigrationResult

	for _, migration := range m.migrations {
		if migration.To.LTE(from) || migration.To.GT(m.current) {
			continue
		}
		if err := migration.Migrate(data); err != nil {
			return results, fmt.Errorf("migration from %s to %s failed: %w", migration.From, migration.To, err)
		}
		results = append(results, MigrationResult{
			From:        migration.From,
			To:          migration.To,
			Description: migration.Description,
		})
		from = migration.To
	}

	if from.LT(m.current) {
		data[versionKey] = m.current.String()
	}
	return results, nil
}

// Current returns the target version.
func (m *Migrator) Current() semver.Version {
	return m.current
}

// DefaultMigrator returns the migrator for preference files.
func DefaultMigrator() *Migrator {
	m := NewMigrator(CurrentVersion)
	m.Register(MigrationRename(semver.Version{}, CurrentVersion,
		"renames legacy snake_case keys",
		map[string]string{
			"undo_history_size":        "undoHistorySize",
			"music_volume":             "musicVolume",
			"assist_tick_volume":       "assistTickVolume",
			"receptor_x":               "receptorX",
			"receptor_y":               "receptorY",
			"default_expressed_config": "defaultExpressedChartConfig",
			"expressed_configs":        "expressedChartConfigs",
			"performed_configs":        "performedChartConfigs",
			"key_bindings":             "keyBindings",
		}))
	return m
}

// MigrationRename creates a migration that renames dot-separated paths.
func MigrationRename(from, to semver.Version, description string, paths map[string]string) Migration {
	return Migration{
		From:        from,
		To:          to,
		Description: description,
		Migrate: func(data map[string]any) error {
			for oldPath, newPath := range paths {
				value, found := getNestedValue(data, oldPath)
				if !found {
					continue
				}
				if _, exists := getNestedValue(data, newPath); exists {
					deleteNestedValue(data, oldPath)
					continue
				}
				if err := setNestedValue(data, newPath, value); err != nil {
					return fmt.Errorf("setting %s: %w", newPath, err)
				}
				deleteNestedValue(data, oldPath)
			}
			return nil
		},
	}
}

// getNestedValue retrieves a value from a nested map using a dot-separated path.
func getNestedValue(data map[string]any, path string) (any, bool) {
	current := any(data)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setNestedValue sets a value in a nested map using a dot-separated path.
func setNestedValue(data map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part]
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		nextMap, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a table", part)
		}
		current = nextMap
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// deleteNestedValue deletes a value from a nested map using a dot-separated path.
func deleteNestedValue(data map[string]any, path string) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		nextMap, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = nextMap
	}
	delete(current, parts[len(parts)-1])
}
