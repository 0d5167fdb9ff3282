package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepforge/stepforge/internal/tuning"
)

func execute(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--prefs", path}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// executeJSON runs a command with JSON output and decodes its data into v.
func executeJSON(t *testing.T, path string, v any, args ...string) {
	t.Helper()
	out, err := execute(t, path, append([]string{"--format", "json"}, args...)...)
	require.NoError(t, err)

	resp := struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func tempPrefs(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "preferences.toml")
}

func TestPrefsShowDefaults(t *testing.T) {
	path := tempPrefs(t)

	out, err := execute(t, path, "prefs", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "undo-history-size")
	assert.Contains(t, out, tuning.DynamicName)

	var v prefsView
	executeJSON(t, path, &v, "prefs", "show")
	assert.Equal(t, "1024", v.Settings["undo-history-size"])
	assert.Equal(t, "1", v.Settings["music-volume"])
	assert.Equal(t, tuning.DynamicName, v.DefaultExpressedConfig)
	assert.Equal(t, 3, v.ExpressedConfigs)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "show must not create the file")
}

func TestPrefsSet(t *testing.T) {
	path := tempPrefs(t)

	out, err := execute(t, path, "prefs", "set", "music-volume", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "music volume")
	assert.FileExists(t, path)

	_, err = execute(t, path, "prefs", "set", "receptor-position", "100,200")
	require.NoError(t, err)
	_, err = execute(t, path, "prefs", "set", "show-log", "true")
	require.NoError(t, err)

	var v prefsView
	executeJSON(t, path, &v, "prefs", "show")
	assert.Equal(t, "0.5", v.Settings["music-volume"])
	assert.Equal(t, "100,200", v.Settings["receptor-position"])
	assert.Equal(t, "true", v.Settings["show-log"])
}

func TestPrefsSetRejected(t *testing.T) {
	path := tempPrefs(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unchanged", []string{"music-volume", "1"}, ExitFailure},
		{"clamps to current", []string{"music-volume", "7"}, ExitFailure},
		{"unknown name", []string{"brightness", "1"}, ExitCommandError},
		{"bad number", []string{"undo-history-size", "lots"}, ExitCommandError},
		{"bad position", []string{"receptor-position", "12"}, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, path, append([]string{"prefs", "set"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected edits must not write the file")
}

func TestPrefsReset(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "prefs", "reset")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, path, "prefs", "set", "undo-history-size", "50")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "add", "Mine")
	require.NoError(t, err)
	_, err = execute(t, path, "bindings", "set", "undo", "Ctrl+U")
	require.NoError(t, err)

	_, err = execute(t, path, "prefs", "reset")
	require.NoError(t, err)

	var v prefsView
	executeJSON(t, path, &v, "prefs", "show")
	assert.Equal(t, "1024", v.Settings["undo-history-size"])
	assert.Equal(t, 4, v.ExpressedConfigs, "reset keeps user configs")

	var b bindingsReport
	executeJSON(t, path, &b, "bindings", "list")
	assert.Equal(t, []string{"Ctrl+Z"}, b.Bindings[0].Chords)
}

func TestPrefsValidate(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "prefs", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err), "missing file")

	_, err = execute(t, path, "prefs", "set", "music-volume", "0.25")
	require.NoError(t, err)

	out, err := execute(t, path, "prefs", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")
}

func TestPrefsValidateReportsIssues(t *testing.T) {
	path := tempPrefs(t)
	content := `version = "1.0.0"
undoHistorySize = 10

[[expressedChartConfigs]]
id = "not-a-uuid"
name = "Mine"
defaultBracketParsingMethod = "Sideways"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	var report validationReport
	out, err := execute(t, path, "--format", "json", "prefs", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := struct {
		Data *validationReport `json:"data"`
	}{Data: &report}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, report.Valid)
	assert.GreaterOrEqual(t, len(report.Issues), 2)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "validate must not rewrite the file")
}

func TestCorruptFileRefusesEdits(t *testing.T) {
	path := tempPrefs(t)
	require.NoError(t, os.WriteFile(path, []byte("this is = = not toml"), 0o644))

	_, err := execute(t, path, "prefs", "set", "music-volume", "0.5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "this is = = not toml", string(data))

	_, err = execute(t, path, "prefs", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestConfigsLifecycle(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "configs", "add", "Mine")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "set", "Mine", "minLevelForBrackets", "9")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "describe", "Mine", "for stamina charts")
	require.NoError(t, err)

	var v configView
	executeJSON(t, path, &v, "configs", "show", "Mine")
	assert.Equal(t, "9", v.Fields["minLevelForBrackets"])
	assert.Equal(t, "for stamina charts", v.Description)
	assert.False(t, v.Builtin)

	_, err = execute(t, path, "configs", "rename", "Mine", "Stamina")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "default", "Stamina")
	require.NoError(t, err)

	var views []configView
	executeJSON(t, path, &views, "configs", "list")
	names := make([]string, len(views))
	for i, cv := range views {
		names[i] = cv.Name
		if cv.Name == "Stamina" {
			assert.True(t, cv.Default)
		}
	}
	assert.Contains(t, names, "Stamina")
	assert.NotContains(t, names, "Mine")

	_, err = execute(t, path, "configs", "restore", "Stamina")
	require.NoError(t, err)
	executeJSON(t, path, &v, "configs", "show", "Stamina")
	assert.Equal(t, "7", v.Fields["minLevelForBrackets"])

	_, err = execute(t, path, "configs", "delete", "Stamina")
	require.NoError(t, err)

	var p prefsView
	executeJSON(t, path, &p, "prefs", "show")
	assert.Equal(t, tuning.DynamicName, p.DefaultExpressedConfig, "deleted default falls back to Dynamic")
}

func TestConfigsClone(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "configs", "clone", tuning.DynamicName)
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "clone", tuning.DynamicName, "Copy")
	require.NoError(t, err)

	var views []configView
	executeJSON(t, path, &views, "configs", "list")
	assert.Len(t, views, 5)

	_, err = execute(t, path, "configs", "clone", tuning.DynamicName, "Copy")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "name taken")
}

func TestConfigsBuiltinsAreProtected(t *testing.T) {
	path := tempPrefs(t)

	for _, args := range [][]string{
		{"delete", tuning.DynamicName},
		{"rename", tuning.DynamicName, "Other"},
		{"set", tuning.DynamicName, "minLevelForBrackets", "3"},
	} {
		_, err := execute(t, path, append([]string{"configs"}, args...)...)
		require.Error(t, err, "configs %v", args)
		assert.Equal(t, ExitFailure, GetExitCode(err), "configs %v", args)
	}
}

func TestConfigsSetRejectsInvalidValues(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "configs", "add", "Mine")
	require.NoError(t, err)

	for _, args := range [][]string{
		{"balancedBracketsPerMinuteForNoBrackets", "100"},
		{"balancedBracketsPerMinuteForAggressiveBrackets", "NaN"},
		{"balancedBracketsPerMinuteForAggressiveBrackets", "+Inf"},
		{"minLevelForBrackets", "-1"},
	} {
		_, err := execute(t, path, append([]string{"configs", "set", "Mine"}, args...)...)
		require.Error(t, err, "configs set Mine %v", args)
		assert.Equal(t, ExitFailure, GetExitCode(err), "configs set Mine %v", args)
	}

	// Every command reloads the file, so the entry surviving here means
	// nothing invalid was saved.
	var v configView
	executeJSON(t, path, &v, "configs", "show", "Mine")
	assert.Equal(t, "0.5", v.Fields["balancedBracketsPerMinuteForNoBrackets"])
	assert.Equal(t, "3", v.Fields["balancedBracketsPerMinuteForAggressiveBrackets"])
	assert.Equal(t, "7", v.Fields["minLevelForBrackets"])

	_, err = execute(t, path, "configs", "-k", kindPerformed, "add", "Mine")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "-k", kindPerformed, "set", "Mine", "facingMaxInwardPercentage", "NaN")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, path, "configs", "set", "Mine", "balancedBracketsPerMinuteForNoBrackets", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err), "unparsable text is a usage error")
}

func TestConfigsErrors(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "configs", "--kind", "bogus", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, path, "configs", "show", "Nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, path, "configs", "add", "Mine")
	require.NoError(t, err)
	_, err = execute(t, path, "configs", "set", "Mine", "noSuchField", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, err = execute(t, path, "configs", "set", "Mine", "minLevelForBrackets", "high")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigsPerformed(t *testing.T) {
	path := tempPrefs(t)

	var views []configView
	executeJSON(t, path, &views, "configs", "--kind", kindPerformed, "list")
	require.Len(t, views, 1)
	assert.Equal(t, tuning.DefaultPerformedName, views[0].Name)

	var fields []string
	executeJSON(t, path, &fields, "configs", "-k", kindPerformed, "fields")
	assert.Equal(t, tuning.PerformedFields.Names(), fields)

	_, err := execute(t, path, "configs", "-k", kindPerformed, "add", "Mine")
	require.NoError(t, err)
	executeJSON(t, path, &views, "configs", "--kind", kindPerformed, "list")
	assert.Len(t, views, 2)
}

func TestBindings(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "bindings", "set", "redo", "ctrl+u")
	require.NoError(t, err)
	_, err = execute(t, path, "bindings", "set", "save", "Ctrl+Z")
	require.NoError(t, err)

	var report bindingsReport
	executeJSON(t, path, &report, "bindings", "list", "--category", "edit")
	require.Len(t, report.Bindings, 2)
	assert.Equal(t, "redo", report.Bindings[1].Action)
	assert.Equal(t, []string{"Ctrl+U"}, report.Bindings[1].Chords)
	assert.False(t, report.Bindings[1].Default)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "Ctrl+Z", report.Conflicts[0].Chord)

	out, err := execute(t, path, "bindings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "conflict: Ctrl+Z")

	_, err = execute(t, path, "bindings", "reset", "redo")
	require.NoError(t, err)
	_, err = execute(t, path, "bindings", "reset", "redo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, path, "bindings", "reset")
	require.NoError(t, err)
	executeJSON(t, path, &report, "bindings", "list")
	assert.Empty(t, report.Conflicts)
}

func TestBindingsErrors(t *testing.T) {
	path := tempPrefs(t)

	_, err := execute(t, path, "bindings", "set", "fly", "F1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, path, "bindings", "set", "undo", "Hyper+Q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, path, "bindings", "set", "undo", "Ctrl+Z")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
