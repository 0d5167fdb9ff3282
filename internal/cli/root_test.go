package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "stepforge", cmd.Use)
	assert.Contains(t, cmd.Long, "key bindings")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"prefs", "show"},
		{"prefs", "validate"},
		{"prefs", "set"},
		{"prefs", "reset"},
		{"configs", "list"},
		{"configs", "show"},
		{"configs", "fields"},
		{"configs", "add"},
		{"configs", "clone"},
		{"configs", "rename"},
		{"configs", "delete"},
		{"configs", "describe"},
		{"configs", "set"},
		{"configs", "restore"},
		{"configs", "default"},
		{"bindings", "list"},
		{"bindings", "set"},
		{"bindings", "reset"},
	}

	for _, path := range commands {
		name := path[0] + " " + path[1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	prefsFlag := cmd.PersistentFlags().Lookup("prefs")
	require.NotNil(t, prefsFlag)
	assert.Equal(t, "", prefsFlag.DefValue)
}

func TestConfigsKindFlag(t *testing.T) {
	cmd := NewRootCommand()
	configsCmd, _, err := cmd.Find([]string{"configs", "list"})
	require.NoError(t, err)

	kindFlag := configsCmd.Flags().Lookup("kind")
	require.NotNil(t, kindFlag)
	assert.Equal(t, "k", kindFlag.Shorthand)
	assert.Equal(t, kindExpressed, kindFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "yaml", "prefs", "show"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDefaultPrefsPath(t *testing.T) {
	assert.Contains(t, DefaultPrefsPath(), "preferences.toml")
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"}, nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	called := false
	err := formatter.Success("ignored", func(w io.Writer) {
		called = true
		_, _ = w.Write([]byte("hello\n"))
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "hello\n", buf.String())
}

func TestOutputFormatter_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	formatter.Error(errors.New("boom"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "boom", resp.Error)

	buf.Reset()
	formatter.Format = "text"
	formatter.Error(errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))

	wrapped := WrapExitError(ExitFailure, "outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
	assert.Equal(t, "inner", errors.Unwrap(wrapped).Error())
}
