package keybind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stepforge/stepforge/internal/history"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		spec string
		want Chord
		str  string
	}{
		{"Ctrl+Shift+Z", Chord{ModCtrl | ModShift, "Z"}, "Ctrl+Shift+Z"},
		{"shift+ctrl+z", Chord{ModCtrl | ModShift, "Z"}, "Ctrl+Shift+Z"},
		{"Cmd+S", Chord{ModMeta, "S"}, "Meta+S"},
		{" Alt + F4 ", Chord{ModAlt, "F4"}, "Alt+F4"},
		{"esc", Chord{ModNone, "Escape"}, "Escape"},
		{"Ctrl+=", Chord{ModCtrl, "="}, "Ctrl+="},
		{"space", Chord{ModNone, "Space"}, "Space"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseChord(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParseChordErrors(t *testing.T) {
	_, err := ParseChord("  ")
	assert.ErrorIs(t, err, ErrEmptyChord)

	for _, spec := range []string{"Hyper+A", "Ctrl+", "Ctrl+Banana", "Ctrl++"} {
		_, err := ParseChord(spec)
		assert.ErrorIs(t, err, ErrInvalidChord, spec)
	}
}

func TestChordText(t *testing.T) {
	var c Chord
	require.NoError(t, c.UnmarshalText([]byte("ctrl+alt+delete")))
	text, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Alt+Delete", string(text))
}

func TestDescriptors(t *testing.T) {
	ds := Descriptors()
	require.Len(t, ds, int(actionCount))
	for i, d := range ds {
		assert.Equal(t, Action(i), d.Action)
		a, ok := ActionByName(d.Name)
		assert.True(t, ok)
		assert.Equal(t, d.Action, a)
	}
	assert.Equal(t, "redo", ActionRedo.String())
	assert.Equal(t, "unknown", Action(-1).String())
}

func TestDefaultTableHasNoConflicts(t *testing.T) {
	assert.Empty(t, NewTable().Conflicts())
}

func TestTableSetNotifies(t *testing.T) {
	table := NewTable()

	var old []any
	table.Events().Subscribe(ActionUndo, func(_ *Table, payload any) { old = append(old, payload) })

	table.Set(ActionUndo, []Chord{MustParseChord("Alt+Backspace")})
	table.Set(ActionUndo, []Chord{MustParseChord("Alt+Backspace")})

	require.Len(t, old, 1)
	assert.Equal(t, []Chord{MustParseChord("Ctrl+Z")}, old[0])
	assert.False(t, table.IsDefault(ActionUndo))

	table.Reset(ActionUndo)
	assert.True(t, table.IsDefault(ActionUndo))
	assert.Len(t, old, 2)
}

func TestTableGetReturnsCopy(t *testing.T) {
	table := NewTable()
	got := table.Get(ActionRedo)
	got[0] = MustParseChord("F1")
	assert.True(t, table.IsDefault(ActionRedo))
}

func TestTableConflicts(t *testing.T) {
	table := NewTable()
	table.Set(ActionSave, []Chord{MustParseChord("Ctrl+Z")})

	conflicts := table.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, MustParseChord("Ctrl+Z"), conflicts[0].Chord)
	assert.Equal(t, []Action{ActionUndo, ActionSave}, conflicts[0].Actions)
	assert.Equal(t, []Action{ActionUndo, ActionSave}, table.Lookup(MustParseChord("Ctrl+Z")))
}

func TestTableLoadDropsInvalid(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	table := NewTable(WithLogger(zap.New(core)))

	table.Load(map[string][]string{
		"undo":      {"Ctrl+U", "Hyper+Q"},
		"teleport":  {"Ctrl+T"},
		"toggleLog": {},
	})

	assert.Equal(t, []Chord{MustParseChord("Ctrl+U")}, table.Get(ActionUndo))
	assert.Empty(t, table.Get(ActionToggleLog))
	assert.True(t, table.IsDefault(ActionRedo))
	assert.Equal(t, 1, logs.FilterMessage("dropping unparseable key chord").Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping binding for unknown action").Len())
}

func TestTableExportLoadRoundTrip(t *testing.T) {
	a := NewTable()
	a.Set(ActionZoomIn, []Chord{MustParseChord("Ctrl+Shift+Up")})

	b := NewTable()
	b.Load(a.Export())
	assert.True(t, a.Equal(b))
}

func TestTableRepair(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	table := NewTable(WithLogger(zap.New(core)))
	table.Set(ActionOpen, []Chord{MustParseChord("Ctrl+O"), MustParseChord("Ctrl+O")})
	table.Set(ActionNew, []Chord{MustParseChord("Ctrl+O")})

	assert.Equal(t, 1, table.Repair())
	assert.Equal(t, []Chord{MustParseChord("Ctrl+O")}, table.Get(ActionOpen))
	assert.Equal(t, 1, logs.FilterMessage("key chord bound to several actions").Len())
}

func TestTableAssign(t *testing.T) {
	src := NewTable()
	src.Set(ActionSave, []Chord{MustParseChord("F2")})

	dst := NewTable()
	var fired int
	dst.Events().Subscribe(ActionSave, func(*Table, any) { fired++ })
	dst.Assign(src)
	assert.True(t, dst.Equal(src))
	assert.Equal(t, 1, fired)
}

func TestBindingCommands(t *testing.T) {
	table := NewTable()
	h := history.NewHistory(10)

	_, ok := NewSetBindingCommand(table, ActionUndo, table.Get(ActionUndo))
	assert.False(t, ok)
	_, ok = NewResetBindingCommand(table, ActionUndo)
	assert.False(t, ok)
	_, ok = NewResetAllCommand(table)
	assert.False(t, ok)

	cmd, ok := NewSetBindingCommand(table, ActionUndo, []Chord{MustParseChord("Ctrl+U")})
	require.True(t, ok)
	h.Submit(cmd)
	assert.Equal(t, []Chord{MustParseChord("Ctrl+U")}, table.Get(ActionUndo))

	cmd, ok = NewSetBindingCommand(table, ActionSave, []Chord{MustParseChord("F2")})
	require.True(t, ok)
	h.Submit(cmd)

	reset, ok := NewResetAllCommand(table)
	require.True(t, ok)
	assert.Equal(t, []string{"undo", "save"}, reset.Fields())
	h.Submit(reset)
	assert.True(t, table.Equal(NewTable()))

	h.Undo()
	assert.Equal(t, []Chord{MustParseChord("F2")}, table.Get(ActionSave))
	h.Undo()
	h.Undo()
	assert.True(t, table.Equal(NewTable()))
}
