package configset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stepforge/stepforge/internal/history"
)

type testConfig struct {
	Level int
	Rate  float64
}

func (c *testConfig) Clone() *testConfig {
	cp := *c
	return &cp
}

func (c *testConfig) Assign(src *testConfig) {
	c.Level = src.Level
	c.Rate = src.Rate
}

func (c *testConfig) Equal(other *testConfig) bool {
	return *c == *other
}

func (c *testConfig) Validate() error {
	if c.Rate < 0 {
		return errors.New("rate must not be negative")
	}
	return nil
}

var (
	dynamicID    = MustParseID("3a6a8f4e-5f3b-4c41-9d1e-0b8c2f6c1a01")
	aggressiveID = MustParseID("3a6a8f4e-5f3b-4c41-9d1e-0b8c2f6c1a02")
	noBracketsID = MustParseID("3a6a8f4e-5f3b-4c41-9d1e-0b8c2f6c1a03")
)

func defaultTestConfig() *testConfig {
	return &testConfig{Level: 1, Rate: 2}
}

func newTestCollection(opts ...Option) *Collection[*testConfig] {
	builtins := []Builtin[*testConfig]{
		{ID: dynamicID, Name: "Dynamic", New: defaultTestConfig},
		{ID: aggressiveID, Name: "Aggressive Brackets", New: func() *testConfig { return &testConfig{Level: 9, Rate: 1} }},
		{ID: noBracketsID, Name: "No Brackets", New: func() *testConfig { return &testConfig{Level: 0, Rate: 0} }},
	}
	return NewCollection("config", defaultTestConfig, builtins, opts...)
}

func TestCollectionSeedsBuiltins(t *testing.T) {
	c := newTestCollection()

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"Dynamic", "Aggressive Brackets", "No Brackets"}, c.Names())
	for _, id := range []ID{dynamicID, aggressiveID, noBracketsID} {
		e, ok := c.Get(id)
		require.True(t, ok)
		assert.True(t, e.IsBuiltin())
		assert.True(t, c.IsBuiltinID(id))
	}
}

func TestCollectionScenario(t *testing.T) {
	c := newTestCollection()

	e := c.NewEntry("New Config", defaultTestConfig())
	require.True(t, c.Add(e))
	assert.Equal(t, []string{"Dynamic", "Aggressive Brackets", "No Brackets", "New Config"}, c.Names())

	assert.False(t, c.Rename(e.ID(), "Dynamic"))
	assert.Equal(t, "New Config", e.Name())

	assert.True(t, c.Rename(e.ID(), "My Tuning"))
	assert.Equal(t, []string{"Dynamic", "Aggressive Brackets", "No Brackets", "My Tuning"}, c.Names())
}

func TestCollectionAddRejectsCollision(t *testing.T) {
	c := newTestCollection()

	assert.False(t, c.Add(c.NewEntry("Dynamic", defaultTestConfig())))
	assert.False(t, c.Add(c.NewEntry("  Dynamic ", defaultTestConfig())))
	assert.False(t, c.Add(c.NewEntry("   ", defaultTestConfig())))
	assert.Equal(t, 3, c.Len())
}

func TestCollectionNamesCompareNormalized(t *testing.T) {
	c := newTestCollection()

	require.True(t, c.Add(c.NewEntry("Caf\u00e9", defaultTestConfig())))
	assert.False(t, c.Add(c.NewEntry("Cafe\u0301", defaultTestConfig())))
}

func TestCollectionRenameCollisionKeepsBothNames(t *testing.T) {
	c := newTestCollection()
	a := c.NewEntry("A", defaultTestConfig())
	b := c.NewEntry("B", defaultTestConfig())
	require.True(t, c.Add(a))
	require.True(t, c.Add(b))

	assert.False(t, c.Rename(a.ID(), "B"))
	assert.Equal(t, "A", a.Name())
	assert.Equal(t, "B", b.Name())
}

func TestCollectionRenameBuiltinRefused(t *testing.T) {
	c := newTestCollection()

	assert.False(t, c.CanRename(dynamicID, "Something Else"))
	assert.False(t, c.Rename(dynamicID, "Something Else"))
}

func TestCollectionRenameEvents(t *testing.T) {
	c := newTestCollection()
	e := c.NewEntry("Old", defaultTestConfig())
	require.True(t, c.Add(e))

	var got []Rename
	c.Events().Subscribe(EventRenamed, func(_ *Collection[*testConfig], payload any) {
		r, ok := payload.(Rename)
		require.True(t, ok)
		got = append(got, r)
	})
	var entryRenames int
	e.Events().Subscribe(EntryRenamed, func(*Entry[*testConfig], any) { entryRenames++ })

	require.True(t, c.Rename(e.ID(), "New"))
	assert.Equal(t, []Rename{{ID: e.ID(), OldName: "Old", NewName: "New"}}, got)
	assert.Equal(t, 1, entryRenames)
}

func TestCollectionDeleteBuiltinIsNoop(t *testing.T) {
	c := newTestCollection()

	assert.False(t, c.Delete(dynamicID))
	assert.Equal(t, 3, c.Len())
	_, ok := c.Get(dynamicID)
	assert.True(t, ok)
}

func TestCollectionDeleteClearsDisplay(t *testing.T) {
	c := newTestCollection()
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))
	require.True(t, c.SetDisplay(e.ID()))

	require.True(t, c.Delete(e.ID()))
	_, displayed := c.Display()
	assert.False(t, displayed)
}

func TestCollectionSetDisplayUnknown(t *testing.T) {
	c := newTestCollection()

	assert.False(t, c.SetDisplay(NewID()))
	assert.True(t, c.SetDisplay(dynamicID))
	id, ok := c.Display()
	assert.True(t, ok)
	assert.Equal(t, dynamicID, id)
}

func TestCollectionClone(t *testing.T) {
	c := newTestCollection()
	src, _ := c.Get(aggressiveID)

	e, ok := c.Clone(aggressiveID, "Copy")
	require.True(t, ok)
	assert.NotEqual(t, aggressiveID, e.ID())
	assert.False(t, e.IsBuiltin())
	assert.True(t, e.Payload().Equal(src.Payload()))

	e.Payload().Level = 3
	assert.Equal(t, 9, src.Payload().Level)

	_, ok = c.Clone(aggressiveID, "Copy")
	assert.False(t, ok)
}

func TestCollectionSortIsAlphabeticalAfterBuiltins(t *testing.T) {
	c := newTestCollection()
	for _, name := range []string{"zeta", "Alpha", "beta"} {
		require.True(t, c.Add(c.NewEntry(name, defaultTestConfig())))
	}

	assert.Equal(t, []string{"Dynamic", "Aggressive Brackets", "No Brackets", "Alpha", "beta", "zeta"}, c.Names())
}

func TestCollectionUniqueName(t *testing.T) {
	c := newTestCollection()

	assert.Equal(t, "Fresh", c.UniqueName("Fresh"))
	assert.Equal(t, "Dynamic (2)", c.UniqueName("Dynamic"))
	require.True(t, c.Add(c.NewEntry("Dynamic (2)", defaultTestConfig())))
	assert.Equal(t, "Dynamic (3)", c.UniqueName("Dynamic"))
}

func TestCollectionInsert(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestCollection(WithLogger(zap.New(core)))

	id := NewID()
	first := c.Insert(id, "Loaded", "", defaultTestConfig())
	assert.Equal(t, id, first.ID())

	second := c.Insert(id, "Loaded", "", defaultTestConfig())
	assert.NotEqual(t, id, second.ID())
	assert.Equal(t, "Loaded (2)", second.Name())

	third := c.Insert(NilID, "Other", "", defaultTestConfig())
	assert.NotEqual(t, NilID, third.ID())

	assert.Equal(t, 6, c.Len())
	assert.Equal(t, 2, logs.Len())
}

func TestCollectionReseedBuiltins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestCollection(WithLogger(zap.New(core)))

	// A stale builtin payload and an old built-in name read from disk.
	c.Insert(dynamicID, "Dynamic", "", &testConfig{Level: 42, Rate: 42})
	c.Insert(noBracketsID, "Plain", "", defaultTestConfig())
	squatter := c.Insert(NewID(), "No Brackets", "", defaultTestConfig())
	require.Equal(t, "No Brackets", squatter.Name())
	require.True(t, c.SetDisplay(dynamicID))

	var reseeded bool
	c.Events().Subscribe(EventReseeded, func(*Collection[*testConfig], any) { reseeded = true })

	c.ReseedBuiltins()

	e, _ := c.Get(dynamicID)
	assert.True(t, e.Payload().Equal(defaultTestConfig()))
	assert.True(t, reseeded)
	assert.Equal(t, "No Brackets (2)", squatter.Name())
	nb, _ := c.Get(noBracketsID)
	assert.Equal(t, "No Brackets", nb.Name())
	id, ok := c.Display()
	assert.True(t, ok)
	assert.Equal(t, dynamicID, id)
	assert.GreaterOrEqual(t, logs.FilterMessage("user entry uses a built-in name, renaming").Len(), 1)
}

func TestCollectionValidateAndPrune(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestCollection(WithLogger(zap.New(core)))

	good := c.NewEntry("Good", defaultTestConfig())
	bad := c.NewEntry("Bad", &testConfig{Rate: -1})
	require.True(t, c.Add(good))
	require.True(t, c.Add(bad))
	require.True(t, c.SetDisplay(bad.ID()))

	assert.Equal(t, 1, c.ValidateAndPrune())
	_, ok := c.Get(bad.ID())
	assert.False(t, ok)
	_, ok = c.Get(good.ID())
	assert.True(t, ok)
	_, displayed := c.Display()
	assert.False(t, displayed)

	entries := logs.FilterMessage("removing invalid entry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestAddCommandUndoRedo(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)

	cmd, ok := NewAddCommand(c, "New Config")
	require.True(t, ok)
	h.Submit(cmd)

	id := cmd.Entry().ID()
	_, ok = c.Get(id)
	assert.True(t, ok)
	shown, _ := c.Display()
	assert.Equal(t, id, shown)
	assert.True(t, h.IsDirty())

	h.Undo()
	_, ok = c.Get(id)
	assert.False(t, ok)
	_, displayed := c.Display()
	assert.False(t, displayed)

	h.Redo()
	e, ok := c.Get(id)
	require.True(t, ok)
	assert.Same(t, cmd.Entry(), e)

	_, ok = NewAddCommand(c, "New Config")
	assert.False(t, ok)
}

func TestDeleteCommandRestoresEntryAndDisplay(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))
	require.True(t, c.SetDisplay(e.ID()))

	_, ok := NewDeleteCommand(c, dynamicID)
	assert.False(t, ok)

	cmd, ok := NewDeleteCommand(c, e.ID())
	require.True(t, ok)
	h.Submit(cmd)
	assert.Equal(t, 3, c.Len())

	h.Undo()
	got, ok := c.Get(e.ID())
	require.True(t, ok)
	assert.Same(t, e, got)
	shown, _ := c.Display()
	assert.Equal(t, e.ID(), shown)
}

func TestRenameCommand(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)
	e := c.NewEntry("New Config", defaultTestConfig())
	require.True(t, c.Add(e))

	_, ok := NewRenameCommand(c, e.ID(), "Dynamic")
	assert.False(t, ok)
	_, ok = NewRenameCommand(c, e.ID(), "New Config")
	assert.False(t, ok)

	cmd, ok := NewRenameCommand(c, e.ID(), "My Tuning")
	require.True(t, ok)
	h.Submit(cmd)
	assert.Equal(t, "My Tuning", e.Name())

	h.Undo()
	assert.Equal(t, "New Config", e.Name())
	assert.Equal(t, []string{"Dynamic", "Aggressive Brackets", "No Brackets", "New Config"}, c.Names())
}

func TestSetDescriptionCommand(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))

	cmd, ok := NewSetDescriptionCommand(c, e.ID(), "for fast songs")
	require.True(t, ok)
	h.Submit(cmd)
	assert.Equal(t, "for fast songs", e.Description())

	h.Undo()
	assert.Equal(t, "", e.Description())

	_, ok = NewSetDescriptionCommand(c, dynamicID, "x")
	assert.False(t, ok)
}

func TestRestoreDefaultsCommand(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))

	_, ok := NewRestoreDefaultsCommand(c, e.ID())
	assert.False(t, ok, "already at defaults")

	e.Payload().Level = 7
	cmd, ok := NewRestoreDefaultsCommand(c, e.ID())
	require.True(t, ok)
	h.Submit(cmd)
	assert.Equal(t, 1, e.Payload().Level)

	h.Undo()
	assert.Equal(t, 7, e.Payload().Level)
}

func TestSetDisplayCommandIsNotPersisted(t *testing.T) {
	c := newTestCollection()
	h := history.NewHistory(10)

	cmd, ok := NewSetDisplayCommand(c, aggressiveID)
	require.True(t, ok)
	h.Submit(cmd)
	assert.False(t, h.IsDirty())
	shown, _ := c.Display()
	assert.Equal(t, aggressiveID, shown)

	h.Undo()
	_, displayed := c.Display()
	assert.False(t, displayed)
}

func levelChange(v int) func(*testConfig) ([]history.FieldChange, error) {
	return func(p *testConfig) ([]history.FieldChange, error) {
		return []history.FieldChange{
			history.Change("level", func() int { return p.Level }, func(v int) { p.Level = v }, v),
		}, nil
	}
}

func rateChange(v float64) func(*testConfig) ([]history.FieldChange, error) {
	return func(p *testConfig) ([]history.FieldChange, error) {
		return []history.FieldChange{
			history.Change("rate", func() float64 { return p.Rate }, func(v float64) { p.Rate = v }, v),
		}, nil
	}
}

func TestEditPayload(t *testing.T) {
	c := newTestCollection()
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))
	p := e.Payload()

	_, ok, err := EditPayload(c, e.ID(), "noop", levelChange(1))
	require.NoError(t, err)
	assert.False(t, ok)

	cmd, ok, err := EditPayload(c, e.ID(), "Set level", levelChange(5))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, p.Level, "building the command does not write")
	cmd.Apply()
	assert.Equal(t, 5, p.Level)
	cmd.Revert()
	assert.Equal(t, 1, p.Level)

	_, ok, err = EditPayload(c, dynamicID, "Set level", levelChange(5))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = EditPayload(c, e.ID(), "Set rate", func(*testConfig) ([]history.FieldChange, error) {
		return nil, errors.New("bad text")
	})
	assert.EqualError(t, err, "bad text")
	assert.False(t, ok)
}

func TestEditPayloadRejectsInvalidResult(t *testing.T) {
	c := newTestCollection()
	e := c.NewEntry("Mine", defaultTestConfig())
	require.True(t, c.Add(e))

	cmd, ok, err := EditPayload(c, e.ID(), "Set rate", rateChange(-1))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.False(t, ok)
	assert.Nil(t, cmd)
	assert.Equal(t, 2.0, e.Payload().Rate, "the live payload is untouched")

	// Loading runs the same validation and keeps the entry.
	assert.Zero(t, c.ValidateAndPrune())
	_, ok = c.Get(e.ID())
	assert.True(t, ok)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "added", EventAdded.String())
	assert.Equal(t, "pruned", EventPruned.String())
	assert.Equal(t, "unknown", Event(99).String())
	assert.Equal(t, "renamed", EntryRenamed.String())
}
