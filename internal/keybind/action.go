package keybind

// Action is an editor operation that can be bound to key chords.
type Action int

const (
	ActionUndo Action = iota
	ActionRedo
	ActionNew
	ActionOpen
	ActionSave
	ActionSaveAs
	ActionTogglePlayback
	ActionToggleWaveform
	ActionToggleMiniMap
	ActionToggleLog
	ActionZoomIn
	ActionZoomOut
	ActionPreviousRow
	ActionNextRow

	actionCount
)

// Descriptor describes a bindable action.
type Descriptor struct {
	Action Action

	// Name is the persisted name.
	Name string

	// Category groups actions in listings.
	Category string

	// Defaults are the chords bound on a fresh install.
	Defaults []Chord
}

func chords(specs ...string) []Chord {
	out := make([]Chord, len(specs))
	for i, s := range specs {
		out[i] = MustParseChord(s)
	}
	return out
}

// descriptors is indexed by Action.
var descriptors = [actionCount]Descriptor{
	ActionUndo:           {ActionUndo, "undo", "Edit", chords("Ctrl+Z")},
	ActionRedo:           {ActionRedo, "redo", "Edit", chords("Ctrl+Shift+Z", "Ctrl+Y")},
	ActionNew:            {ActionNew, "new", "File", chords("Ctrl+N")},
	ActionOpen:           {ActionOpen, "open", "File", chords("Ctrl+O")},
	ActionSave:           {ActionSave, "save", "File", chords("Ctrl+S")},
	ActionSaveAs:         {ActionSaveAs, "saveAs", "File", chords("Ctrl+Shift+S")},
	ActionTogglePlayback: {ActionTogglePlayback, "togglePlayback", "Playback", chords("Space")},
	ActionToggleWaveform: {ActionToggleWaveform, "toggleWaveform", "View", chords("Ctrl+W")},
	ActionToggleMiniMap:  {ActionToggleMiniMap, "toggleMiniMap", "View", chords("Ctrl+M")},
	ActionToggleLog:      {ActionToggleLog, "toggleLog", "View", chords("Ctrl+L")},
	ActionZoomIn:         {ActionZoomIn, "zoomIn", "View", chords("Ctrl+Plus", "Ctrl+=")},
	ActionZoomOut:        {ActionZoomOut, "zoomOut", "View", chords("Ctrl+Minus")},
	ActionPreviousRow:    {ActionPreviousRow, "previousRow", "Navigation", chords("Up")},
	ActionNextRow:        {ActionNextRow, "nextRow", "Navigation", chords("Down")},
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(descriptors))
	for _, d := range descriptors {
		m[d.Name] = d.Action
	}
	return m
}()

// Descriptors returns every action descriptor in declaration order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors[:])
	return out
}

// Describe returns the descriptor for a.
func Describe(a Action) (Descriptor, bool) {
	if !a.Valid() {
		return Descriptor{}, false
	}
	return descriptors[a], true
}

// ActionByName looks up an action by persisted name.
func ActionByName(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}

// Valid reports whether a is a declared action.
func (a Action) Valid() bool {
	return a >= 0 && a < actionCount
}

func (a Action) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return descriptors[a].Name
}
