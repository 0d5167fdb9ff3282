package keybind

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptyChord   = errors.New("empty key chord")
	ErrInvalidChord = errors.New("invalid key chord")
)

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModCtrl indicates the Control key.
	ModCtrl Modifier = 1 << (iota - 1)

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModShift indicates the Shift key.
	ModShift

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// String returns a representation like "Ctrl+Alt".
func (m Modifier) String() string {
	var parts []string
	if m.Has(ModCtrl) {
		parts = append(parts, "Ctrl")
	}
	if m.Has(ModAlt) {
		parts = append(parts, "Alt")
	}
	if m.Has(ModShift) {
		parts = append(parts, "Shift")
	}
	if m.Has(ModMeta) {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}

// modifierNames maps lowercase modifier names to values.
var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"win":     ModMeta,
	"super":   ModMeta,
}

// keyNames maps lowercase key names and aliases to canonical names.
var keyNames = withFunctionKeys(map[string]string{
	"enter":     "Enter",
	"return":    "Enter",
	"cr":        "Enter",
	"escape":    "Escape",
	"esc":       "Escape",
	"tab":       "Tab",
	"space":     "Space",
	"backspace": "Backspace",
	"bs":        "Backspace",
	"delete":    "Delete",
	"del":       "Delete",
	"insert":    "Insert",
	"ins":       "Insert",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pgup":      "PageUp",
	"pagedown":  "PageDown",
	"pgdn":      "PageDown",
	"plus":      "Plus",
	"minus":     "Minus",
})

func withFunctionKeys(m map[string]string) map[string]string {
	for i := 1; i <= 12; i++ {
		m[fmt.Sprintf("f%d", i)] = fmt.Sprintf("F%d", i)
	}
	return m
}

// Chord is a key with modifiers, such as Ctrl+Shift+Z.
type Chord struct {
	Mods Modifier
	Key  string
}

// ParseChord parses "Ctrl+S" style notation. Modifier and key names are
// case-insensitive; letters are stored uppercase.
func ParseChord(spec string) (Chord, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Chord{}, ErrEmptyChord
	}

	parts := strings.Split(spec, "+")
	var mods Modifier

	// All but the last part are modifiers
	for _, p := range parts[:len(parts)-1] {
		p = strings.TrimSpace(p)
		mod, ok := modifierNames[strings.ToLower(p)]
		if !ok {
			return Chord{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidChord, p)
		}
		mods |= mod
	}

	key, err := canonicalKey(parts[len(parts)-1])
	if err != nil {
		return Chord{}, err
	}
	return Chord{Mods: mods, Key: key}, nil
}

// MustParseChord is ParseChord for static tables. It panics on error.
func MustParseChord(spec string) Chord {
	c, err := ParseChord(spec)
	if err != nil {
		panic(err)
	}
	return c
}

func canonicalKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: missing key", ErrInvalidChord)
	}
	if name, ok := keyNames[strings.ToLower(s)]; ok {
		return name, nil
	}
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return string(unicode.ToUpper(r)), nil
		}
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidChord, s)
}

// String returns the canonical form, modifiers in Ctrl, Alt, Shift, Meta
// order.
func (c Chord) String() string {
	if c.Mods == ModNone {
		return c.Key
	}
	return c.Mods.String() + "+" + c.Key
}

// MarshalText implements encoding.TextMarshaler.
func (c Chord) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Chord) UnmarshalText(text []byte) error {
	parsed, err := ParseChord(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
