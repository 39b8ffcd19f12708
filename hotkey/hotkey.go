package hotkey

import (
	"fmt"
	"slices"
	"strings"
)

type Hotkey interface {
	// Register starts delivering events for b, replacing any previous
	// registration. Keydown and Keyup return the same channels across
	// registrations.
	Register(b Binding) error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

var modifierNames = []struct {
	mod   Modifier
	names []string
}{
	{ModCtrl, []string{"ctrl", "control"}},
	{ModAlt, []string{"alt", "option", "opt"}},
	{ModShift, []string{"shift"}},
	{ModMeta, []string{"meta", "cmd", "super", "win"}},
}

func (m Modifier) Has(o Modifier) bool { return m&o == o }

// Binding is a key plus the modifiers that must be held with it.
// Bindings are comparable with ==.
type Binding struct {
	Key       string
	Modifiers Modifier
}

var DefaultBinding = Binding{Key: "space", Modifiers: ModCtrl | ModShift}

// Keys every backend can register.
var Keys = func() []string {
	keys := []string{"space", "enter", "tab", "escape", "delete", "up", "down", "left", "right"}
	for c := 'a'; c <= 'z'; c++ {
		keys = append(keys, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		keys = append(keys, string(c))
	}
	for i := 1; i <= 12; i++ {
		keys = append(keys, fmt.Sprintf("f%d", i))
	}
	return keys
}()

var keyAliases = map[string]string{
	"return": "enter",
	"esc":    "escape",
	"del":    "delete",
}

// Parse reads a binding written as "ctrl+shift+space". Exactly one
// non-modifier key is required.
func Parse(s string) (Binding, error) {
	var b Binding
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("invalid hotkey %q", s)
		}
		if mod, ok := lookupModifier(part); ok {
			b.Modifiers |= mod
			continue
		}
		if alias, ok := keyAliases[part]; ok {
			part = alias
		}
		if !slices.Contains(Keys, part) {
			return Binding{}, fmt.Errorf("invalid hotkey %q: unknown key %q", s, part)
		}
		if b.Key != "" {
			return Binding{}, fmt.Errorf("invalid hotkey %q: more than one key", s)
		}
		b.Key = part
	}
	if b.Key == "" {
		return Binding{}, fmt.Errorf("invalid hotkey %q: no key", s)
	}
	return b, nil
}

func lookupModifier(name string) (Modifier, bool) {
	for _, m := range modifierNames {
		if slices.Contains(m.names, name) {
			return m.mod, true
		}
	}
	return 0, false
}

func (b Binding) String() string {
	var parts []string
	for _, m := range modifierNames {
		if b.Modifiers.Has(m.mod) {
			parts = append(parts, m.names[0])
		}
	}
	return strings.Join(append(parts, b.Key), "+")
}

// MarshalText and UnmarshalText let bindings live in config files.
func (b Binding) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Binding) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
