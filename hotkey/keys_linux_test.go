//go:build linux

package hotkey

import "testing"

func TestEveryKeyHasEvdevCode(t *testing.T) {
	seen := map[uint16]string{}
	for _, k := range Keys {
		code, ok := keyCodes[k]
		if !ok {
			t.Errorf("no evdev code for %q", k)
			continue
		}
		if prev, dup := seen[code]; dup {
			t.Errorf("%q and %q share code %d", prev, k, code)
		}
		seen[code] = k
	}
}

func TestHeldModifiers(t *testing.T) {
	held := map[uint16]bool{97: true, 42: true}
	m := heldModifiers(held)
	if !m.Has(ModCtrl | ModShift) {
		t.Errorf("modifiers = %b, want ctrl+shift", m)
	}
	if m.Has(ModAlt) {
		t.Error("alt reported without being held")
	}
}
