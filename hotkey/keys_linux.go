//go:build linux

package hotkey

import "fmt"

// evdev key codes from linux/input-event-codes.h
var keyCodes = func() map[string]uint16 {
	m := map[string]uint16{
		"space":  57,
		"enter":  28,
		"tab":    15,
		"escape": 1,
		"delete": 111,
		"up":     103,
		"left":   105,
		"right":  106,
		"down":   108,
		"f11":    87,
		"f12":    88,
	}
	// a..z in alphabet order
	letters := [26]uint16{
		30, 48, 46, 32, 18, 33, 34, 35, 23, 36,
		37, 38, 50, 49, 24, 25, 16, 19, 31, 20,
		22, 47, 17, 45, 21, 44,
	}
	for i, code := range letters {
		m[string(rune('a'+i))] = code
	}
	// 1..9 are 2..10, 0 is 11
	for i := 1; i <= 9; i++ {
		m[string(rune('0'+i))] = uint16(i + 1)
	}
	m["0"] = 11
	// f1..f10 are contiguous
	for i := 1; i <= 10; i++ {
		m[fmt.Sprintf("f%d", i)] = uint16(58 + i)
	}
	return m
}()

var modifierCodes = map[uint16]Modifier{
	29:  ModCtrl,  // KEY_LEFTCTRL
	97:  ModCtrl,  // KEY_RIGHTCTRL
	42:  ModShift, // KEY_LEFTSHIFT
	54:  ModShift, // KEY_RIGHTSHIFT
	56:  ModAlt,   // KEY_LEFTALT
	100: ModAlt,   // KEY_RIGHTALT
	125: ModMeta,  // KEY_LEFTMETA
	126: ModMeta,  // KEY_RIGHTMETA
}
