//go:build !darwin

package insert

import "github.com/micmonay/keybd_event"

const pasteKeys = "Ctrl+V"

func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
