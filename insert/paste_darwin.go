package insert

import "github.com/micmonay/keybd_event"

const pasteKeys = "Cmd+V"

func setPasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(true)
}
