//go:build darwin || windows

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu   sync.Mutex
	hk   *hotkey.Hotkey
	stop chan struct{}
}

func New() Hotkey {
	return &xHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *xHotkey) Register(b Binding) error {
	key, ok := keyCodes[b.Key]
	if !ok {
		return fmt.Errorf("key %q not supported", b.Key)
	}

	h.Unregister()

	hk := hotkey.New(modifiers(b.Modifiers), key)
	if err := hk.Register(); err != nil {
		return err
	}
	stop := make(chan struct{})

	h.mu.Lock()
	h.hk = hk
	h.stop = stop
	h.mu.Unlock()

	go h.forward(hk, stop)
	return nil
}

// forward relays both event streams from one goroutine so a key-down is
// always queued before the key-up that follows it.
func (h *xHotkey) forward(hk *hotkey.Hotkey, stop chan struct{}) {
	down, up := hk.Keydown(), hk.Keyup()
	for {
		var dst chan struct{}
		select {
		case <-stop:
			return
		case _, ok := <-down:
			if !ok {
				return
			}
			dst = h.keydown
		case _, ok := <-up:
			if !ok {
				return
			}
			dst = h.keyup
		}
		select {
		case dst <- struct{}{}:
		case <-stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	h.mu.Lock()
	hk, stop := h.hk, h.stop
	h.hk, h.stop = nil, nil
	h.mu.Unlock()

	if hk == nil {
		return
	}
	close(stop)
	hk.Unregister()
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

var keyCodes = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "tab": hotkey.KeyTab,
	"escape": hotkey.KeyEscape, "delete": hotkey.KeyDelete,
	"up": hotkey.KeyUp, "down": hotkey.KeyDown, "left": hotkey.KeyLeft, "right": hotkey.KeyRight,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

func Diagnose(b Binding) (string, error) {
	if _, ok := keyCodes[b.Key]; !ok {
		return "", fmt.Errorf("key %q not supported", b.Key)
	}
	return fmt.Sprintf("hotkey support available (%s)", b), nil
}
