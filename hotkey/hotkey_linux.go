//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

type linuxHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu  sync.Mutex
	reg *registration
}

// registration is one Register call; Unregister closes its devices,
// which ends its reader goroutines.
type registration struct {
	binding Binding
	code    uint16
	files   []*os.File
	stop    chan struct{}
}

func New() Hotkey {
	return &linuxHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *linuxHotkey) Register(b Binding) error {
	code, ok := keyCodes[b.Key]
	if !ok {
		return fmt.Errorf("key %q not supported", b.Key)
	}

	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	reg := &registration{binding: b, code: code, stop: make(chan struct{})}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		reg.files = append(reg.files, f)
	}
	if len(reg.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	h.Unregister()

	h.mu.Lock()
	h.reg = reg
	h.mu.Unlock()

	for _, f := range reg.files {
		go h.readEvents(reg, f)
	}
	return nil
}

func (h *linuxHotkey) readEvents(reg *registration, f *os.File) {
	buf := make([]byte, inputEventSize*16)
	held := map[uint16]bool{}
	keyHeld := false

	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			// value 2 is autorepeat
			pressed := evValue == keyPress
			released := evValue == keyRelease

			if _, ok := modifierCodes[evCode]; ok {
				if pressed {
					held[evCode] = true
				} else if released {
					delete(held, evCode)
				}
				continue
			}
			if evCode != reg.code {
				continue
			}

			if pressed && !keyHeld && heldModifiers(held).Has(reg.binding.Modifiers) {
				keyHeld = true
				h.send(reg, h.keydown)
			} else if released && keyHeld {
				keyHeld = false
				h.send(reg, h.keyup)
			}
		}
	}
}

func (h *linuxHotkey) send(reg *registration, ch chan struct{}) {
	select {
	case <-reg.stop:
	case ch <- struct{}{}:
	default:
	}
}

func heldModifiers(held map[uint16]bool) Modifier {
	var m Modifier
	for code := range held {
		m |= modifierCodes[code]
	}
	return m
}

func (h *linuxHotkey) Unregister() {
	h.mu.Lock()
	reg := h.reg
	h.reg = nil
	h.mu.Unlock()

	if reg == nil {
		return
	}
	close(reg.stop)
	for _, f := range reg.files {
		f.Close()
	}
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose(b Binding) (string, error) {
	if _, ok := keyCodes[b.Key]; !ok {
		return "", fmt.Errorf("key %q not supported", b.Key)
	}
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s, listening for %s", len(keyboards), opened, b), nil
}
