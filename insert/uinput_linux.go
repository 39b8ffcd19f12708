package insert

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"
)

// ioctl constants from linux/uinput.h
const (
	uiSetEvbit  = 0x40045564 // UI_SET_EVBIT
	uiSetKeybit = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate = 0x5501     // UI_DEV_CREATE
)

// input event types from linux/input-event-codes.h
const (
	evSyn = 0x00
	evKey = 0x01
)

const (
	busUSB       = 0x03
	keyLeftShift = 42
	deviceName   = "yada-keyboard"
)

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// virtualKeyboard is a uinput device created on first use and kept for
// the life of the process.
type virtualKeyboard struct {
	once sync.Once
	mu   sync.Mutex
	f    *os.File
	err  error
}

var keyboard virtualKeyboard

func initDirect() error {
	return keyboard.open()
}

func (k *virtualKeyboard) open() error {
	k.once.Do(func() {
		k.f, k.err = createDevice()
	})
	return k.err
}

func createDevice() (*os.File, error) {
	path := "/dev/uinput"
	if _, err := os.Stat(path); err != nil {
		path = "/dev/input/uinput"
		if _, err := os.Stat(path); err != nil {
			return nil, errors.New("uinput device not found, try: sudo modprobe uinput")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	ioctl := func(req, arg uintptr) error {
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, arg); errno != 0 {
			return errno
		}
		return nil
	}
	if err := ioctl(uiSetEvbit, evKey); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(uiSetEvbit, evSyn); err != nil {
		f.Close()
		return nil, err
	}
	// Register all standard keys so udev classifies this as a keyboard
	for i := uintptr(0); i < 256; i++ {
		if err := ioctl(uiSetKeybit, i); err != nil {
			f.Close()
			return nil, err
		}
	}
	dev := uinputUserDev{}
	copy(dev.Name[:], deviceName)
	dev.ID.Bustype = busUSB
	dev.ID.Vendor = 0x1234
	dev.ID.Product = 0x5679
	dev.ID.Version = 1
	if err := binary.Write(f, binary.LittleEndian, &dev); err != nil {
		f.Close()
		return nil, err
	}
	if err := ioctl(uiDevCreate, 0); err != nil {
		f.Close()
		return nil, err
	}
	// Give the compositor time to pick up the new device
	time.Sleep(200 * time.Millisecond)
	return f, nil
}

func (k *virtualKeyboard) emit(typ, code uint16, value int32) error {
	if err := binary.Write(k.f, binary.LittleEndian, &inputEvent{Type: typ, Code: code, Value: value}); err != nil {
		return err
	}
	return binary.Write(k.f, binary.LittleEndian, &inputEvent{Type: evSyn})
}

func (k *virtualKeyboard) tap(s keyStroke) error {
	if s.shift {
		if err := k.emit(evKey, keyLeftShift, 1); err != nil {
			return err
		}
	}
	if err := k.emit(evKey, s.code, 1); err != nil {
		return err
	}
	if err := k.emit(evKey, s.code, 0); err != nil {
		return err
	}
	if s.shift {
		return k.emit(evKey, keyLeftShift, 0)
	}
	return nil
}

// typeDirect types text on the virtual keyboard. Text containing a
// character without a US-layout key is rejected before anything is sent.
func typeDirect(text string) error {
	strokes, err := keyStrokes(text)
	if err != nil {
		return err
	}
	if err := keyboard.open(); err != nil {
		return fmt.Errorf("uinput: %w", err)
	}
	keyboard.mu.Lock()
	defer keyboard.mu.Unlock()
	for _, s := range strokes {
		if err := keyboard.tap(s); err != nil {
			return err
		}
	}
	return nil
}
