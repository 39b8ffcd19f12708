package hotkey

import (
	"fmt"
	"sync"
)

type FakeHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu         sync.Mutex
	registered []Binding
	active     bool
	failKeys   map[string]bool
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

// FailOn makes Register reject bindings using any of keys.
func (f *FakeHotkey) FailOn(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys == nil {
		f.failKeys = map[string]bool{}
	}
	for _, k := range keys {
		f.failKeys[k] = true
	}
}

func (f *FakeHotkey) Register(b Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[b.Key] {
		// Real backends drop the old registration before trying the new one.
		f.active = false
		return fmt.Errorf("hotkey %s is unavailable", b)
	}
	f.registered = append(f.registered, b)
	f.active = true
	return nil
}

func (f *FakeHotkey) Unregister() {
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
}

// Registered returns every binding passed to a successful Register.
func (f *FakeHotkey) Registered() []Binding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Binding(nil), f.registered...)
}

func (f *FakeHotkey) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }
func (f *FakeHotkey) Keyup() <-chan struct{}   { return f.keyup }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
func (f *FakeHotkey) SimKeyup()   { f.keyup <- struct{}{} }
