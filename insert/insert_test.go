package insert

import (
	"errors"
	"testing"
	"time"
)

type fakeClipboard struct {
	text     string
	readErr  error
	writeErr error
	writes   []string
}

func (c *fakeClipboard) Read() (string, error) { return c.text, c.readErr }

func (c *fakeClipboard) Write(text string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	c.writes = append(c.writes, text)
	return nil
}

type harness struct {
	in      *Inserter
	clip    *fakeClipboard
	pastes  int
	typed   []string
	delays  []time.Duration
	pending []func()
}

func newHarness(opts Options) *harness {
	h := &harness{clip: &fakeClipboard{}}
	h.in = New(opts)
	h.in.clip = h.clip
	h.in.typer = nil
	h.in.paste = func() error { h.pastes++; return nil }
	h.in.after = func(d time.Duration, f func()) {
		h.delays = append(h.delays, d)
		h.pending = append(h.pending, f)
	}
	return h
}

func (h *harness) fire() {
	for _, f := range h.pending {
		f()
	}
	h.pending = nil
}

func TestInsertEmpty(t *testing.T) {
	h := newHarness(Options{})
	if h.in.Insert("") {
		t.Error("empty text should not insert")
	}
	if h.pastes != 0 {
		t.Error("paste sent for empty text")
	}
}

func TestInsertDirect(t *testing.T) {
	h := newHarness(Options{Direct: true})
	h.in.typer = func(s string) error { h.typed = append(h.typed, s); return nil }

	if !h.in.Insert("hello") {
		t.Fatal("Insert returned false")
	}
	if len(h.typed) != 1 || h.typed[0] != "hello" {
		t.Errorf("typed = %v", h.typed)
	}
	if h.pastes != 0 || len(h.clip.writes) != 0 {
		t.Error("clipboard path used after direct success")
	}
}

func TestInsertFallsBackToPaste(t *testing.T) {
	h := newHarness(Options{Direct: true})
	h.in.typer = func(string) error { return errors.New("no uinput") }

	if !h.in.Insert("hello") {
		t.Fatal("Insert returned false")
	}
	if h.pastes != 1 || h.clip.text != "hello" {
		t.Errorf("pastes=%d clip=%q", h.pastes, h.clip.text)
	}
}

func TestInsertFailures(t *testing.T) {
	h := newHarness(Options{})
	h.clip.writeErr = errors.New("no display")
	if h.in.Insert("x") {
		t.Error("clipboard write failure should fail")
	}

	h = newHarness(Options{})
	h.in.paste = func() error { return errors.New("denied") }
	if h.in.Insert("x") {
		t.Error("paste failure should fail")
	}
}

func TestRestoreClipboard(t *testing.T) {
	h := newHarness(Options{RestoreClipboard: true})
	h.clip.text = "previous"

	if !h.in.Insert("dictated") {
		t.Fatal("Insert returned false")
	}
	if h.clip.text != "dictated" {
		t.Fatalf("clipboard = %q before restore", h.clip.text)
	}
	if len(h.delays) != 1 || h.delays[0] != DefaultRestoreDelay {
		t.Fatalf("delays = %v", h.delays)
	}
	h.fire()
	if h.clip.text != "previous" {
		t.Errorf("clipboard = %q after restore", h.clip.text)
	}
}

func TestRestoreSkipped(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newHarness(Options{RestoreClipboard: false})
		h.clip.text = "previous"
		h.in.Insert("dictated")
		if len(h.pending) != 0 {
			t.Error("restore scheduled while disabled")
		}
	})
	t.Run("empty", func(t *testing.T) {
		h := newHarness(Options{RestoreClipboard: true})
		h.in.Insert("dictated")
		if len(h.pending) != 0 {
			t.Error("restore scheduled for empty clipboard")
		}
	})
	t.Run("unreadable", func(t *testing.T) {
		h := newHarness(Options{RestoreClipboard: true})
		h.clip.text = "previous"
		h.clip.readErr = errors.New("locked")
		h.in.Insert("dictated")
		if len(h.pending) != 0 {
			t.Error("restore scheduled for unreadable clipboard")
		}
	})
	t.Run("changed", func(t *testing.T) {
		h := newHarness(Options{RestoreClipboard: true, RestoreDelay: time.Second})
		h.clip.text = "previous"
		h.in.Insert("dictated")
		h.clip.text = "copied meanwhile"
		h.fire()
		if h.clip.text != "copied meanwhile" {
			t.Errorf("clipboard = %q", h.clip.text)
		}
		if h.delays[0] != time.Second {
			t.Errorf("delay = %v", h.delays[0])
		}
	})
}

func TestCommandTyper(t *testing.T) {
	typer := commandTyper([]string{"sh", "-c", `test "$0" = "hello world"`})
	if err := typer("hello world"); err != nil {
		t.Errorf("typer: %v", err)
	}
	if err := commandTyper([]string{"false"})("x"); err == nil {
		t.Error("expected error from failing command")
	}
}

func TestNewSelectsTyper(t *testing.T) {
	if New(Options{}).typer != nil {
		t.Error("typer set without Direct")
	}
	if New(Options{Direct: true}).typer == nil {
		t.Error("typer missing with Direct")
	}
}
