package pipeline

import (
	"fmt"
	"strings"
)

type Status int

const (
	Idle Status = iota
	Recording
	Transcribing
	Rewriting
	Inserting
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Rewriting:
		return "rewriting"
	case Inserting:
		return "inserting"
	case Error:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Busy reports whether a run occupies the status. Start intents are
// ignored while busy.
func (s Status) Busy() bool {
	return s >= Recording && s <= Inserting
}

// ActivationMode decides how hotkey presses and releases map to intents.
type ActivationMode int

const (
	Toggle ActivationMode = iota
	Hold
)

func (m ActivationMode) String() string {
	if m == Hold {
		return "hold"
	}
	return "toggle"
}

func ParseMode(s string) (ActivationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "toggle":
		return Toggle, nil
	case "hold", "ptt", "push-to-talk":
		return Hold, nil
	}
	return Toggle, fmt.Errorf("unknown activation mode %q (use toggle or hold)", s)
}

// Update is published to listeners on every transition.
type Update struct {
	RunID      string
	Status     Status
	Detail     string
	Transcript string
	Text       string
	Err        error
}
