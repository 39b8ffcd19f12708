// Package insert puts text at the cursor of the focused application.
package insert

import (
	"errors"
	"time"

	"yada/log"
)

const DefaultRestoreDelay = 600 * time.Millisecond

type Options struct {
	// Direct types the text as keystrokes before falling back to paste.
	Direct bool
	// TypeCommand replaces the built-in typer; the text is appended as
	// the last argument.
	TypeCommand      []string
	RestoreClipboard bool
	RestoreDelay     time.Duration
}

// Clipboard is the system text clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

type Inserter struct {
	opts  Options
	clip  Clipboard
	typer func(string) error
	paste func() error
	after func(time.Duration, func())
}

func New(opts Options) *Inserter {
	if opts.RestoreDelay <= 0 {
		opts.RestoreDelay = DefaultRestoreDelay
	}
	in := &Inserter{
		opts:  opts,
		clip:  systemClipboard{},
		paste: sendPaste,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	if opts.Direct {
		if len(opts.TypeCommand) > 0 {
			in.typer = commandTyper(opts.TypeCommand)
		} else {
			in.typer = typeDirect
		}
	}
	return in
}

// Insert reports whether any insertion path succeeded.
func (in *Inserter) Insert(text string) bool {
	if text == "" {
		return false
	}
	if in.typer != nil {
		err := in.typer(text)
		if err == nil {
			return true
		}
		log.Warnf("direct insert failed, falling back to paste: %v", err)
	}
	return in.pasteText(text)
}

func (in *Inserter) pasteText(text string) bool {
	prev, readErr := in.clip.Read()
	if err := in.clip.Write(text); err != nil {
		log.Errorf("clipboard write: %v", err)
		return false
	}
	if err := in.paste(); err != nil {
		log.Errorf("paste keystroke: %v", err)
		return false
	}
	if in.opts.RestoreClipboard && readErr == nil && prev != "" {
		in.after(in.opts.RestoreDelay, func() { in.restore(text, prev) })
	}
	return true
}

// restore puts prev back unless the clipboard changed since the paste.
func (in *Inserter) restore(pasted, prev string) {
	cur, err := in.clip.Read()
	if err != nil || cur != pasted {
		return
	}
	if err := in.clip.Write(prev); err != nil {
		log.Warnf("clipboard restore: %v", err)
	}
}

var errDirectUnsupported = errors.New("direct typing is not supported on this platform")

// Check prepares the insertion backends and describes them.
func (in *Inserter) Check() (string, error) {
	if _, err := in.clip.Read(); err != nil {
		return "", err
	}
	if err := initPaste(); err != nil {
		return "", err
	}
	desc := "clipboard + " + pasteKeys
	switch {
	case !in.opts.Direct:
	case len(in.opts.TypeCommand) > 0:
		desc = in.opts.TypeCommand[0] + ", then " + desc
	default:
		if err := initDirect(); err != nil {
			return desc + " (direct typing unavailable: " + err.Error() + ")", nil
		}
		desc = "direct typing, then " + desc
	}
	return desc, nil
}
