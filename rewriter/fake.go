package rewriter

import (
	"context"
	"sync"
)

// Fake rewrites by applying fn, or echoes the transcript when fn is nil.
type Fake struct {
	fn  func(transcript string) string
	err error

	mu           sync.Mutex
	calls        int
	instructions []string
}

func NewFake(fn func(string) string, err error) *Fake {
	return &Fake{fn: fn, err: err}
}

func (f *Fake) Rewrite(_ context.Context, transcript, instructions, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.instructions = append(f.instructions, instructions)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if f.fn == nil {
		return transcript, nil
	}
	return f.fn(transcript), nil
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) Instructions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.instructions...)
}
