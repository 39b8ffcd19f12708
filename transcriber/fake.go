package transcriber

import (
	"context"
	"sync"

	"yada/pipeline"
)

// Fake returns a fixed transcript and records what it was sent.
type Fake struct {
	text string
	err  error

	mu    sync.Mutex
	calls []pipeline.EncodedAudio
	keys  []string
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, audio pipeline.EncodedAudio, credential string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audio)
	f.keys = append(f.keys, credential)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", pipeline.WithKind(pipeline.ErrTransport, err)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *Fake) Calls() []pipeline.EncodedAudio {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.EncodedAudio(nil), f.calls...)
}

func (f *Fake) Credentials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}
