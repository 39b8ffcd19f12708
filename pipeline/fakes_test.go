package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"yada/encoder"
	"yada/pipeline"
)

type fakeSink struct {
	mu       sync.Mutex
	startErr error
	pcm      []byte
	hang     bool
	starts   []*int
	stops    int
}

func (s *fakeSink) Start(idx *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, idx)
	return s.startErr
}

func (s *fakeSink) Stop(ctx context.Context) pipeline.CapturedAudio {
	s.mu.Lock()
	hang := s.hang
	s.mu.Unlock()
	if hang {
		<-ctx.Done()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return pipeline.CapturedAudio{PCM: s.pcm, SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

func (s *fakeSink) Starts() []*int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*int(nil), s.starts...)
}

func (s *fakeSink) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

var wavEncoder = pipeline.EncoderFunc(func(a pipeline.CapturedAudio) (pipeline.EncodedAudio, error) {
	return pipeline.EncodedAudio{
		Data:     encoder.EncodeWAV(a.PCM, a.SampleRate, a.Channels, a.BitsPerSample),
		Format:   encoder.FormatWAV,
		Duration: a.Duration(),
	}, nil
})

// gateTranscriber blocks until release is closed.
type gateTranscriber struct {
	release chan struct{}
	text    string
}

func (g *gateTranscriber) Transcribe(ctx context.Context, _ pipeline.EncodedAudio, _ string) (string, error) {
	select {
	case <-g.release:
		return g.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// gateRewriter echoes the transcript once release is closed.
type gateRewriter struct {
	release chan struct{}
}

func (g *gateRewriter) Rewrite(ctx context.Context, transcript, _, _ string) (string, error) {
	select {
	case <-g.release:
		return transcript, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// gateInserter reports success once release is closed.
type gateInserter struct {
	release chan struct{}
}

func (g *gateInserter) Insert(string) bool {
	<-g.release
	return true
}

type fakeInserter struct {
	mu    sync.Mutex
	ok    bool
	texts []string
}

func (f *fakeInserter) Insert(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.ok
}

func (f *fakeInserter) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type memSettings struct {
	mu    sync.Mutex
	s     pipeline.Settings
	saved chan pipeline.Settings
}

func newMemSettings(s pipeline.Settings) *memSettings {
	return &memSettings{s: s, saved: make(chan pipeline.Settings, 8)}
}

func (m *memSettings) Load() pipeline.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func (m *memSettings) Set(s pipeline.Settings) {
	m.mu.Lock()
	m.s = s
	m.mu.Unlock()
}

func (m *memSettings) Save(s pipeline.Settings) error {
	m.Set(s)
	m.saved <- s
	return nil
}

type memCreds struct {
	mu  sync.Mutex
	key string
}

func (c *memCreds) Load() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key, c.key != ""
}

func (c *memCreds) Save(k string) error {
	c.mu.Lock()
	c.key = k
	c.mu.Unlock()
	return nil
}

func (c *memCreds) Delete() error { return c.Save("") }

// recorder collects published updates.
type recorder struct {
	ch chan pipeline.Update
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan pipeline.Update, 64)}
}

func (r *recorder) StatusChanged(u pipeline.Update) { r.ch <- u }

func (r *recorder) next(t *testing.T) pipeline.Update {
	t.Helper()
	select {
	case u := <-r.ch:
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an update")
		return pipeline.Update{}
	}
}

// expect reads updates until one has status s, failing on any terminal
// update in between.
func (r *recorder) expect(t *testing.T, s pipeline.Status) pipeline.Update {
	t.Helper()
	for {
		u := r.next(t)
		if u.Status == s {
			return u
		}
		if u.Status == pipeline.Idle || u.Status == pipeline.Error {
			t.Fatalf("got %s (%q) while waiting for %s", u.Status, u.Detail, s)
		}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case u := <-r.ch:
		t.Fatalf("unexpected update %s (%q)", u.Status, u.Detail)
	default:
	}
}
