package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"yada/encoder"
	"yada/hotkey"
	"yada/pipeline"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"short", "*****"},
		{"12345678", "********"},
		{"gsk_abcdefgh1234", "gsk_********1234"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.in); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeWithWAV(t *testing.T) {
	pcm := make([]byte, encoder.SampleRate*2)
	got, err := encodeWith(encoder.FormatWAV)(pipeline.CapturedAudio{
		PCM: pcm, SampleRate: encoder.SampleRate, Channels: 1, BitsPerSample: 16,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Format != "wav" {
		t.Errorf("format = %q", got.Format)
	}
	if got.Duration != 1 {
		t.Errorf("duration = %v, want 1", got.Duration)
	}
	if len(got.Data) != 44+len(pcm) {
		t.Errorf("size = %d, want %d", len(got.Data), 44+len(pcm))
	}
}

func TestEncodeWithUnknownFormat(t *testing.T) {
	_, err := encodeWith("ogg")(pipeline.CapturedAudio{PCM: []byte{0, 0}, SampleRate: 16000, Channels: 1, BitsPerSample: 16})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPrintInserter(t *testing.T) {
	var buf bytes.Buffer
	if !(printInserter{w: &buf}).Insert("Hello.") {
		t.Fatal("Insert returned false")
	}
	if buf.String() != "text: Hello.\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestFixedSettings(t *testing.T) {
	fs := &fixedSettings{s: pipeline.DefaultSettings()}
	s := fs.Load()
	s.Mode = pipeline.Hold
	if err := fs.Save(s); err != nil {
		t.Fatal(err)
	}
	if fs.Load().Mode != pipeline.Hold {
		t.Error("Save did not update settings")
	}
}

func TestStaticCredential(t *testing.T) {
	if k, ok := staticCredential("k").Load(); !ok || k != "k" {
		t.Errorf("Load = %q, %v", k, ok)
	}
	if _, ok := staticCredential("").Load(); ok {
		t.Error("empty credential reported present")
	}
	if err := staticCredential("k").Save("x"); err == nil {
		t.Error("Save should fail")
	}
}

func TestReplayScript(t *testing.T) {
	hk := hotkey.NewFake()
	ended := make(chan pipeline.Update, 1)
	done := make(chan struct{})
	close(done)
	toggles := 0

	s := replayScript{
		hk:      hk,
		toggle:  func() { toggles++ },
		ended:   ended,
		audio:   func() <-chan struct{} { return done },
		timeout: time.Second,
	}
	ended <- pipeline.Update{RunID: "r", Status: pipeline.Idle}

	script := "# comment\nKEYDOWN\nWAIT_AUDIO_DONE\nTOGGLE\nWAIT\nSLEEP 1\nQUIT\nKEYUP\n"
	if err := s.run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-hk.Keydown():
	default:
		t.Error("KEYDOWN not delivered")
	}
	select {
	case <-hk.Keyup():
		t.Error("commands after QUIT should not run")
	default:
	}
	if toggles != 1 {
		t.Errorf("toggles = %d, want 1", toggles)
	}
}

func TestReplayScriptErrors(t *testing.T) {
	s := replayScript{
		hk:      hotkey.NewFake(),
		toggle:  func() {},
		ended:   make(chan pipeline.Update),
		audio:   func() <-chan struct{} { return nil },
		timeout: 20 * time.Millisecond,
	}
	tests := []struct {
		script string
		want   error
	}{
		{"WAIT\n", errScriptTimeout},
		{"WAIT_AUDIO_DONE\n", errScriptTimeout},
	}
	for _, tt := range tests {
		err := s.run(context.Background(), strings.NewReader(tt.script))
		if !errors.Is(err, tt.want) {
			t.Errorf("%q: err = %v, want %v", tt.script, err, tt.want)
		}
	}
	for _, script := range []string{"BOGUS\n", "SLEEP x\n"} {
		if err := s.run(context.Background(), strings.NewReader(script)); err == nil {
			t.Errorf("%q: expected error", script)
		}
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("the quick brown fox jumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
	if got := wrapText("", 10); len(got) != 1 || got[0] != "" {
		t.Errorf("wrapText(\"\") = %q", got)
	}
}

func TestTUIModelTracksRuns(t *testing.T) {
	var m tea.Model = tuiModel{settings: pipeline.DefaultSettings()}
	send := func(u pipeline.Update) {
		m, _ = m.Update(statusMsg{update: u, settings: pipeline.DefaultSettings()})
	}

	send(pipeline.Update{Status: pipeline.Idle})
	send(pipeline.Update{RunID: "a", Status: pipeline.Recording})
	send(pipeline.Update{RunID: "a", Status: pipeline.Idle, Transcript: "hello", Text: "Hello."})
	tm := m.(tuiModel)
	if tm.runs != 1 || tm.text != "Hello." || tm.transcript != "hello" {
		t.Errorf("after success: runs=%d text=%q transcript=%q", tm.runs, tm.text, tm.transcript)
	}

	send(pipeline.Update{RunID: "b", Status: pipeline.Recording})
	send(pipeline.Update{RunID: "b", Status: pipeline.Error, Detail: "rate limited (HTTP 429)"})
	tm = m.(tuiModel)
	if tm.runs != 2 || tm.lastErr != "rate limited (HTTP 429)" {
		t.Errorf("after error: runs=%d lastErr=%q", tm.runs, tm.lastErr)
	}
	if tm.text != "Hello." {
		t.Errorf("error should keep last text, got %q", tm.text)
	}

	send(pipeline.Update{RunID: "c", Status: pipeline.Recording})
	if m.(tuiModel).lastErr != "" {
		t.Error("new recording should clear the error")
	}
}

func TestTUIToggleKey(t *testing.T) {
	toggled := false
	m := tuiModel{toggle: func() { toggled = true }}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("expected a command for r")
	}
	cmd()
	if !toggled {
		t.Error("toggle not called")
	}
}

func TestTUIViewRenders(t *testing.T) {
	m := tuiModel{width: 100, height: 30, settings: pipeline.DefaultSettings(), text: "Hello there.", runs: 1}
	view := m.View()
	if !strings.Contains(view, "Hello there.") {
		t.Error("view missing last text")
	}
	if !strings.Contains(view, "STANDBY") {
		t.Error("view missing idle status")
	}
}
