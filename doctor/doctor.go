// Package doctor runs the diagnostic checks behind `yada doctor`.
package doctor

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"yada/hotkey"
	"yada/pipeline"
)

const (
	DefaultCaptureFor = 2 * time.Second
	pressTimeout      = 10 * time.Second
)

// Deps are the collaborators the checks exercise. Hotkeys may be nil to
// skip the interactive key press.
type Deps struct {
	Out         io.Writer
	Credentials pipeline.CredentialStore
	Binding     hotkey.Binding
	Diagnose    func(hotkey.Binding) (string, error)
	Hotkeys     pipeline.HotKeySource
	Sink        pipeline.AudioSink
	DeviceIndex *int
	Encoder     pipeline.Encoder
	Transcriber pipeline.Transcriber
	Inserter    interface{ Check() (string, error) }
	CaptureFor  time.Duration
}

type check struct {
	name string
	run  func(*state) (string, error)
}

type state struct {
	Deps
	credential string
	audio      pipeline.CapturedAudio
}

// Run executes the checks in order, stopping at the first failure, and
// returns an exit code (0=all pass, 1=any fail).
func Run(d Deps) int {
	if d.CaptureFor <= 0 {
		d.CaptureFor = DefaultCaptureFor
	}
	checks := []check{
		{"API credential", checkCredential},
		{"Hotkey backend", checkHotkey},
		{"Microphone", checkMicrophone},
		{"Transcription round trip", checkTranscription},
		{"Text insertion", checkInsertion},
	}
	if d.Hotkeys != nil {
		checks = slices.Insert(checks, 2, check{"Hotkey press", checkPress})
	}

	fmt.Fprintln(d.Out, "yada doctor - system diagnostics")
	fmt.Fprintln(d.Out, "================================")

	st := &state{Deps: d}
	for i, c := range checks {
		fmt.Fprintln(d.Out)
		fmt.Fprintf(d.Out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		msg, err := c.run(st)
		if err != nil {
			fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
			fmt.Fprintln(d.Out)
			fmt.Fprintln(d.Out, "Some checks failed. See details above.")
			return 1
		}
		fmt.Fprintf(d.Out, "  PASS: %s\n", msg)
	}

	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "All checks passed!")
	return 0
}

func checkCredential(st *state) (string, error) {
	key, ok := st.Credentials.Load()
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", fmt.Errorf("API key is missing (run: yada key set)")
	}
	st.credential = key
	return "API key found", nil
}

func checkHotkey(st *state) (string, error) {
	return st.Diagnose(st.Binding)
}

func checkPress(st *state) (string, error) {
	if err := st.Hotkeys.Register(st.Binding); err != nil {
		return "", fmt.Errorf("could not register hotkey: %w", err)
	}
	defer st.Hotkeys.Unregister()

	fmt.Fprintf(st.Out, "Press %s...\n", st.Binding)
	select {
	case <-st.Hotkeys.Keydown():
	case <-time.After(pressTimeout):
		return "", fmt.Errorf("timeout waiting for hotkey")
	}
	// Wait for keyup so the press does not leak into the next step
	select {
	case <-st.Hotkeys.Keyup():
	case <-time.After(5 * time.Second):
	}
	resetTerminal()
	return "hotkey detected", nil
}

func checkMicrophone(st *state) (string, error) {
	if err := st.Sink.Start(st.DeviceIndex); err != nil {
		return "", err
	}
	fmt.Fprintf(st.Out, "  Speak for %s...\n", st.CaptureFor)
	time.Sleep(st.CaptureFor)

	ctx, cancel := context.WithTimeout(context.Background(), pipeline.DefaultStopTimeout)
	defer cancel()
	st.audio = st.Sink.Stop(ctx)
	if len(st.audio.PCM) == 0 {
		return "", fmt.Errorf("no audio captured")
	}
	return fmt.Sprintf("captured %.1fs (%.1f KB)", st.audio.Duration(), float64(len(st.audio.PCM))/1024), nil
}

func checkTranscription(st *state) (string, error) {
	enc, err := st.Encoder.Encode(st.audio)
	if err != nil {
		return "", fmt.Errorf("encoding audio failed: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	text, err := st.Transcriber.Transcribe(ctx, enc, st.credential)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(no speech detected)"
	}
	return fmt.Sprintf("transcribed: %s", text), nil
}

func checkInsertion(st *state) (string, error) {
	return st.Inserter.Check()
}
