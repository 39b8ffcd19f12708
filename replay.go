package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"yada/audio"
	"yada/hotkey"
	"yada/log"
	"yada/pipeline"
	"yada/rewriter"
	"yada/transcriber"
)

// ReplayCmd feeds a WAV file through the real pipeline in place of the
// microphone. Hotkey events come from stdin, one command per line:
//
//	KEYDOWN, KEYUP     simulate the hotkey
//	TOGGLE             toggle regardless of mode
//	WAIT               block until the next run ends
//	WAIT_AUDIO_DONE    block until the whole file has been fed
//	SLEEP <ms>         pause the script
//	QUIT               shut down
type ReplayCmd struct {
	WAV        string `arg:"" type:"existingfile" help:"WAV file to replay as microphone input."`
	Realtime   bool   `help:"Feed audio at its natural rate instead of all at once."`
	Offline    bool   `help:"Skip the network: transcription returns --transcript and rewriting echoes it."`
	Transcript string `default:"hello world" help:"Transcript returned in offline mode."`
	Mode       string `default:"hold" enum:"hold,toggle" help:"Activation mode (hold or toggle)."`
	Insert     bool   `help:"Insert the result at the cursor instead of printing it."`
}

func (c *ReplayCmd) Run(e *env) error {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	fctx, err := audio.NewFakeContext(c.WAV, c.Realtime)
	if err != nil {
		return fmt.Errorf("loading WAV: %w", err)
	}

	mode, err := pipeline.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	settings := e.file.Settings()
	settings.Mode = mode
	settings.DeviceIndex = nil

	cfg := pipeline.Config{
		Sink:        audio.NewRecorder(fctx, 1),
		Encoder:     encodeWith(e.format()),
		Transcriber: e.transcriber(),
		Rewriter:    e.rewriter(),
		Inserter:    printInserter{w: os.Stdout},
		Hotkeys:     hotkey.NewFake(),
		Settings:    &fixedSettings{s: settings},
		Credentials: e.creds,
	}
	provider := e.provider.Name
	if c.Offline {
		provider = "offline"
		cfg.Transcriber = transcriber.NewFake(c.Transcript, nil)
		cfg.Rewriter = rewriter.NewFake(nil, nil)
		cfg.Credentials = staticCredential("offline")
	}
	if c.Insert {
		cfg.Inserter = e.inserter()
	}
	log.SessionStart(provider, mode.String(), e.format())

	ended := make(chan pipeline.Update, 1)
	var runs atomic.Int64
	cfg.Listeners = []pipeline.Listener{pipeline.ListenerFunc(func(u pipeline.Update) {
		if u.RunID == "" {
			return
		}
		printUpdate(u)
		if u.Status == pipeline.Idle || u.Status == pipeline.Error {
			runs.Add(1)
			select {
			case ended <- u:
			default:
			}
		}
	})}

	o, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	hk := cfg.Hotkeys.(*hotkey.FakeHotkey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- o.Run(ctx) }()

	script := replayScript{
		hk:      hk,
		toggle:  o.Toggle,
		ended:   ended,
		audio:   fctx.AudioDone,
		timeout: 2 * time.Minute,
	}
	scriptErr := script.run(ctx, os.Stdin)
	cancel()
	err = <-runErr
	log.SessionEnd(int(runs.Load()))
	if scriptErr != nil {
		return scriptErr
	}
	return err
}

type replayScript struct {
	hk      *hotkey.FakeHotkey
	toggle  func()
	ended   <-chan pipeline.Update
	audio   func() <-chan struct{}
	timeout time.Duration
}

var errScriptTimeout = errors.New("replay: timed out")

// run executes commands from r until QUIT or end of input.
func (s replayScript) run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "" || strings.HasPrefix(cmd, "#"):
		case cmd == "KEYDOWN":
			s.hk.SimKeydown()
		case cmd == "KEYUP":
			s.hk.SimKeyup()
		case cmd == "TOGGLE":
			s.toggle()
		case cmd == "WAIT":
			select {
			case <-s.ended:
			case <-time.After(s.timeout):
				return fmt.Errorf("%w waiting for run to end", errScriptTimeout)
			case <-ctx.Done():
				return ctx.Err()
			}
		case cmd == "WAIT_AUDIO_DONE":
			if err := s.waitAudio(ctx); err != nil {
				return err
			}
		case cmd == "QUIT":
			return nil
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(cmd[len("SLEEP "):]))
			if err != nil {
				return fmt.Errorf("replay: bad SLEEP %q", cmd)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		default:
			return fmt.Errorf("replay: unknown command %q", cmd)
		}
	}
	return scanner.Err()
}

// waitAudio blocks until a capture exists and has fed the whole file.
func (s replayScript) waitAudio(ctx context.Context) error {
	deadline := time.After(s.timeout)
	for {
		if ch := s.audio(); ch != nil {
			select {
			case <-ch:
				return nil
			case <-deadline:
				return fmt.Errorf("%w waiting for audio", errScriptTimeout)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			return fmt.Errorf("%w waiting for capture to start", errScriptTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// printInserter writes the final text to stdout instead of the focused
// application.
type printInserter struct{ w io.Writer }

func (p printInserter) Insert(text string) bool {
	_, err := fmt.Fprintf(p.w, "text: %s\n", text)
	return err == nil
}

// fixedSettings keeps settings in memory so a replay never touches the
// config file.
type fixedSettings struct{ s pipeline.Settings }

func (f *fixedSettings) Load() pipeline.Settings { return f.s }

func (f *fixedSettings) Save(s pipeline.Settings) error {
	f.s = s
	return nil
}

type staticCredential string

func (c staticCredential) Load() (string, bool) { return string(c), c != "" }
func (c staticCredential) Save(string) error    { return errors.New("credential is read-only") }
func (c staticCredential) Delete() error        { return errors.New("credential is read-only") }
