package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"yada/audio"
	"yada/beep"
	"yada/config"
	"yada/doctor"
	"yada/encoder"
	"yada/hotkey"
	"yada/insert"
	"yada/log"
	"yada/pipeline"
	"yada/rewriter"
	"yada/shutdown"
	"yada/transcriber"
)

func (e *env) transcriber() *transcriber.Client {
	return transcriber.New(e.provider, transcriber.Options{
		BaseURL: e.file.API.BaseURL,
		Model:   e.file.API.TranscribeModel,
		Timeout: e.file.API.Timeout.Duration,
	})
}

func (e *env) rewriter() *rewriter.Client {
	base := e.file.API.BaseURL
	if base == "" {
		base = e.provider.BaseURL
	}
	model := e.file.API.RewriteModel
	if model == "" {
		model = e.provider.RewriteModel
	}
	return rewriter.New(rewriter.Options{
		Provider: e.provider.Name,
		BaseURL:  base,
		Model:    model,
		Timeout:  e.file.API.Timeout.Duration,
	})
}

func (e *env) inserter() *insert.Inserter {
	return insert.New(insert.Options{
		Direct:           e.file.DirectInsert(),
		TypeCommand:      e.file.Insert.TypeCommand,
		RestoreClipboard: e.file.RestoreClipboard(),
		RestoreDelay:     e.file.Insert.RestoreDelay.Duration,
	})
}

func (e *env) format() string {
	if encoder.ValidFormat(e.file.API.UploadFormat) {
		return e.file.API.UploadFormat
	}
	return encoder.FormatWAV
}

func encodeWith(format string) pipeline.EncoderFunc {
	return func(a pipeline.CapturedAudio) (pipeline.EncodedAudio, error) {
		data, err := encoder.Encode(format, a.PCM, a.SampleRate, a.Channels, a.BitsPerSample)
		if err != nil {
			return pipeline.EncodedAudio{}, err
		}
		return pipeline.EncodedAudio{Data: data, Format: format, Duration: a.Duration()}, nil
	}
}

type RunCmd struct {
	NoTUI bool `name:"no-tui" help:"Print status lines instead of the full-screen view."`
	Setup bool `help:"Pick the input device before starting."`
}

func (c *RunCmd) Run(e *env) error {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize logging: %v\n", err)
	}
	defer log.Close()

	settings := e.file.Settings()
	log.SessionStart(e.provider.Name, settings.Mode.String(), e.format())

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	if c.Setup {
		idx, err := audio.SelectDevice(actx, settings.DeviceIndex)
		if err != nil {
			return err
		}
		settings.DeviceIndex = &idx
		if err := e.store.Save(settings); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save device choice: %v\n", err)
		}
	}

	if _, ok := e.creds.Load(); !ok {
		fmt.Fprintf(os.Stderr, "No API key configured. Set %s or %s, or run `yada key set`.\n", config.KeyEnv, e.provider.KeyEnv)
	}

	var runs atomic.Int64
	listeners := []pipeline.Listener{pipeline.ListenerFunc(func(u pipeline.Update) {
		if u.RunID != "" && (u.Status == pipeline.Idle || u.Status == pipeline.Error) {
			runs.Add(1)
		}
	})}
	if e.file.Beep() {
		listeners = append(listeners, beep.NewCues())
	}

	var program *tea.Program
	var o *pipeline.Orchestrator
	if c.NoTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		listeners = append(listeners, pipeline.ListenerFunc(printUpdate))
	} else {
		listeners = append(listeners, pipeline.ListenerFunc(func(u pipeline.Update) {
			program.Send(statusMsg{update: u, settings: o.Settings()})
		}))
	}

	client := e.transcriber()
	o, err = pipeline.New(pipeline.Config{
		Sink:        audio.NewRecorder(actx, e.file.Audio.Gain),
		Encoder:     encodeWith(e.format()),
		Transcriber: client,
		Rewriter:    e.rewriter(),
		Inserter:    e.inserter(),
		Hotkeys:     hotkey.New(),
		Settings:    e.store,
		Credentials: e.creds,
		Listeners:   listeners,
	})
	if err != nil {
		return err
	}
	if !c.NoTUI && term.IsTerminal(int(os.Stdout.Fd())) {
		header := fmt.Sprintf("[%s | %s | %s]", e.provider.Name, client.Model(), e.format())
		program = newTUI(o.Toggle, header, o.Settings())
	}

	w, err := config.Watch(e.store.Path(), 0, o.ReloadSettings)
	if err != nil {
		log.Warnf("config watch: %v", err)
	} else {
		defer w.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
			if program != nil {
				program.Quit()
			}
		case <-ctx.Done():
		}
	}()

	go client.Warm()

	runErr := make(chan error, 1)
	go func() {
		err := o.Run(ctx)
		if err != nil && program != nil {
			program.Quit()
		}
		runErr <- err
	}()

	if program != nil {
		if _, err := program.Run(); err != nil {
			log.Errorf("tui: %v", err)
		}
		cancel()
	} else {
		s := o.Settings()
		fmt.Printf("yada %s: %s (%s), press %s\n", version, e.provider.Name, s.Mode, s.Binding)
	}

	err = <-runErr
	log.SessionEnd(int(runs.Load()))
	return err
}

func printUpdate(u pipeline.Update) {
	switch u.Status {
	case pipeline.Idle:
		if u.RunID != "" {
			fmt.Printf("done: %s\n", u.Text)
		}
	case pipeline.Error:
		fmt.Printf("error: %s\n", u.Detail)
	default:
		if u.Detail != "" {
			fmt.Printf("%s: %s\n", u.Status, u.Detail)
		} else {
			fmt.Printf("%s\n", u.Status)
		}
	}
}

type DevicesCmd struct{}

func (c *DevicesCmd) Run(e *env) error {
	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	devices, err := actx.Devices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return audio.ErrNoDevices
	}
	current := e.file.Settings().DeviceIndex
	for i, d := range devices {
		mark := " "
		if current != nil && *current == i {
			mark = "*"
		}
		fmt.Printf("%s %d: %s\n", mark, i, d.DisplayName())
	}
	if current == nil {
		fmt.Println("(using system default)")
	}
	return nil
}

type KeyCmd struct {
	Set    KeySetCmd    `cmd:"" help:"Store an API key (reads stdin when no argument is given)."`
	Delete KeyDeleteCmd `cmd:"" help:"Remove the stored API key."`
	Status KeyStatusCmd `cmd:"" default:"1" help:"Show where the API key comes from."`
}

type KeySetCmd struct {
	Key string `arg:"" optional:"" help:"The key. Omit to type it without echo."`
}

func (c *KeySetCmd) Run(e *env) error {
	key := c.Key
	if key == "" {
		var err error
		if key, err = readKey(); err != nil {
			return err
		}
	}
	if err := e.creds.Save(key); err != nil {
		return err
	}
	fmt.Printf("API key saved to %s\n", e.creds.Path())
	return nil
}

func readKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

type KeyDeleteCmd struct{}

func (c *KeyDeleteCmd) Run(e *env) error {
	if err := e.creds.Delete(); err != nil {
		return err
	}
	fmt.Println("API key removed")
	return nil
}

type KeyStatusCmd struct{}

func (c *KeyStatusCmd) Run(e *env) error {
	key, src := e.creds.Source()
	if key == "" {
		fmt.Println("No API key configured")
		return exitCode(1)
	}
	fmt.Printf("%s (from %s)\n", maskKey(key), src)
	return nil
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

type DoctorCmd struct {
	NoPress bool `name:"no-press" help:"Skip the interactive hotkey press check."`
}

func (c *DoctorCmd) Run(e *env) error {
	if err := log.Init(); err == nil {
		defer log.Close()
	}
	fmt.Println("yada doctor")
	fmt.Println()

	actx, err := audio.NewContext()
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	defer actx.Close()

	settings := e.file.Settings()
	d := doctor.Deps{
		Out:         os.Stdout,
		Credentials: e.creds,
		Binding:     settings.Binding,
		Diagnose:    hotkey.Diagnose,
		Sink:        audio.NewRecorder(actx, e.file.Audio.Gain),
		DeviceIndex: settings.DeviceIndex,
		Encoder:     encodeWith(e.format()),
		Transcriber: e.transcriber(),
		Inserter:    e.inserter(),
	}
	if !c.NoPress && term.IsTerminal(int(os.Stdin.Fd())) {
		d.Hotkeys = hotkey.New()
	}
	if code := doctor.Run(d); code != 0 {
		return exitCode(code)
	}
	return nil
}
