package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"yada/log"
)

// DefaultStopTimeout bounds how long the sink gets to confirm a stop.
const DefaultStopTimeout = 2 * time.Second

var errMissingKey = errors.New("API key is missing")

type Config struct {
	Sink        AudioSink
	Encoder     Encoder
	Transcriber Transcriber
	Rewriter    Rewriter
	Inserter    TextInserter
	Hotkeys     HotKeySource
	Settings    SettingsRepository
	Credentials CredentialStore
	Listeners   []Listener
	StopTimeout time.Duration
}

// Orchestrator owns the dictation state machine. All transitions happen
// on the goroutine running Run; everything else talks to it through the
// event queue.
type Orchestrator struct {
	cfg    Config
	events chan any
	done   chan struct{}

	current  atomic.Pointer[Update]
	snapshot atomic.Pointer[Settings]

	// owned by the loop
	status   Status
	settings Settings
	pending  *settingsEvent
	run      *run
}

// run is one traversal from a start intent to Idle or Error.
type run struct {
	id           string
	started      time.Time
	stageStarted time.Time
	credential   string
	deviceIndex  *int
	instructions string
	transcript   string
}

type stage int

const (
	stageCapture stage = iota
	stageTranscribe
	stageRewrite
	stageInsert
)

func (s stage) String() string {
	return [...]string{"capture", "transcribe", "rewrite", "insert"}[s]
}

type (
	pressEvent    struct{}
	releaseEvent  struct{}
	toggleEvent   struct{}
	settingsEvent struct {
		settings Settings
		save     bool
	}
	syncEvent   struct{ done chan struct{} }
	stageResult struct {
		runID string
		stage stage
		audio CapturedAudio
		text  string
		ok    bool
		err   error
	}
)

func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Sink == nil:
		return nil, errors.New("pipeline: audio sink is required")
	case cfg.Encoder == nil:
		return nil, errors.New("pipeline: encoder is required")
	case cfg.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case cfg.Rewriter == nil:
		return nil, errors.New("pipeline: rewriter is required")
	case cfg.Inserter == nil:
		return nil, errors.New("pipeline: text inserter is required")
	case cfg.Hotkeys == nil:
		return nil, errors.New("pipeline: hotkey source is required")
	case cfg.Settings == nil:
		return nil, errors.New("pipeline: settings repository is required")
	case cfg.Credentials == nil:
		return nil, errors.New("pipeline: credential store is required")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	o := &Orchestrator{
		cfg:    cfg,
		events: make(chan any, 32),
		done:   make(chan struct{}),
	}
	o.settings = normalize(cfg.Settings.Load())
	s := o.settings
	o.snapshot.Store(&s)
	o.current.Store(&Update{Status: Idle})
	return o, nil
}

// Current returns the most recently published update.
func (o *Orchestrator) Current() Update {
	return *o.current.Load()
}

// Settings returns the settings currently in effect.
func (o *Orchestrator) Settings() Settings {
	return *o.snapshot.Load()
}

// Press and Release feed hotkey intents. Run pumps the hotkey source into
// them; other front ends may call them directly.
func (o *Orchestrator) Press()   { o.post(pressEvent{}) }
func (o *Orchestrator) Release() { o.post(releaseEvent{}) }

// Toggle starts a run when idle and stops recording when recording,
// regardless of the activation mode.
func (o *Orchestrator) Toggle() { o.post(toggleEvent{}) }

// UpdateSettings applies s and persists it. While a run is in flight the
// update is deferred until the run ends.
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.post(settingsEvent{settings: s, save: true})
}

// ReloadSettings re-reads the repository and applies the result without
// saving it back.
func (o *Orchestrator) ReloadSettings() {
	o.post(settingsEvent{settings: o.cfg.Settings.Load()})
}

func (o *Orchestrator) post(ev any) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

// sync returns once every event queued before it has been handled.
func (o *Orchestrator) sync() {
	done := make(chan struct{})
	o.post(syncEvent{done: done})
	select {
	case <-done:
	case <-o.done:
	}
}

// Run registers the hotkey and processes events until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.done)

	if err := o.cfg.Hotkeys.Register(o.settings.Binding); err != nil {
		return fmt.Errorf("registering hotkey %s: %w", o.settings.Binding, err)
	}
	defer o.cfg.Hotkeys.Unregister()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go o.pump(ctx)

	log.Infof("pipeline ready: mode=%s hotkey=%s", o.settings.Mode, o.settings.Binding)
	o.publish(Update{Status: Idle})

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case ev := <-o.events:
			o.handle(ctx, ev)
		}
	}
}

// pump turns hotkey events into intents, pairing each key-down with the
// key-up that follows it. The source delivers them on separate channels,
// so a release is never posted ahead of its press.
func (o *Orchestrator) pump(ctx context.Context) {
	keydown, keyup := o.cfg.Hotkeys.Keydown(), o.cfg.Hotkeys.Keyup()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keydown:
		case <-keyup:
			// Both were ready and the release won the select.
			select {
			case <-keydown:
				o.post(pressEvent{})
				o.post(releaseEvent{})
			default:
				log.Warn("hotkey: release without press, ignoring")
			}
			continue
		}
		o.post(pressEvent{})

		// Repeated key-downs while held are not new presses.
		for held := true; held; {
			select {
			case <-ctx.Done():
				return
			case <-keydown:
			case <-keyup:
				held = false
			}
		}
		o.post(releaseEvent{})
	}
}

func (o *Orchestrator) shutdown() {
	if o.status != Recording {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.StopTimeout)
	defer cancel()
	o.cfg.Sink.Stop(ctx)
	log.Info("capture released on shutdown")
}

func (o *Orchestrator) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case pressEvent:
		if o.settings.Mode == Toggle {
			o.toggle(ctx)
		} else if o.status == Idle || o.status == Error {
			o.start()
		}
	case releaseEvent:
		if o.settings.Mode == Hold && o.status == Recording {
			o.stop(ctx)
		}
	case toggleEvent:
		o.toggle(ctx)
	case settingsEvent:
		if o.status.Busy() {
			if o.pending != nil && o.pending.save {
				ev.save = true
			}
			o.pending = &ev
			return
		}
		o.applySettings(ev)
	case stageResult:
		o.advance(ctx, ev)
	case syncEvent:
		close(ev.done)
	}
}

func (o *Orchestrator) toggle(ctx context.Context) {
	switch o.status {
	case Idle, Error:
		o.start()
	case Recording:
		o.stop(ctx)
	}
}

func (o *Orchestrator) start() {
	credential, ok := o.cfg.Credentials.Load()
	credential = strings.TrimSpace(credential)
	if !ok || credential == "" {
		o.fail(nil, &RunError{Kind: ErrConfiguration, Detail: errMissingKey.Error()})
		return
	}

	r := &run{
		id:           uuid.New().String(),
		started:      time.Now(),
		credential:   credential,
		instructions: EffectiveInstructions(o.settings.Instructions),
	}
	if o.settings.DeviceIndex != nil {
		idx := *o.settings.DeviceIndex
		r.deviceIndex = &idx
	}

	if err := o.cfg.Sink.Start(r.deviceIndex); err != nil {
		o.fail(r, newError(err, ErrCapture, "audio start failed"))
		return
	}

	o.run = r
	r.stageStarted = time.Now()
	log.RunStart(r.id, o.settings.Mode.String(), deviceLabel(r.deviceIndex))
	o.publish(Update{RunID: r.id, Status: Recording, Detail: "recording"})
}

// stop leaves Recording immediately; the sink hand-over runs as the first
// stage so a second stop intent finds nothing to stop.
func (o *Orchestrator) stop(ctx context.Context) {
	r := o.run
	o.publish(Update{RunID: r.id, Status: Transcribing, Detail: "stopping capture"})
	o.dispatch(ctx, r, stageCapture, func(ctx context.Context) stageResult {
		stopCtx, cancel := context.WithTimeout(ctx, o.cfg.StopTimeout)
		defer cancel()
		return stageResult{audio: o.cfg.Sink.Stop(stopCtx)}
	})
}

// dispatch runs fn off the loop and feeds its result back as an event.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, s stage, fn func(context.Context) stageResult) {
	r.stageStarted = time.Now()
	go func() {
		res := fn(ctx)
		res.runID = r.id
		res.stage = s
		o.post(res)
	}()
}

func (o *Orchestrator) advance(ctx context.Context, res stageResult) {
	r := o.run
	if r == nil || res.runID != r.id {
		log.Warnf("dropping stale %s result for run %s", res.stage, res.runID)
		return
	}
	log.RunStage(r.id, res.stage.String(), time.Since(r.stageStarted))

	switch res.stage {
	case stageCapture:
		if len(res.audio.PCM) == 0 {
			o.fail(r, &RunError{Kind: ErrEmptyCapture, Detail: "no audio captured"})
			return
		}
		log.Infof("captured %.1fs of audio", res.audio.Duration())
		o.publish(Update{RunID: r.id, Status: Transcribing, Detail: "transcribing"})
		audio := res.audio
		o.dispatch(ctx, r, stageTranscribe, func(ctx context.Context) stageResult {
			payload, err := o.cfg.Encoder.Encode(audio)
			if err != nil {
				return stageResult{err: newError(err, ErrCapture, "encoding audio failed")}
			}
			text, err := o.cfg.Transcriber.Transcribe(ctx, payload, r.credential)
			if err != nil {
				return stageResult{err: newError(err, ErrTransport, "transcription failed")}
			}
			return stageResult{text: text}
		})

	case stageTranscribe:
		if res.err != nil {
			o.fail(r, res.err)
			return
		}
		transcript := strings.TrimSpace(res.text)
		if transcript == "" {
			o.fail(r, &RunError{Kind: ErrDecoding, Detail: "transcription returned no text"})
			return
		}
		r.transcript = transcript
		o.publish(Update{RunID: r.id, Status: Rewriting, Detail: "rewriting", Transcript: transcript})
		o.dispatch(ctx, r, stageRewrite, func(ctx context.Context) stageResult {
			text, err := o.cfg.Rewriter.Rewrite(ctx, transcript, r.instructions, r.credential)
			if err != nil {
				return stageResult{err: newError(err, ErrTransport, "rewrite failed")}
			}
			return stageResult{text: text}
		})

	case stageRewrite:
		if res.err != nil {
			o.fail(r, res.err)
			return
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			o.fail(r, &RunError{Kind: ErrDecoding, Detail: "rewrite returned no text"})
			return
		}
		o.publish(Update{RunID: r.id, Status: Inserting, Detail: "inserting", Transcript: r.transcript, Text: text})
		o.dispatch(ctx, r, stageInsert, func(context.Context) stageResult {
			return stageResult{text: text, ok: o.cfg.Inserter.Insert(text)}
		})

	case stageInsert:
		if !res.ok {
			o.fail(r, &RunError{Kind: ErrInsertion, Detail: "failed to insert text at cursor"})
			return
		}
		log.TranscriptionText(res.text)
		o.finish(r, Update{RunID: r.id, Status: Idle, Detail: "done", Transcript: r.transcript, Text: res.text})
	}
}

func (o *Orchestrator) fail(r *run, err error) {
	u := Update{Status: Error, Detail: err.Error(), Err: err}
	if r != nil {
		u.RunID = r.id
		u.Transcript = r.transcript
	}
	log.Errorf("run failed: %v", err)
	o.finish(r, u)
}

// finish publishes a terminal update and applies any settings deferred
// while the run was in flight.
func (o *Orchestrator) finish(r *run, u Update) {
	if r != nil && o.run == r {
		log.RunEnd(r.id, u.Status.String(), u.Detail, time.Since(r.started))
	}
	o.run = nil
	o.publish(u)

	if p := o.pending; p != nil {
		o.pending = nil
		o.applySettings(*p)
	}
}

func (o *Orchestrator) applySettings(ev settingsEvent) {
	next := normalize(ev.settings)
	prev := o.settings
	o.settings = next

	if next.Binding != prev.Binding {
		if err := o.cfg.Hotkeys.Register(next.Binding); err != nil {
			log.Errorf("hotkey %s rejected, keeping %s: %v", next.Binding, prev.Binding, err)
			o.settings.Binding = prev.Binding
			detail := "hotkey registration failed: " + err.Error()
			if rerr := o.cfg.Hotkeys.Register(prev.Binding); rerr != nil {
				log.Errorf("re-registering hotkey %s: %v", prev.Binding, rerr)
				detail += fmt.Sprintf("; restoring %s also failed: %v", prev.Binding, rerr)
				err = errors.Join(err, rerr)
			}
			o.publish(Update{Status: Error, Detail: detail, Err: err})
		} else {
			log.Infof("hotkey changed: %s -> %s", prev.Binding, next.Binding)
		}
	}
	if next.Mode != prev.Mode {
		log.Infof("activation mode changed: %s -> %s", prev.Mode, next.Mode)
	}

	s := o.settings
	o.snapshot.Store(&s)

	if ev.save {
		go func() {
			if err := o.cfg.Settings.Save(s); err != nil {
				log.Errorf("saving settings: %v", err)
			}
		}()
	}
}

func (o *Orchestrator) publish(u Update) {
	o.status = u.Status
	o.current.Store(&u)
	for _, l := range o.cfg.Listeners {
		l.StatusChanged(u)
	}
}

func normalize(s Settings) Settings {
	if s.Binding.Key == "" {
		s.Binding = DefaultSettings().Binding
	}
	if s.Mode != Hold {
		s.Mode = Toggle
	}
	return s
}

func deviceLabel(idx *int) string {
	if idx == nil {
		return "default"
	}
	return fmt.Sprintf("#%d", *idx)
}
