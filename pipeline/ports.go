package pipeline

import (
	"context"
	"strings"

	"yada/hotkey"
)

const DefaultInstructions = "Rewrite the text with correct punctuation and capitalization. Preserve meaning. Return plain text only."

// CapturedAudio is raw PCM handed over by an AudioSink when capture stops.
type CapturedAudio struct {
	PCM           []byte
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Duration returns the audio length in seconds.
func (a CapturedAudio) Duration() float64 {
	bytesPerSec := a.SampleRate * a.Channels * a.BitsPerSample / 8
	if bytesPerSec == 0 {
		return 0
	}
	return float64(len(a.PCM)) / float64(bytesPerSec)
}

// EncodedAudio is the upload payload. Format is a file extension
// ("wav", "flac") used for the multipart filename and content type.
type EncodedAudio struct {
	Data     []byte
	Format   string
	Duration float64
}

type AudioSink interface {
	Start(deviceIndex *int) error
	// Stop must return within ctx's deadline, handing over whatever was
	// buffered. It never fails; an empty PCM means nothing was captured.
	Stop(ctx context.Context) CapturedAudio
}

type Encoder interface {
	Encode(audio CapturedAudio) (EncodedAudio, error)
}

type EncoderFunc func(CapturedAudio) (EncodedAudio, error)

func (f EncoderFunc) Encode(audio CapturedAudio) (EncodedAudio, error) { return f(audio) }

type Transcriber interface {
	Transcribe(ctx context.Context, audio EncodedAudio, credential string) (string, error)
}

type Rewriter interface {
	Rewrite(ctx context.Context, transcript, instructions, credential string) (string, error)
}

type TextInserter interface {
	Insert(text string) bool
}

// HotKeySource delivers one Keydown per physical press of the registered
// binding and one Keyup per release. Register replaces any previous
// registration; the channels stay the same across registrations.
type HotKeySource interface {
	Register(b hotkey.Binding) error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

type SettingsRepository interface {
	// Load never fails; unreadable settings yield defaults.
	Load() Settings
	Save(s Settings) error
}

type CredentialStore interface {
	Load() (string, bool)
	Save(credential string) error
	Delete() error
}

// Settings is the subset of configuration the orchestrator consumes.
type Settings struct {
	Mode         ActivationMode
	Binding      hotkey.Binding
	DeviceIndex  *int
	Instructions string
}

func DefaultSettings() Settings {
	return Settings{
		Mode:    Toggle,
		Binding: hotkey.DefaultBinding,
	}
}

// EffectiveInstructions returns s, or the built-in prompt when s is blank.
func EffectiveInstructions(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultInstructions
	}
	return s
}

type Listener interface {
	StatusChanged(u Update)
}

type ListenerFunc func(u Update)

func (f ListenerFunc) StatusChanged(u Update) { f(u) }
