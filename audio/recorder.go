package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"yada/encoder"
	"yada/log"
	"yada/pipeline"
)

var (
	ErrAlreadyRecording = errors.New("recording is already in progress")
	ErrNoDevices        = pipeline.WithKind(pipeline.ErrConfiguration, errors.New("no input devices were found"))
	ErrInvalidDevice    = errors.New("invalid input device index")
)

// Recorder captures 16 kHz mono s16le PCM from a Context. At most one
// capture is open at a time; the buffer it fills is only handed out by
// Stop.
type Recorder struct {
	ctx   Context
	gain  int
	voice *VoiceDetector

	mu      sync.Mutex
	capture CaptureDevice

	bufMu sync.Mutex
	buf   []byte
}

func NewRecorder(ctx Context, gain int) *Recorder {
	r := &Recorder{ctx: ctx, gain: gain}
	voice, err := NewVoiceDetector()
	if err != nil {
		log.Warnf("voice detection unavailable: %v", err)
	} else {
		r.voice = voice
	}
	return r
}

// Start opens the device at deviceIndex, or the system default when nil.
func (r *Recorder) Start(deviceIndex *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capture != nil {
		return ErrAlreadyRecording
	}

	devices, err := r.ctx.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoDevices
	}

	var device *DeviceInfo
	if deviceIndex != nil {
		i := *deviceIndex
		if i < 0 || i >= len(devices) {
			return fmt.Errorf("%w: %d (have %d devices)", ErrInvalidDevice, i, len(devices))
		}
		device = &devices[i]
	}

	capture, err := r.ctx.NewCapture(device, CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
		Gain:       r.gain,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}

	r.bufMu.Lock()
	r.buf = nil
	r.bufMu.Unlock()
	if r.voice != nil {
		r.voice.Reset()
	}

	capture.SetCallback(func(data []byte, _ uint32) {
		r.bufMu.Lock()
		r.buf = append(r.buf, data...)
		r.bufMu.Unlock()
		if r.voice != nil {
			r.voice.Process(data)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return fmt.Errorf("starting capture: %w", err)
	}

	log.Info("recording_device: " + capture.DeviceName())
	r.capture = capture
	return nil
}

// Stop closes the open capture and hands over its buffer. If the device
// does not confirm the stop before ctx is done, the audio buffered so far
// is returned and the device is closed in the background.
func (r *Recorder) Stop(ctx context.Context) pipeline.CapturedAudio {
	r.mu.Lock()
	capture := r.capture
	r.capture = nil
	r.mu.Unlock()

	audio := pipeline.CapturedAudio{
		SampleRate:    encoder.SampleRate,
		Channels:      encoder.Channels,
		BitsPerSample: encoder.BitsPerSample,
	}
	if capture == nil {
		return audio
	}

	stopped := make(chan struct{})
	go func() {
		capture.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		capture.ClearCallback()
		capture.Close()
	case <-ctx.Done():
		log.Warnf("capture stop not confirmed (%v), using buffered audio", context.Cause(ctx))
		capture.ClearCallback()
		go func() {
			<-stopped
			capture.Close()
		}()
	}

	r.bufMu.Lock()
	audio.PCM = r.buf
	r.buf = nil
	r.bufMu.Unlock()
	r.logVoice(audio)
	return audio
}

func (r *Recorder) logVoice(a pipeline.CapturedAudio) {
	if r.voice == nil || len(a.PCM) == 0 {
		return
	}
	total, speech := r.voice.Stats()
	log.Infof("capture: audio_s=%.2f speech_frames=%d/%d", a.Duration(), speech, total)
	if !r.voice.Voiced() {
		log.Warn("no voice detected in capture")
	}
}

// Recording reports whether a capture is open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil
}
