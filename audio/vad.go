package audio

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"yada/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
	vadDebounce   = 3                                          // consecutive speech frames to confirm voice
)

// VoiceDetector classifies 16 kHz mono s16le PCM in 20ms frames. It only
// informs diagnostics; a capture without voice is still transcribed.
type VoiceDetector struct {
	vad *webrtcvad.VAD

	mu           sync.Mutex
	buf          []byte
	voiced       bool
	speechRun    int
	totalFrames  int
	speechFrames int
}

func NewVoiceDetector() (*VoiceDetector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &VoiceDetector{vad: v}, nil
}

// Process accepts chunks of any size; a partial frame waits for the next call.
func (d *VoiceDetector) Process(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf = append(d.buf, data...)
	for len(d.buf) >= vadFrameBytes {
		frame := d.buf[:vadFrameBytes]
		d.buf = d.buf[vadFrameBytes:]

		active, err := d.vad.Process(encoder.SampleRate, frame)
		if err != nil {
			continue
		}
		d.totalFrames++
		if !active {
			d.speechRun = 0
			continue
		}
		d.speechFrames++
		d.speechRun++
		if d.speechRun >= vadDebounce {
			d.voiced = true
		}
	}
}

func (d *VoiceDetector) Voiced() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.voiced
}

func (d *VoiceDetector) Stats() (total, speech int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totalFrames, d.speechFrames
}

func (d *VoiceDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
	d.voiced = false
	d.speechRun = 0
	d.totalFrames = 0
	d.speechFrames = 0
}
