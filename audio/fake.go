package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zeozeozeo/gomplerate"

	"yada/encoder"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays a WAV file as if it were a microphone. Any PCM WAV
// works; it is mixed down to mono and resampled to the capture rate.
type FakeContext struct {
	name     string
	pcm      []byte
	realtime bool

	mu   sync.Mutex
	last *FakeCapture
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", wavPath)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", wavPath, err)
	}

	samples := mixdown(buf)
	if rate := buf.Format.SampleRate; rate != encoder.SampleRate {
		samples, err = resample(samples, rate, encoder.SampleRate)
		if err != nil {
			return nil, err
		}
	}

	return &FakeContext{
		name:     filepath.Base(wavPath),
		pcm:      encoder.SamplesToPCM(samples),
		realtime: realtime,
	}, nil
}

// mixdown averages channels and rescales to 16-bit.
func mixdown(buf *goaudio.IntBuffer) []int16 {
	channels := max(buf.Format.NumChannels, 1)
	shift := buf.SourceBitDepth - 16

	out := make([]int16, len(buf.Data)/channels)
	for i := range out {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		v := sum / channels
		if shift > 0 {
			v >>= shift
		} else if shift < 0 {
			v <<= -shift
		}
		out[i] = int16(min(max(v, -32768), 32767))
	}
	return out
}

func resample(samples []int16, fromRate, toRate int) ([]int16, error) {
	r, err := gomplerate.NewResampler(1, fromRate, toRate)
	if err != nil {
		return nil, fmt.Errorf("resampling %d Hz to %d Hz: %w", fromRate, toRate, err)
	}
	return r.ResampleInt16(samples), nil
}

// PCM returns the decoded 16 kHz mono audio.
func (f *FakeContext) PCM() []byte { return f.pcm }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "replay: " + f.name}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	name := "replay: " + f.name
	if device != nil {
		name = device.Name
	}
	c := &FakeCapture{name: name, pcm: f.pcm, realtime: f.realtime, audioDone: make(chan struct{})}
	f.mu.Lock()
	f.last = c
	f.mu.Unlock()
	return c, nil
}

// AudioDone is closed once the most recent capture has fed the whole
// file. Before any capture exists it never closes.
func (f *FakeContext) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return nil
	}
	return f.last.AudioDone()
}

type FakeCapture struct {
	name      string
	pcm       []byte
	realtime  bool
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once the whole file has been fed.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

// Start feeds the file. Non-realtime captures deliver it all before
// returning; realtime ones pace it at the capture rate. Either way the
// device keeps delivering nothing until stopped.
func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(f.audioDone)
		go func() {
			defer close(f.feedDone)
			<-f.stopCh
		}()
		return nil
	}

	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	go func() {
		defer close(f.feedDone)
		pos := 0
		for pos < len(f.pcm) {
			if cb := f.callback(); cb != nil {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
		close(f.audioDone)
		<-f.stopCh
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
