package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	goaudiowav "github.com/go-audio/wav"
)

func TestWAVRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name                 string
		rate, channels, bits int
		pcm                  []byte
	}{
		{"capture", SampleRate, Channels, BitsPerSample, SamplesToPCM(sineSamples(1600))},
		{"stereo44k", 44100, 2, 16, SamplesToPCM(sineSamples(882))},
		{"8bit", 8000, 1, 8, []byte{0, 64, 128, 192, 255}},
		{"empty", SampleRate, Channels, BitsPerSample, nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := EncodeWAV(tt.pcm, tt.rate, tt.channels, tt.bits)
			if len(out) != WAVHeaderSize+len(tt.pcm) {
				t.Fatalf("len = %d, want %d", len(out), WAVHeaderSize+len(tt.pcm))
			}

			h, pcm, err := DecodeWAV(out)
			if err != nil {
				t.Fatalf("DecodeWAV: %v", err)
			}
			want := WAVHeader{SampleRate: tt.rate, Channels: tt.channels, BitsPerSample: tt.bits, DataSize: len(tt.pcm)}
			if h != want {
				t.Errorf("header = %+v, want %+v", h, want)
			}
			if !bytes.Equal(pcm, tt.pcm) {
				t.Error("PCM changed across round trip")
			}

			again := EncodeWAV(tt.pcm, tt.rate, tt.channels, tt.bits)
			if !bytes.Equal(out, again) {
				t.Error("encoding is not deterministic")
			}
		})
	}
}

func TestWAVHeaderLayout(t *testing.T) {
	pcm := make([]byte, 100)
	out := EncodeWAV(pcm, 16000, 1, 16)

	for _, tt := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(out[tt.off : tt.off+4]); got != tt.want {
			t.Errorf("chunk at %d = %q, want %q", tt.off, got, tt.want)
		}
	}
	le32 := func(off int) uint32 { return binary.LittleEndian.Uint32(out[off:]) }
	le16 := func(off int) uint16 { return binary.LittleEndian.Uint16(out[off:]) }
	if le32(4) != 136 {
		t.Errorf("RIFF size = %d, want 136", le32(4))
	}
	if le32(16) != 16 || le16(20) != 1 {
		t.Error("fmt chunk is not 16-byte PCM")
	}
	if le32(28) != 32000 || le16(32) != 2 {
		t.Errorf("byte rate %d / block align %d", le32(28), le16(32))
	}
	if le32(40) != 100 {
		t.Errorf("data size = %d, want 100", le32(40))
	}
}

func TestWAVReadableByGoAudio(t *testing.T) {
	samples := sineSamples(3200)
	out := EncodeWAV(SamplesToPCM(samples), SampleRate, Channels, BitsPerSample)

	dec := goaudiowav.NewDecoder(bytes.NewReader(out))
	if !dec.IsValidFile() {
		t.Fatal("go-audio rejects the header")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if buf.Format.SampleRate != SampleRate || buf.Format.NumChannels != Channels {
		t.Errorf("format = %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	good := EncodeWAV(make([]byte, 10), SampleRate, Channels, BitsPerSample)

	truncated := good[:len(good)-4]
	badID := append([]byte(nil), good...)
	copy(badID[8:12], "AVI ")
	badSize := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badSize[4:8], 99)

	for name, data := range map[string][]byte{
		"short":     good[:20],
		"truncated": truncated,
		"badID":     badID,
		"badSize":   badSize,
	} {
		if _, _, err := DecodeWAV(data); !errors.Is(err, ErrNotWAV) {
			t.Errorf("%s: err = %v, want ErrNotWAV", name, err)
		}
	}
}
