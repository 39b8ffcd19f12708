package encoder

import "fmt"

// Capture format shared by the recorder and the upload encoders.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

// ContentType returns the MIME type uploaded for format.
func ContentType(format string) string {
	switch format {
	case FormatFLAC:
		return "audio/flac"
	default:
		return "audio/wav"
	}
}

// Encode wraps raw little-endian PCM in the named container.
func Encode(format string, pcm []byte, sampleRate, channels, bitsPerSample int) ([]byte, error) {
	switch format {
	case FormatWAV, "":
		return EncodeWAV(pcm, sampleRate, channels, bitsPerSample), nil
	case FormatFLAC:
		return EncodeFLAC(pcm, sampleRate, channels, bitsPerSample)
	}
	return nil, fmt.Errorf("unknown upload format %q (use wav or flac)", format)
}

// ValidFormat reports whether Encode accepts format.
func ValidFormat(format string) bool {
	return format == FormatWAV || format == FormatFLAC
}
