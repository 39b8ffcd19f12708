package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const WAVHeaderSize = 44

// WAVHeader holds the fields of a canonical 44-byte PCM header.
type WAVHeader struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// EncodeWAV prepends a canonical RIFF/WAVE header to pcm. The output
// depends only on the arguments.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, WAVHeaderSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[WAVHeaderSize:], pcm)
	return buf
}

var ErrNotWAV = errors.New("not a canonical PCM WAV file")

// DecodeWAV parses a canonical header written by EncodeWAV and returns
// it with the PCM that follows.
func DecodeWAV(data []byte) (WAVHeader, []byte, error) {
	if len(data) < WAVHeaderSize {
		return WAVHeader{}, nil, fmt.Errorf("%w: %d bytes", ErrNotWAV, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" ||
		string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return WAVHeader{}, nil, fmt.Errorf("%w: bad chunk ids", ErrNotWAV)
	}
	if binary.LittleEndian.Uint32(data[16:20]) != 16 || binary.LittleEndian.Uint16(data[20:22]) != 1 {
		return WAVHeader{}, nil, fmt.Errorf("%w: not PCM", ErrNotWAV)
	}

	h := WAVHeader{
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
		DataSize:      int(binary.LittleEndian.Uint32(data[40:44])),
	}
	if riff := int(binary.LittleEndian.Uint32(data[4:8])); riff != 36+h.DataSize {
		return WAVHeader{}, nil, fmt.Errorf("%w: RIFF size %d does not match data size %d", ErrNotWAV, riff, h.DataSize)
	}
	if len(data)-WAVHeaderSize < h.DataSize {
		return WAVHeader{}, nil, fmt.Errorf("%w: truncated data (%d of %d bytes)", ErrNotWAV, len(data)-WAVHeaderSize, h.DataSize)
	}
	return h, data[WAVHeaderSize : WAVHeaderSize+h.DataSize], nil
}
