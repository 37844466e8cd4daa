package audio

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV encodes interleaved PCM-16 samples into an in-memory WAV file
// suitable for multipart upload. Returns an error for an empty segment or
// invalid format parameters.
func EncodeWAV(samples []int16, channels, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio segment")
	}

	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channels)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := newSeekableBuffer(44 + len(samples)*2)
	enc := wav.NewEncoder(buf, sampleRate, 16, channels, 1)

	if err := enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}); err != nil {
		return nil, fmt.Errorf("failed to write WAV data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize WAV encoding: %w", err)
	}

	return buf.Bytes(), nil
}

// seekableBuffer is an in-memory io.WriteSeeker. The WAV encoder seeks back
// into the header to patch chunk sizes on Close, so bytes.Buffer alone is not
// enough.
type seekableBuffer struct {
	data []byte
	pos  int
}

func newSeekableBuffer(capacity int) *seekableBuffer {
	return &seekableBuffer{data: make([]byte, 0, capacity)}
}

func (b *seekableBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		if need > cap(b.data) {
			grown := make([]byte, len(b.data), need*2)
			copy(grown, b.data)
			b.data = grown
		}
		b.data = b.data[:need]
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid seek whence: %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position: %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}

// Bytes returns the encoded file contents.
func (b *seekableBuffer) Bytes() []byte {
	return b.data
}
