package audio

import "time"

// Block is one capture-callback worth of interleaved 16-bit PCM samples.
// Ownership transfers from the capture producer to the segmenter; a Block is
// never mutated after production.
type Block struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Duration returns the playback duration of the block.
func (b Block) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}
