package segmenter

import (
	"testing"
	"time"

	"github.com/asoltys/audiomh/internal/audio"
)

// testConfig uses a 1000 Hz mono stream so durations map to round sample
// counts: 500 samples minimum speech, 300 samples silence boundary, 10000
// samples forced flush, 100 samples per idle tick.
func testConfig() Config {
	return Config{
		EnergyThreshold:    300,
		MinSpeechDuration:  500 * time.Millisecond,
		SilenceDuration:    300 * time.Millisecond,
		MaxSegmentDuration: 10 * time.Second,
		PollInterval:       100 * time.Millisecond,
		SampleRate:         1000,
		Channels:           1,
	}
}

type collectingDispatcher struct {
	segments []Segment
}

func (d *collectingDispatcher) Dispatch(seg Segment) {
	d.segments = append(d.segments, seg)
}

func newTestSegmenter(t *testing.T, cfg Config) (*Segmenter, *collectingDispatcher) {
	t.Helper()
	sink := &collectingDispatcher{}
	s, err := New(cfg, sink, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create segmenter: %v", err)
	}
	return s, sink
}

func loudBlock(n int) audio.Block {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 1000
	}
	return audio.Block{Samples: samples, Channels: 1, SampleRate: 1000}
}

func quietBlock(n int) audio.Block {
	return audio.Block{Samples: make([]int16, n), Channels: 1, SampleRate: 1000}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero threshold", mutate: func(c *Config) { c.EnergyThreshold = 0 }},
		{name: "negative threshold", mutate: func(c *Config) { c.EnergyThreshold = -10 }},
		{name: "zero min speech", mutate: func(c *Config) { c.MinSpeechDuration = 0 }},
		{name: "zero silence", mutate: func(c *Config) { c.SilenceDuration = 0 }},
		{name: "zero max segment", mutate: func(c *Config) { c.MaxSegmentDuration = 0 }},
		{name: "min exceeds max", mutate: func(c *Config) { c.MinSpeechDuration = 20 * time.Second }},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }},
		{name: "zero sample rate", mutate: func(c *Config) { c.SampleRate = 0 }},
		{name: "zero channels", mutate: func(c *Config) { c.Channels = 0 }},
		{name: "silence rounds to zero samples", mutate: func(c *Config) { c.SilenceDuration = 100 * time.Microsecond }},
		{name: "poll interval rounds to zero samples", mutate: func(c *Config) { c.PollInterval = 100 * time.Microsecond }},
		{name: "min speech rounds to zero samples", mutate: func(c *Config) {
			c.MinSpeechDuration = 100 * time.Microsecond
			c.MaxSegmentDuration = 200 * time.Microsecond
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, &collectingDispatcher{}, nil, nil); err == nil {
				t.Error("Expected construction error but got none")
			}
		})
	}

	if _, err := New(testConfig(), nil, nil, nil); err == nil {
		t.Error("Expected error for nil dispatcher")
	}
}

func TestIdleDiscardsQuietBlocks(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	for i := 0; i < 10; i++ {
		s.ProcessBlock(quietBlock(200))
	}

	stats := s.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected idle state, got %s", stats.State)
	}

	if stats.PendingSamples != 0 {
		t.Errorf("Expected no pending samples, got %d", stats.PendingSamples)
	}

	if len(sink.segments) != 0 {
		t.Errorf("Expected no segments, got %d", len(sink.segments))
	}
}

func TestIdleTicksAreIdempotent(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	for i := 0; i < 50; i++ {
		s.Tick()
	}

	stats := s.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected idle state after ticks, got %s", stats.State)
	}

	if stats.TicksProcessed != 50 {
		t.Errorf("Expected 50 ticks processed, got %d", stats.TicksProcessed)
	}

	if len(sink.segments) != 0 {
		t.Errorf("Expected no output from idle ticks, got %d segments", len(sink.segments))
	}
}

func TestSilenceEndsSegment(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// 600 loud samples, then exactly the silence boundary of quiet samples.
	s.ProcessBlock(loudBlock(600))
	s.ProcessBlock(quietBlock(150))
	s.ProcessBlock(quietBlock(150))

	if len(sink.segments) != 1 {
		t.Fatalf("Expected exactly one segment, got %d", len(sink.segments))
	}

	seg := sink.segments[0]
	if len(seg.Samples) != 900 {
		t.Errorf("Expected segment of 900 samples (speech + trailing silence), got %d", len(seg.Samples))
	}

	if seg.ID == "" {
		t.Error("Expected segment to carry an ID")
	}

	if seg.SampleRate != 1000 || seg.Channels != 1 {
		t.Errorf("Expected format 1000Hz/1ch, got %dHz/%dch", seg.SampleRate, seg.Channels)
	}

	if stats := s.GetStats(); stats.State != "idle" {
		t.Errorf("Expected segmenter to return to idle, got %s", stats.State)
	}
}

func TestShortSegmentDiscarded(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// 100 loud + 300 trailing quiet samples leave the pending segment at
	// 400, below the 500-sample minimum.
	s.ProcessBlock(loudBlock(100))
	s.ProcessBlock(quietBlock(300))

	if len(sink.segments) != 0 {
		t.Fatalf("Expected short segment to be discarded, got %d segments", len(sink.segments))
	}

	stats := s.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected idle state after discard, got %s", stats.State)
	}

	if stats.SegmentsDiscarded != 1 {
		t.Errorf("Expected 1 discarded segment, got %d", stats.SegmentsDiscarded)
	}
}

func TestSegmentAtExactMinimumEmitted(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// 200 loud + 300 trailing quiet samples land exactly on the 500-sample
	// minimum; the trailing silence counts toward the length.
	s.ProcessBlock(loudBlock(200))
	s.ProcessBlock(quietBlock(300))

	if len(sink.segments) != 1 {
		t.Fatalf("Expected segment at exact minimum length to be emitted, got %d segments", len(sink.segments))
	}

	if got := len(sink.segments[0].Samples); got != 500 {
		t.Errorf("Expected 500-sample segment, got %d", got)
	}

	if stats := s.GetStats(); stats.SegmentsDiscarded != 0 {
		t.Errorf("Expected no discards, got %d", stats.SegmentsDiscarded)
	}
}

func TestQuietCounterResetsOnSpeech(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	s.ProcessBlock(loudBlock(600))
	s.ProcessBlock(quietBlock(200)) // below the 300-sample boundary
	s.ProcessBlock(loudBlock(100))  // resets the quiet counter
	s.ProcessBlock(quietBlock(200))

	if len(sink.segments) != 0 {
		t.Fatalf("Expected no segment while quiet counter is below boundary, got %d", len(sink.segments))
	}

	s.ProcessBlock(quietBlock(100))

	if len(sink.segments) != 1 {
		t.Fatalf("Expected one segment, got %d", len(sink.segments))
	}

	if got := len(sink.segments[0].Samples); got != 1200 {
		t.Errorf("Expected 1200 samples (all appended blocks), got %d", got)
	}
}

func TestForcedFlushAtMaxDuration(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// Continuous speech totaling exactly the 10000-sample maximum.
	for i := 0; i < 10; i++ {
		s.ProcessBlock(loudBlock(1000))
	}

	if len(sink.segments) != 1 {
		t.Fatalf("Expected exactly one forced-flush segment, got %d", len(sink.segments))
	}

	if got := len(sink.segments[0].Samples); got != 10000 {
		t.Errorf("Expected segment of exactly 10000 samples, got %d", got)
	}

	stats := s.GetStats()
	if stats.State != "idle" {
		t.Errorf("Expected idle state after forced flush, got %s", stats.State)
	}

	if stats.PendingSamples != 0 {
		t.Errorf("Expected no pending samples after forced flush, got %d", stats.PendingSamples)
	}
}

func TestOversizedBlockSplitsAtBound(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// A single loud block far beyond the maximum yields full-length
	// segments and keeps the remainder pending.
	s.ProcessBlock(loudBlock(25000))

	if len(sink.segments) != 2 {
		t.Fatalf("Expected two full segments from oversized block, got %d", len(sink.segments))
	}

	for i, seg := range sink.segments {
		if len(seg.Samples) != 10000 {
			t.Errorf("Segment %d: expected 10000 samples, got %d", i, len(seg.Samples))
		}
	}

	stats := s.GetStats()
	if stats.State != "accumulating" {
		t.Errorf("Expected remainder to keep accumulating, got %s", stats.State)
	}

	if stats.PendingSamples != 5000 {
		t.Errorf("Expected 5000 pending samples, got %d", stats.PendingSamples)
	}
}

func TestIdleTicksEndStalledSegment(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	s.ProcessBlock(loudBlock(600))

	// Each tick is worth 100 quiet samples; three reach the boundary.
	s.Tick()
	s.Tick()
	if len(sink.segments) != 0 {
		t.Fatalf("Expected no segment before silence boundary, got %d", len(sink.segments))
	}

	s.Tick()

	if len(sink.segments) != 1 {
		t.Fatalf("Expected one segment after stalled-stream silence, got %d", len(sink.segments))
	}

	// Ticks are zero-sample blocks: only the speech itself is emitted.
	if got := len(sink.segments[0].Samples); got != 600 {
		t.Errorf("Expected 600 samples, got %d", got)
	}
}

func TestRunClosureDiscardsPending(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	blocks := make(chan audio.Block, 4)
	blocks <- loudBlock(600)
	close(blocks)

	done := make(chan struct{})
	go func() {
		s.Run(blocks)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not terminate on channel closure")
	}

	if len(sink.segments) != 0 {
		t.Errorf("Expected pending segment to be discarded on closure, got %d segments", len(sink.segments))
	}
}

func TestRunProcessesAndEmits(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	blocks := make(chan audio.Block, 8)
	blocks <- loudBlock(600)
	blocks <- quietBlock(300)
	blocks <- quietBlock(50) // sub-threshold while idle, discarded
	close(blocks)

	done := make(chan struct{})
	go func() {
		s.Run(blocks)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not terminate")
	}

	if len(sink.segments) != 1 {
		t.Fatalf("Expected one segment, got %d", len(sink.segments))
	}

	if got := len(sink.segments[0].Samples); got != 900 {
		t.Errorf("Expected 900 samples, got %d", got)
	}
}

func TestEmittedSegmentsRespectDurationBounds(t *testing.T) {
	s, sink := newTestSegmenter(t, testConfig())

	// A deterministic pseudo-random mix of loud and quiet blocks of varying
	// sizes. Whatever the sequence, every emitted segment must respect the
	// configured bounds.
	seed := uint64(42)
	next := func() uint64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return seed
	}

	for i := 0; i < 500; i++ {
		n := int(next()%900) + 1
		if next()%3 == 0 {
			s.ProcessBlock(quietBlock(n))
		} else {
			s.ProcessBlock(loudBlock(n))
		}
		if next()%5 == 0 {
			s.Tick()
		}
	}

	if len(sink.segments) == 0 {
		t.Fatal("Expected at least one segment from mixed input")
	}

	for i, seg := range sink.segments {
		if len(seg.Samples) < 500 {
			t.Errorf("Segment %d shorter than minimum: %d samples", i, len(seg.Samples))
		}
		if len(seg.Samples) > 10000 {
			t.Errorf("Segment %d longer than maximum: %d samples", i, len(seg.Samples))
		}
	}
}

func TestSegmentDuration(t *testing.T) {
	seg := Segment{Samples: make([]int16, 2000), Channels: 2, SampleRate: 1000}
	if got := seg.Duration(); got != time.Second {
		t.Errorf("Expected 1s duration, got %v", got)
	}
}
