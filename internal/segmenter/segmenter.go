package segmenter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asoltys/audiomh/internal/audio"
	"github.com/asoltys/audiomh/internal/metrics"
)

// State represents the current phase of the segmentation automaton
type State int

const (
	// StateIdle means no pending segment exists; sub-threshold blocks are
	// discarded.
	StateIdle State = iota
	// StateAccumulating means a pending segment is under construction and
	// every incoming block is appended to it.
	StateAccumulating
)

// Segment is an immutable finalized utterance handed to the dispatcher.
// Ownership of the sample data transfers with the hand-off; the segmenter
// never touches it again.
type Segment struct {
	ID         string
	Samples    []int16
	Channels   int
	SampleRate int
}

// Duration returns the playback duration of the segment.
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 || s.Channels <= 0 {
		return 0
	}
	frames := len(s.Samples) / s.Channels
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

// Dispatcher receives finalized segments. Dispatch must not block beyond the
// time needed to hand off ownership.
type Dispatcher interface {
	Dispatch(seg Segment)
}

// Config contains the segmentation tuning constants. All durations are
// converted to interleaved sample counts at construction.
type Config struct {
	EnergyThreshold    float64
	MinSpeechDuration  time.Duration
	SilenceDuration    time.Duration
	MaxSegmentDuration time.Duration
	PollInterval       time.Duration
	SampleRate         int
	Channels           int
}

// Stats represents segmenter statistics for monitoring
type Stats struct {
	State             string `json:"state"`
	BlocksProcessed   uint64 `json:"blocks_processed"`
	TicksProcessed    uint64 `json:"ticks_processed"`
	SegmentsEmitted   uint64 `json:"segments_emitted"`
	SegmentsDiscarded uint64 `json:"segments_discarded"`
	PendingSamples    int    `json:"pending_samples"`
}

// Segmenter is the segmentation state machine. All inputs (blocks, idle
// ticks, upstream closure) are processed on the single goroutine running
// Run, so state transitions need no internal synchronization; the mutex only
// guards the statistics read by the monitoring endpoint.
type Segmenter struct {
	cfg        Config
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Duration bounds converted to interleaved sample counts
	minSpeechSamples  int
	silenceSamples    int
	maxSegmentSamples int
	tickSamples       int

	// Automaton state, owned by the Run goroutine
	state        State
	pending      []int16
	quietSamples int

	// Statistics
	blocksProcessed   uint64
	ticksProcessed    uint64
	segmentsEmitted   uint64
	segmentsDiscarded uint64

	mu sync.RWMutex
}

// New creates a segmenter. Invalid tuning constants are rejected here so the
// processing loop itself is total.
func New(cfg Config, dispatcher Dispatcher, logger *slog.Logger, m *metrics.Metrics) (*Segmenter, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}

	if cfg.EnergyThreshold <= 0 {
		return nil, fmt.Errorf("energy threshold must be positive, got %f", cfg.EnergyThreshold)
	}

	if cfg.MinSpeechDuration <= 0 {
		return nil, fmt.Errorf("minimum speech duration must be positive, got %v", cfg.MinSpeechDuration)
	}

	if cfg.SilenceDuration <= 0 {
		return nil, fmt.Errorf("silence duration must be positive, got %v", cfg.SilenceDuration)
	}

	if cfg.MaxSegmentDuration <= 0 {
		return nil, fmt.Errorf("maximum segment duration must be positive, got %v", cfg.MaxSegmentDuration)
	}

	if cfg.MinSpeechDuration > cfg.MaxSegmentDuration {
		return nil, fmt.Errorf("minimum speech duration (%v) must not exceed maximum segment duration (%v)",
			cfg.MinSpeechDuration, cfg.MaxSegmentDuration)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", cfg.PollInterval)
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", cfg.Channels)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Segmenter{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		state:      StateIdle,
	}

	s.minSpeechSamples = s.samplesFor(cfg.MinSpeechDuration)
	s.silenceSamples = s.samplesFor(cfg.SilenceDuration)
	s.maxSegmentSamples = s.samplesFor(cfg.MaxSegmentDuration)
	s.tickSamples = s.samplesFor(cfg.PollInterval)

	// A duration short enough to convert to zero samples would disable the
	// rule it parameterizes (a zero silence boundary finalizes on every
	// block, a zero tick never advances the quiet counter).
	if s.minSpeechSamples == 0 {
		return nil, fmt.Errorf("minimum speech duration %v converts to zero samples at %dHz/%dch",
			cfg.MinSpeechDuration, cfg.SampleRate, cfg.Channels)
	}

	if s.silenceSamples == 0 {
		return nil, fmt.Errorf("silence duration %v converts to zero samples at %dHz/%dch",
			cfg.SilenceDuration, cfg.SampleRate, cfg.Channels)
	}

	if s.maxSegmentSamples == 0 {
		return nil, fmt.Errorf("maximum segment duration %v converts to zero samples at %dHz/%dch",
			cfg.MaxSegmentDuration, cfg.SampleRate, cfg.Channels)
	}

	if s.tickSamples == 0 {
		return nil, fmt.Errorf("poll interval %v converts to zero samples at %dHz/%dch",
			cfg.PollInterval, cfg.SampleRate, cfg.Channels)
	}

	return s, nil
}

// samplesFor converts a duration into an interleaved sample count.
func (s *Segmenter) samplesFor(d time.Duration) int {
	return int(float64(s.cfg.SampleRate*s.cfg.Channels) * d.Seconds())
}

// Run consumes blocks until the channel is closed. When no block arrives
// within the poll interval, an idle tick advances the quiet counter so that
// silence is detected even on a stalled stream. Upstream closure terminates
// the loop without flushing any pending segment: an abrupt stream end is not
// a speech boundary.
func (s *Segmenter) Run(blocks <-chan audio.Block) {
	for {
		select {
		case block, ok := <-blocks:
			if !ok {
				s.mu.RLock()
				discarded := len(s.pending)
				s.mu.RUnlock()
				if discarded > 0 {
					s.logger.Info("Upstream closed, discarding pending segment",
						slog.Int("pending_samples", discarded),
					)
				}
				return
			}
			s.ProcessBlock(block)
		case <-time.After(s.cfg.PollInterval):
			s.Tick()
		}
	}
}

// ProcessBlock feeds one sample block through the automaton.
func (s *Segmenter) ProcessBlock(block audio.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocksProcessed++
	if s.metrics != nil {
		s.metrics.BlocksProcessed.Inc()
	}

	energy := audio.RMS(block.Samples)
	loud := energy >= s.cfg.EnergyThreshold

	switch s.state {
	case StateIdle:
		if !loud {
			return
		}
		// Speech onset: the pending segment starts with this block.
		s.state = StateAccumulating
		s.quietSamples = 0
		s.logger.Debug("Speech onset detected",
			slog.Float64("energy", energy),
			slog.Int("block_samples", len(block.Samples)),
		)
		s.accumulate(block.Samples, loud)

	case StateAccumulating:
		// Always append so trailing word endings survive.
		s.accumulate(block.Samples, loud)
	}
}

// accumulate appends samples to the pending segment, splitting at the
// maximum segment bound so no emitted segment ever exceeds it. A loud block
// that straddles a forced flush seeds the next segment with its remainder;
// the remainder of a quiet block is discarded like any quiet block arriving
// while idle. Callers must hold the mutex.
func (s *Segmenter) accumulate(samples []int16, loud bool) {
	for len(samples) > 0 {
		take := samples
		if room := s.maxSegmentSamples - len(s.pending); len(take) > room {
			take = take[:room]
		}
		s.pending = append(s.pending, take...)
		if loud {
			s.quietSamples = 0
		} else {
			s.quietSamples += len(take)
		}
		samples = samples[len(take):]

		switch {
		case s.quietSamples >= s.silenceSamples:
			s.finalize("silence")
		case len(s.pending) >= s.maxSegmentSamples:
			s.finalize("max_duration")
		}

		if s.state == StateIdle {
			if !loud || len(samples) == 0 {
				return
			}
			s.state = StateAccumulating
			s.quietSamples = 0
		}
	}
}

// Tick advances the quiet counter when the stream is stalled. A tick is a
// zero-sample silent block: it can end a pending segment but never starts
// or grows one.
func (s *Segmenter) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticksProcessed++

	if s.state != StateAccumulating {
		return
	}

	s.quietSamples += s.tickSamples
	if s.quietSamples >= s.silenceSamples {
		s.finalize("idle_silence")
	}
}

// finalize converts the pending segment into a dispatched Segment if it
// meets the minimum speech length, discards it otherwise, and resets the
// automaton to idle. Callers must hold the mutex.
func (s *Segmenter) finalize(reason string) {
	pending := s.pending
	s.pending = nil
	s.state = StateIdle
	s.quietSamples = 0

	if len(pending) < s.minSpeechSamples {
		s.segmentsDiscarded++
		if s.metrics != nil {
			s.metrics.SegmentsDiscarded.Inc()
		}
		s.logger.Debug("Discarding short segment",
			slog.Int("samples", len(pending)),
			slog.Int("min_samples", s.minSpeechSamples),
			slog.String("reason", reason),
		)
		return
	}

	seg := Segment{
		ID:         uuid.NewString(),
		Samples:    pending,
		Channels:   s.cfg.Channels,
		SampleRate: s.cfg.SampleRate,
	}

	s.segmentsEmitted++
	if s.metrics != nil {
		s.metrics.SegmentsEmitted.Inc()
		s.metrics.SegmentDuration.Observe(seg.Duration().Seconds())
	}

	s.logger.Info("Finalized segment",
		slog.String("segment_id", seg.ID),
		slog.Int("samples", len(seg.Samples)),
		slog.Duration("duration", seg.Duration()),
		slog.String("reason", reason),
	)

	s.dispatcher.Dispatch(seg)
}

// GetStats returns current segmenter statistics
func (s *Segmenter) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stateStr := "idle"
	if s.state == StateAccumulating {
		stateStr = "accumulating"
	}

	return Stats{
		State:             stateStr,
		BlocksProcessed:   s.blocksProcessed,
		TicksProcessed:    s.ticksProcessed,
		SegmentsEmitted:   s.segmentsEmitted,
		SegmentsDiscarded: s.segmentsDiscarded,
		PendingSamples:    len(s.pending),
	}
}
