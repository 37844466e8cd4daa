package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/asoltys/audiomh/internal/audio"
	"github.com/asoltys/audiomh/internal/metrics"
	"github.com/asoltys/audiomh/internal/segmenter"
	"github.com/asoltys/audiomh/internal/textfilter"
)

// Transcriber converts a WAV-encoded segment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, wavData []byte) (string, error)
}

// Sink receives cleaned transcription lines.
type Sink interface {
	Write(line string) error
}

// Config contains dispatcher configuration
type Config struct {
	// MaxConcurrent bounds the number of exports running at once. Further
	// segments queue on the semaphore inside their own goroutines, so
	// Dispatch itself never blocks.
	MaxConcurrent int64
	// ExportTimeout bounds one transcription request.
	ExportTimeout time.Duration
}

// Stats represents dispatcher statistics for monitoring
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Delivered  uint64 `json:"delivered"`
	Filtered   uint64 `json:"filtered"`
	Failed     uint64 `json:"failed"`
	InFlight   int64  `json:"in_flight"`
}

// Dispatcher hands finalized segments to concurrently running export tasks.
// A failure in one export is logged and isolated; it never affects the
// segmenter or other exports.
type Dispatcher struct {
	cfg         Config
	transcriber Transcriber
	sink        Sink
	logger      *slog.Logger
	metrics     *metrics.Metrics

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// Statistics
	dispatched uint64
	delivered  uint64
	filtered   uint64
	failed     uint64
	inFlight   int64

	mu sync.Mutex
}

// New creates a dispatcher.
func New(cfg Config, transcriber Transcriber, sink Sink, logger *slog.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}

	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}

	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = 30 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cfg:         cfg,
		transcriber: transcriber,
		sink:        sink,
		logger:      logger,
		metrics:     m,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
	}, nil
}

// Dispatch starts an export for the segment and returns immediately. The
// dispatcher takes ownership of the segment's sample data.
func (d *Dispatcher) Dispatch(seg segmenter.Segment) {
	d.mu.Lock()
	d.dispatched++
	d.mu.Unlock()

	d.wg.Add(1)
	go d.export(seg)
}

// export runs the encode → transcribe → filter → deliver pipeline for one
// segment.
func (d *Dispatcher) export(seg segmenter.Segment) {
	defer d.wg.Done()

	if err := d.sem.Acquire(context.Background(), 1); err != nil {
		d.fail(seg.ID, "queue", err)
		return
	}
	defer d.sem.Release(1)

	d.trackStart()
	defer d.trackEnd()

	wavData, err := audio.EncodeWAV(seg.Samples, seg.Channels, seg.SampleRate)
	if err != nil {
		d.fail(seg.ID, "encode", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.ExportTimeout)
	defer cancel()

	start := time.Now()
	text, err := d.transcriber.Transcribe(ctx, seg.ID+".wav", wavData)
	if d.metrics != nil {
		d.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		d.fail(seg.ID, "transcribe", err)
		return
	}

	cleaned, keep := textfilter.Clean(text)
	if !keep {
		d.mu.Lock()
		d.filtered++
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.TranscriptionsDropped.Inc()
		}
		d.logger.Debug("Transcription discarded by post-filter",
			slog.String("segment_id", seg.ID),
			slog.String("text", text),
		)
		return
	}

	if err := d.sink.Write(cleaned); err != nil {
		d.fail(seg.ID, "deliver", err)
		return
	}

	d.mu.Lock()
	d.delivered++
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.LinesDelivered.Inc()
	}

	d.logger.Info("Transcription delivered",
		slog.String("segment_id", seg.ID),
		slog.String("text", cleaned),
		slog.Duration("segment_duration", seg.Duration()),
	)
}

// fail records and logs a segment-local export failure.
func (d *Dispatcher) fail(segmentID, stage string, err error) {
	d.mu.Lock()
	d.failed++
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.ExportFailures.WithLabelValues(stage).Inc()
	}

	d.logger.Error("Segment export failed",
		slog.String("segment_id", segmentID),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

func (d *Dispatcher) trackStart() {
	d.mu.Lock()
	d.inFlight++
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.ExportsInFlight.Inc()
	}
}

func (d *Dispatcher) trackEnd() {
	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.ExportsInFlight.Dec()
	}
}

// Close waits for in-flight exports to finish. It returns the context error
// if the deadline expires first; exports are not cancelled, only abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("exports still in flight at shutdown: %w", ctx.Err())
	}
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{
		Dispatched: d.dispatched,
		Delivered:  d.delivered,
		Filtered:   d.filtered,
		Failed:     d.failed,
		InFlight:   d.inFlight,
	}
}
