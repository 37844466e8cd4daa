package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asoltys/audiomh/internal/capture"
	"github.com/asoltys/audiomh/internal/dispatch"
	"github.com/asoltys/audiomh/internal/segmenter"
)

// Engine owns the single capture session: the device source feeding the
// segmentation loop, which feeds the dispatch coordinator.
type Engine struct {
	logger     *slog.Logger
	source     *capture.Source
	segmenter  *segmenter.Segmenter
	dispatcher *dispatch.Dispatcher

	wg        sync.WaitGroup
	startTime time.Time
	mu        sync.RWMutex
}

// Status aggregates the pipeline statistics for the monitoring endpoint.
type Status struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	Capture       capture.Stats   `json:"capture"`
	Segmenter     segmenter.Stats `json:"segmenter"`
	Dispatch      dispatch.Stats  `json:"dispatch"`
}

// New creates an engine over already constructed pipeline components.
func New(source *capture.Source, seg *segmenter.Segmenter, disp *dispatch.Dispatcher, logger *slog.Logger) (*Engine, error) {
	if source == nil || seg == nil || disp == nil {
		return nil, fmt.Errorf("all pipeline components are required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		logger:     logger,
		source:     source,
		segmenter:  seg,
		dispatcher: disp,
	}, nil
}

// Start opens the capture device and launches the segmentation loop.
func (e *Engine) Start() error {
	if err := e.source.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	e.mu.Lock()
	e.startTime = time.Now()
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.segmenter.Run(e.source.Blocks())
		e.logger.Info("Segmentation loop terminated")
	}()

	e.logger.Info("Engine started")
	return nil
}

// Stop tears the session down: the capture channel is closed, the
// segmentation loop drains and exits, then in-flight exports are awaited up
// to the context deadline.
func (e *Engine) Stop(ctx context.Context) error {
	e.source.Stop()
	e.wg.Wait()

	if err := e.dispatcher.Close(ctx); err != nil {
		return fmt.Errorf("dispatcher shutdown: %w", err)
	}

	e.logger.Info("Engine stopped")
	return nil
}

// GetStatus returns the aggregated pipeline statistics.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	started := e.startTime
	e.mu.RUnlock()

	uptime := float64(0)
	if !started.IsZero() {
		uptime = time.Since(started).Seconds()
	}

	return Status{
		UptimeSeconds: uptime,
		Capture:       e.source.GetStats(),
		Segmenter:     e.segmenter.GetStats(),
		Dispatch:      e.dispatcher.GetStats(),
	}
}
