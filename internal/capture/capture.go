package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tphakala/malgo"

	"github.com/asoltys/audiomh/internal/audio"
	"github.com/asoltys/audiomh/internal/metrics"
)

// Config contains capture configuration
type Config struct {
	SampleRate int
	Channels   int
	// QueueSize bounds the block channel between the device callback and
	// the segmenter. When the queue is full, new blocks are dropped and
	// counted rather than stalling the callback.
	QueueSize int
}

// Stats represents capture statistics for monitoring
type Stats struct {
	Format         string `json:"format"`
	BlocksCaptured uint64 `json:"blocks_captured"`
	BlocksDropped  uint64 `json:"blocks_dropped"`
	QueueDepth     int    `json:"queue_depth"`
}

// Source captures audio from the default input device and exposes it as a
// channel of sample blocks. The device callback runs on a miniaudio-owned
// thread and must never block; sends into the queue are non-blocking with a
// drop-and-count policy.
type Source struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   malgo.FormatType

	blocks   chan audio.Block
	stopOnce sync.Once

	// Statistics
	captured uint64
	dropped  uint64
	mu       sync.Mutex
}

// formatPreference lists the sample formats we can convert, most preferred
// first. The device is initialized with the first one it accepts.
var formatPreference = []malgo.FormatType{
	malgo.FormatS16,
	malgo.FormatF32,
	malgo.FormatS32,
	malgo.FormatU8,
}

// NewSource creates a capture source. The device is not opened until Start.
func NewSource(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Source, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", cfg.Channels)
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		blocks:  make(chan audio.Block, cfg.QueueSize),
	}, nil
}

// Blocks returns the channel of captured sample blocks. It is closed by
// Stop, signalling upstream closure to the segmenter.
func (s *Source) Blocks() <-chan audio.Block {
	return s.blocks
}

// Start opens the default capture device and begins producing blocks.
func (s *Source) Start() error {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		s.logger.Debug("miniaudio", slog.String("message", message))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	s.malgoCtx = malgoCtx

	var lastErr error
	for _, format := range formatPreference {
		device, err := s.initDevice(format)
		if err != nil {
			lastErr = err
			continue
		}
		s.device = device
		s.format = format
		break
	}
	if s.device == nil {
		s.teardownContext()
		return fmt.Errorf("failed to open capture device in any supported format: %w", lastErr)
	}

	if err := s.device.Start(); err != nil {
		s.device.Uninit()
		s.device = nil
		s.teardownContext()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	s.logger.Info("Capture started",
		slog.String("format", formatName(s.format)),
		slog.Int("sample_rate", s.cfg.SampleRate),
		slog.Int("channels", s.cfg.Channels),
		slog.Int("queue_size", s.cfg.QueueSize),
	)

	return nil
}

// initDevice opens the default capture device in the given format.
func (s *Source) initDevice(format malgo.FormatType) (*malgo.Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(s.cfg.Channels)
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputBuffer, inputBuffer []byte, frameCount uint32) {
			s.onData(inputBuffer)
		},
		Stop: func() {
			// Device-level stop (unplugged, backend error). Reported, not
			// fatal: the segmenter keeps running on ticks.
			s.logger.Warn("Capture device stopped")
		},
	}

	return malgo.InitDevice(s.malgoCtx.Context, deviceConfig, callbacks)
}

// onData runs on the device callback thread. It converts the payload to
// int16 samples and enqueues a block without blocking.
func (s *Source) onData(data []byte) {
	if len(data) == 0 {
		return
	}

	var samples []int16
	switch s.format {
	case malgo.FormatS16:
		samples = audio.Int16FromBytes(data)
	case malgo.FormatF32:
		samples = audio.Int16FromFloat32(data)
	case malgo.FormatS32:
		samples = audio.Int16FromInt32(data)
	case malgo.FormatU8:
		samples = audio.Int16FromUint8(data)
	default:
		return
	}

	block := audio.Block{
		Samples:    samples,
		Channels:   s.cfg.Channels,
		SampleRate: s.cfg.SampleRate,
	}

	select {
	case s.blocks <- block:
		s.mu.Lock()
		s.captured++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.BlocksCaptured.Inc()
			s.metrics.QueueDepth.Set(float64(len(s.blocks)))
		}
	default:
		s.mu.Lock()
		s.dropped++
		dropped := s.dropped
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.BlocksDropped.Inc()
		}
		if dropped == 1 || dropped%100 == 0 {
			s.logger.Warn("Capture queue full, dropping block",
				slog.Uint64("total_dropped", dropped),
			)
		}
	}
}

// Stop shuts down the device and closes the block channel. Safe to call
// more than once.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		if s.device != nil {
			s.device.Uninit()
			s.device = nil
		}
		s.teardownContext()
		close(s.blocks)
		s.logger.Info("Capture stopped")
	})
}

func (s *Source) teardownContext() {
	if s.malgoCtx == nil {
		return
	}
	if err := s.malgoCtx.Uninit(); err != nil {
		s.logger.Warn("Failed to uninitialize audio context", slog.String("error", err.Error()))
	}
	s.malgoCtx.Free()
	s.malgoCtx = nil
}

// GetStats returns current capture statistics
func (s *Source) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Format:         formatName(s.format),
		BlocksCaptured: s.captured,
		BlocksDropped:  s.dropped,
		QueueDepth:     len(s.blocks),
	}
}

func formatName(f malgo.FormatType) string {
	switch f {
	case malgo.FormatS16:
		return "s16"
	case malgo.FormatF32:
		return "f32"
	case malgo.FormatS32:
		return "s32"
	case malgo.FormatU8:
		return "u8"
	default:
		return "unknown"
	}
}
