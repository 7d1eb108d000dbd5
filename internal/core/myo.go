package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/care/myo/internal/acquire"
	"github.com/care/myo/internal/config"
	"github.com/care/myo/internal/control"
	"github.com/care/myo/internal/emitter"
	"github.com/care/myo/internal/metrics"
	"github.com/care/myo/internal/resultbus"
	"github.com/care/myo/internal/ring"
	"github.com/care/myo/internal/types"
)

// Myo is the main daemon orchestrator. It owns the capture pipeline, the
// trigger-driven processing cycle, and the MQTT emission paths, and wires
// them together at startup.
type Myo struct {
	cfg *config.Config

	// Core components
	buf            *ring.Buffer
	reader         *acquire.Reader
	processor      *Processor
	bus            *resultbus.Bus
	emitter        *emitter.MQTTEmitter
	publisher      Publisher
	controlHandler *control.Handler
	statusRecv     resultbus.Receiver

	// Lifecycle management
	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
}

// NewMyo creates a daemon instance from a configuration file
func NewMyo(configPath string) (*Myo, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("configuration loaded",
		"instance_id", cfg.InstanceID,
		"room_id", cfg.RoomID,
		"source", cfg.Capture.Source,
	)

	buf, err := ring.New(cfg.Capture.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sample buffer: %w", err)
	}

	sampler, err := buildSampler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	reader, err := acquire.NewReader(sampler, buf, cfg.Capture.SampleRateHz, cfg.Capture.ADCChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}

	bus := resultbus.New()
	em := emitter.NewMQTTEmitter(cfg)

	processor, err := NewProcessor(cfg, buf, em, bus)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	// Latest-value subscription feeding health reports. The cycle owns the
	// fatigue session, so status reads go through published results instead
	// of the session itself.
	statusRecv, err := bus.SubscribeLatest("status")
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe status receiver: %w", err)
	}

	return &Myo{
		cfg:        cfg,
		buf:        buf,
		reader:     reader,
		processor:  processor,
		bus:        bus,
		emitter:    em,
		publisher:  em,
		statusRecv: statusRecv,
	}, nil
}

// buildSampler selects the signal source named in the configuration
func buildSampler(cfg *config.Config) (acquire.Sampler, error) {
	switch cfg.Capture.Source {
	case config.SourceReplay:
		replay, err := acquire.NewReplay(cfg.Capture.ReplayPath)
		if err != nil {
			return nil, err
		}
		slog.Info("using replay source",
			"path", cfg.Capture.ReplayPath,
			"samples", replay.Len(),
		)
		return replay, nil

	default:
		synth, err := acquire.NewSynthEMG(
			float64(cfg.Capture.SampleRateHz),
			cfg.Capture.Synth.Amplitude,
			cfg.Capture.Synth.CenterFreqHz,
			cfg.Capture.Synth.DriftHzPerMin,
			cfg.Capture.Synth.Noise,
		)
		if err != nil {
			return nil, err
		}
		slog.Info("using synth source",
			"center_freq_hz", cfg.Capture.Synth.CenterFreqHz,
			"drift_hz_per_min", cfg.Capture.Synth.DriftHzPerMin,
		)
		return synth, nil
	}
}

// Run starts the daemon and blocks until the context is canceled
func (m *Myo) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	m.isRunning = true
	m.started = time.Now()
	m.mu.Unlock()

	slog.Info("myo service starting",
		"instance_id", m.cfg.InstanceID,
		"sample_rate_hz", m.cfg.Capture.SampleRateHz,
		"window_size", m.cfg.Capture.WindowSize,
	)

	// Start sample acquisition
	if err := m.reader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reader: %w", err)
	}

	// Connect the MQTT emitter
	if err := m.emitter.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect mqtt: %w", err)
	}

	// Control plane: triggers and the clear command ride the same topic.
	// The health server is already serving, so the field is published
	// under the lock it reads through.
	handler := control.NewHandler(m.cfg, m.emitter.Client, control.Callbacks{
		OnClear: m.processor.Clear,
	})
	if err := handler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start control handler: %w", err)
	}
	m.mu.Lock()
	m.controlHandler = handler
	m.mu.Unlock()

	// Results consumer: forwards window results to the results topic
	resultCh := make(chan *types.WindowResult, 16)
	if err := m.bus.Subscribe("mqtt-results", resultCh); err != nil {
		return fmt.Errorf("failed to subscribe results consumer: %w", err)
	}
	m.wg.Add(1)
	go m.consumeResults(ctx, resultCh)

	// Cycle consumer: one full analysis pass per trigger
	m.wg.Add(1)
	go m.runCycles(ctx)

	// Optional self-trigger for headless deployments
	if m.cfg.Capture.AutoIntervalMS > 0 {
		m.wg.Add(1)
		go m.autoTrigger(ctx)
	}

	// Periodic health publishing and counter mirroring
	m.wg.Add(1)
	go m.healthLoop(ctx)

	slog.Info("myo service running",
		"auto_interval_ms", m.cfg.Capture.AutoIntervalMS,
		"health_port", m.cfg.Health.Port,
	)

	<-ctx.Done()

	slog.Info("myo service run loop exiting")
	return nil
}

// runCycles executes one processing cycle per trigger. A cycle that has
// started always runs to completion; cancellation only stops the intake.
func (m *Myo) runCycles(ctx context.Context) {
	defer m.wg.Done()

	slog.Info("cycle consumer started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("cycle consumer stopping", "windows", m.processor.Windows())
			return
		case <-m.controlHandler.TriggerCh():
			result, err := m.processor.RunCycle()
			if err != nil {
				if errors.Is(err, ErrWindowNotReady) {
					slog.Warn("trigger before the first full window, cycle skipped",
						"samples", m.buf.Len(),
						"window_size", m.cfg.Capture.WindowSize,
					)
				} else {
					slog.Error("cycle failed", "error", err)
				}
				continue
			}
			slog.Debug("cycle complete",
				"window", result.Window,
				"trace_id", result.TraceID,
				"fmed_hz", result.Features.MedianFreq,
				"phase", result.Phase,
			)
		}
	}
}

// consumeResults forwards window results to the results topic
func (m *Myo) consumeResults(ctx context.Context, ch <-chan *types.WindowResult) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-ch:
			if !ok {
				return
			}
			if err := m.publisher.PublishResult(result); err != nil {
				metrics.PublishErrors.Inc()
				slog.Error("failed to publish result",
					"window", result.Window,
					"trace_id", result.TraceID,
					"error", err,
				)
				continue
			}
			metrics.MessagesPublished.WithLabelValues("results").Inc()
		}
	}
}

// autoTrigger feeds the trigger gate on a fixed period so a headless
// deployment does not need a viewer issuing release commands
func (m *Myo) autoTrigger(ctx context.Context) {
	defer m.wg.Done()

	interval := time.Duration(m.cfg.Capture.AutoIntervalMS) * time.Millisecond
	slog.Info("auto capture enabled", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.controlHandler.Trigger()
		}
	}
}

// Shutdown gracefully stops the daemon. The context bounds how long to wait
// for in-flight work; an emitting cycle can take over a second to finish.
func (m *Myo) Shutdown(ctx context.Context) error {
	slog.Info("myo service shutting down")

	// Stop the trigger intake first so no new cycle starts
	m.mu.RLock()
	handler := m.controlHandler
	m.mu.RUnlock()
	if handler != nil {
		if err := handler.Stop(); err != nil {
			slog.Error("error stopping control handler", "error", err)
		}
	}

	if err := m.reader.Stop(); err != nil {
		slog.Error("error stopping reader", "error", err)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("all goroutines finished")
	case <-ctx.Done():
		slog.Warn("shutdown timeout reached, abandoning goroutines")
	}

	m.bus.Close()

	if err := m.emitter.Disconnect(); err != nil {
		slog.Error("error disconnecting mqtt", "error", err)
	}

	m.mu.Lock()
	m.isRunning = false
	uptime := time.Since(m.started)
	m.mu.Unlock()

	slog.Info("myo service stopped",
		"uptime", uptime.String(),
		"windows_processed", m.processor.Windows(),
	)
	return nil
}

// ShutdownTimeout returns the configured graceful shutdown window
func (m *Myo) ShutdownTimeout() time.Duration {
	if m.cfg.ShutdownTimeoutS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(m.cfg.ShutdownTimeoutS) * time.Second
}
