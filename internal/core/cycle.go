package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/care/myo/internal/config"
	"github.com/care/myo/internal/dsp"
	"github.com/care/myo/internal/fatigue"
	"github.com/care/myo/internal/feature"
	"github.com/care/myo/internal/metrics"
	"github.com/care/myo/internal/resultbus"
	"github.com/care/myo/internal/ring"
	"github.com/care/myo/internal/telemetry"
	"github.com/care/myo/internal/types"
)

// ErrWindowNotReady is returned when a trigger arrives before the ring has
// accumulated one full window
var ErrWindowNotReady = errors.New("core: window not ready")

// Processor turns one trigger into one full analysis pass over the most
// recent window: filtering, spectrum, features, the fatigue decision, and
// the paced wire-protocol emission toward the viewer. A cycle always runs
// to completion once started; only the daemon shutdown ends it early by
// ending the process.
type Processor struct {
	cfg       *config.Config
	buf       *ring.Buffer
	highPass  *dsp.Filter
	lowPass   *dsp.Filter
	spectrum  *dsp.Spectrum
	session   *fatigue.Session
	publisher PanelPublisher
	bus       *resultbus.Bus

	binPacing time.Duration

	// scratch buffers reused across cycles
	window   []float64
	filtered []float64

	windows uint64
	skipped uint64
}

// NewProcessor wires the analysis chain from the configuration
func NewProcessor(cfg *config.Config, buf *ring.Buffer, publisher PanelPublisher, bus *resultbus.Bus) (*Processor, error) {
	rate := float64(cfg.Capture.SampleRateHz)

	highPass, err := dsp.NewHighPass(rate, cfg.Filters.HighPassHz, cfg.Filters.Order)
	if err != nil {
		return nil, fmt.Errorf("highpass filter: %w", err)
	}
	lowPass, err := dsp.NewLowPass(rate, cfg.Filters.LowPassHz, cfg.Filters.Order)
	if err != nil {
		return nil, fmt.Errorf("lowpass filter: %w", err)
	}
	spectrum, err := dsp.NewSpectrum(rate, cfg.Capture.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: %w", err)
	}
	session, err := fatigue.NewSession(fatigue.Config{
		BaselineWindows:     cfg.Fatigue.BaselineWindows,
		DropThreshold:       cfg.Fatigue.DropThreshold,
		ConsecutiveDeclines: cfg.Fatigue.ConsecutiveDeclines,
	})
	if err != nil {
		return nil, fmt.Errorf("fatigue session: %w", err)
	}

	return &Processor{
		cfg:       cfg,
		buf:       buf,
		highPass:  highPass,
		lowPass:   lowPass,
		spectrum:  spectrum,
		session:   session,
		publisher: publisher,
		bus:       bus,
		binPacing: time.Duration(cfg.Emission.BinPacingMS) * time.Millisecond,
		window:    make([]float64, cfg.Capture.WindowSize),
		filtered:  make([]float64, cfg.Capture.WindowSize),
	}, nil
}

// extract copies the most recent full window out of the ring and stamps it
// with its cycle number and trace identity. The sample slice is scratch
// space reused across cycles, so the window never outlives its cycle.
func (p *Processor) extract() (*types.Window, error) {
	if !p.buf.CopyLatest(p.window) {
		atomic.AddUint64(&p.skipped, 1)
		return nil, ErrWindowNotReady
	}
	return &types.Window{
		Seq:        atomic.AddUint64(&p.windows, 1),
		Timestamp:  time.Now(),
		Samples:    p.window,
		SampleRate: float64(p.cfg.Capture.SampleRateHz),
		TraceID:    uuid.New().String(),
	}, nil
}

// RunCycle processes the latest window and emits the results. Returns
// ErrWindowNotReady when the ring has not yet seen a full window.
func (p *Processor) RunCycle() (*types.WindowResult, error) {
	win, err := p.extract()
	if err != nil {
		return nil, err
	}

	// Band-limit the window, high-pass first. Delay lines start clean so
	// one window's tail never colors the next.
	p.highPass.Reset()
	p.lowPass.Reset()
	for i, x := range win.Samples {
		p.filtered[i] = p.lowPass.Process(p.highPass.Process(x))
	}

	rawMags, err := p.spectrum.Magnitudes(win.Samples)
	if err != nil {
		return nil, fmt.Errorf("raw spectrum: %w", err)
	}
	filtMags, err := p.spectrum.Magnitudes(p.filtered)
	if err != nil {
		return nil, fmt.Errorf("filtered spectrum: %w", err)
	}
	freqs := p.spectrum.Freqs()

	// Spectrum sweep toward the viewer, paced so the panel link keeps up
	for i := range freqs {
		p.sendPanel(telemetry.SpectrumPoint(freqs[i], rawMags[i], filtMags[i]))
		if p.binPacing > 0 {
			time.Sleep(p.binPacing)
		}
	}

	feats := feature.Compute(p.filtered, filtMags, freqs)
	p.sendPanel(telemetry.FeatureSummary(feats.MeanFreq, feats.MedianFreq, feats.RMS))
	p.sendPanel(telemetry.WindowNumber(win.Seq))

	update := p.session.Observe(feats.MedianFreq)
	p.emitUpdate(update)

	result := &types.WindowResult{
		Window:    win.Seq,
		TraceID:   win.TraceID,
		Timestamp: win.Timestamp,
		Features:  feats,
		Phase:     update.Phase,
		Reference: update.Reference,
		Drop:      update.Drop,
		HasDrop:   update.HasDrop,
		Fatigued:  update.Fatigued,
		Events:    update.Events,
		Spectrum: &types.SpectralFrame{
			Freqs:    freqs,
			Raw:      rawMags,
			Filtered: filtMags,
		},
	}
	p.bus.Publish(result)

	p.observeMetrics(update, feats, time.Since(win.Timestamp))

	return result, nil
}

// emitUpdate renders the fatigue outcome of one window onto the panel
func (p *Processor) emitUpdate(u fatigue.Update) {
	// Monitoring windows always report the drop, qualifying or not
	if u.HasDrop {
		p.sendPanel(telemetry.DropRatio(u.Drop))
	}

	for _, e := range u.Events {
		switch e.Kind {
		case types.EventBaselineProgress:
			p.sendPanel(telemetry.BaselineProgress(uint64(u.BaselineCount), p.cfg.Fatigue.BaselineWindows, e.Value))

		case types.EventBaselineRestarted:
			// No wire message for this; the viewer just sees the
			// progress count start over
			slog.Warn("baseline degenerate, restarting accumulation",
				"window", e.Window,
			)

		case types.EventReferenceEstablished:
			p.sendPanel(telemetry.ReferenceEstablished(e.Value))
			slog.Info("reference frequency established",
				"reference_hz", e.Value,
				"window", e.Window,
			)

		case types.EventDeclineDetected:
			p.sendPanel(telemetry.DeclineDetected(e.Value, p.cfg.Fatigue.DropThreshold))
			metrics.DeclinesDetected.Inc()

		case types.EventFatigueConfirmed:
			p.sendPanel(telemetry.FatigueConfirmed(e.Value))
			metrics.FatigueConfirmed.Inc()
			slog.Warn("fatigue confirmed",
				"window", e.Window,
				"drop", e.Value,
			)
		}
	}
}

// sendPanel publishes one panel line. Failures are counted and logged,
// never surfaced: the cycle is fire-and-forget toward the viewer.
func (p *Processor) sendPanel(msg string) {
	if err := p.publisher.PublishPanel(msg); err != nil {
		metrics.PublishErrors.Inc()
		slog.Debug("panel publish failed", "error", err)
		return
	}
	metrics.MessagesPublished.WithLabelValues("panel").Inc()
}

// observeMetrics updates the prometheus view of the latest window
func (p *Processor) observeMetrics(u fatigue.Update, feats types.FeatureSet, elapsed time.Duration) {
	metrics.WindowsProcessed.Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	metrics.RMS.Set(feats.RMS)
	metrics.MeanFrequency.Set(feats.MeanFreq)
	metrics.MedianFrequency.Set(feats.MedianFreq)
	metrics.ReferenceFrequency.Set(u.Reference)
	if u.HasDrop {
		metrics.FrequencyDrop.Set(u.Drop)
	}
	metrics.DeclineStreak.Set(float64(u.Streak))
	if u.Fatigued {
		metrics.FatigueState.Set(1)
	} else {
		metrics.FatigueState.Set(0)
	}
}

// Clear wipes the viewer graph and confirms once the panel has settled
func (p *Processor) Clear() error {
	p.sendPanel(telemetry.ClearGraph)
	time.Sleep(telemetry.ClearSettleDelayMS * time.Millisecond)
	p.sendPanel(telemetry.ClearConfirmation)
	return nil
}

// Windows returns the number of windows processed so far
func (p *Processor) Windows() uint64 {
	return atomic.LoadUint64(&p.windows)
}

// Skipped returns the number of triggers that found no full window
func (p *Processor) Skipped() uint64 {
	return atomic.LoadUint64(&p.skipped)
}
