package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/care/myo/internal/ring"
	"github.com/care/myo/internal/types"
)

// Reader is the producer side of the pipeline: a ticker at the configured
// sample rate pulls one sample per tick from the Sampler and appends it to
// the ring buffer. It never blocks on, or even knows about, the consumer.
type Reader struct {
	sampler Sampler
	buf     *ring.Buffer
	rate    int
	channel int

	stopCh chan struct{}
	wg     sync.WaitGroup

	samples uint64
	errs    uint64

	mu        sync.RWMutex
	isRunning bool
	startTime time.Time
}

// NewReader creates a producer for the given source and buffer
func NewReader(sampler Sampler, buf *ring.Buffer, rate, channel int) (*Reader, error) {
	if sampler == nil {
		return nil, fmt.Errorf("acquire: sampler is required")
	}
	if buf == nil {
		return nil, fmt.Errorf("acquire: ring buffer is required")
	}
	if rate <= 0 {
		return nil, fmt.Errorf("acquire: sample rate must be positive, got %d", rate)
	}
	return &Reader{
		sampler: sampler,
		buf:     buf,
		rate:    rate,
		channel: channel,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins sampling
func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("acquire: reader already running")
	}
	r.isRunning = true
	r.startTime = time.Now()
	r.mu.Unlock()

	slog.Info("sampler starting",
		"rate_hz", r.rate,
		"channel", r.channel,
		"buffer_capacity", r.buf.Cap(),
	)

	r.wg.Add(1)
	go r.run(ctx)

	return nil
}

// Stop stops sampling and waits for the producer goroutine
func (r *Reader) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	slog.Info("sampler stopping")

	close(r.stopCh)
	r.wg.Wait()

	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()

	slog.Info("sampler stopped",
		"samples", atomic.LoadUint64(&r.samples),
		"errors", atomic.LoadUint64(&r.errs),
		"duration", time.Since(r.startTime),
	)

	return nil
}

// Stats returns acquisition statistics
func (r *Reader) Stats() types.CaptureStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	samples := atomic.LoadUint64(&r.samples)

	var rateReal float64
	if r.isRunning && samples > 0 {
		elapsed := time.Since(r.startTime).Seconds()
		if elapsed > 0 {
			rateReal = float64(samples) / elapsed
		}
	}

	return types.CaptureStats{
		SampleCount: samples,
		RateTarget:  r.rate,
		RateReal:    rateReal,
		Channel:     r.channel,
		Errors:      atomic.LoadUint64(&r.errs),
		IsRunning:   r.isRunning,
	}
}

// run is the producer loop
func (r *Reader) run(ctx context.Context) {
	defer r.wg.Done()

	tick := time.Second / time.Duration(r.rate)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	slog.Debug("sample loop started", "tick", tick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			v, err := r.sampler.Read()
			if err != nil {
				atomic.AddUint64(&r.errs, 1)
				slog.Debug("sampler read failed", "error", err)
				continue
			}
			r.buf.Append(v)
			atomic.AddUint64(&r.samples, 1)
		}
	}
}
