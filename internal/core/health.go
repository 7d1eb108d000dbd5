package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/care/myo/internal/metrics"
)

// HealthStatus is the status document served on /health and published on
// the health topic
type HealthStatus struct {
	Status           string  `json:"status"` // healthy, degraded, unhealthy
	InstanceID       string  `json:"instance_id"`
	RoomID           string  `json:"room_id"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CaptureRunning   bool    `json:"capture_running"`
	MQTTConnected    bool    `json:"mqtt_connected"`
	SamplesCaptured  uint64  `json:"samples_captured"`
	SampleRateReal   float64 `json:"sample_rate_real_hz"`
	CaptureErrors    uint64  `json:"capture_errors"`
	WindowsProcessed uint64  `json:"windows_processed"`
	TriggersDropped  uint64  `json:"triggers_dropped"`
	Phase            string  `json:"phase,omitempty"`
	ReferenceHz      float64 `json:"reference_hz,omitempty"`
	Fatigued         bool    `json:"fatigued"`
	LastWindow       uint64  `json:"last_window,omitempty"`
	LastMedianHz     float64 `json:"last_median_hz,omitempty"`
}

// HealthCheck returns the current health of the daemon. Session state comes
// from the latest published result, so it can lag the cycle by one window.
func (m *Myo) HealthCheck() HealthStatus {
	m.mu.RLock()
	running := m.isRunning
	started := m.started
	handler := m.controlHandler
	m.mu.RUnlock()

	status := HealthStatus{
		Status:     "healthy",
		InstanceID: m.cfg.InstanceID,
		RoomID:     m.cfg.RoomID,
	}
	if running {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	}

	captureStats := m.reader.Stats()
	status.CaptureRunning = captureStats.IsRunning
	status.SamplesCaptured = captureStats.SampleCount
	status.SampleRateReal = captureStats.RateReal
	status.CaptureErrors = captureStats.Errors

	status.MQTTConnected = m.emitter.Stats().Connected
	status.WindowsProcessed = m.processor.Windows()
	if handler != nil {
		status.TriggersDropped = handler.Stats().Dropped
	}

	if result, ok := m.statusRecv.TryReceive(); ok {
		status.Phase = string(result.Phase)
		status.ReferenceHz = result.Reference
		status.Fatigued = result.Fatigued
		status.LastWindow = result.Window
		status.LastMedianHz = result.Features.MedianFreq
	}

	if !running {
		status.Status = "unhealthy"
	} else if !status.CaptureRunning || !status.MQTTConnected {
		status.Status = "degraded"
	}

	return status
}

// LivenessHandler handles the /health endpoint
func (m *Myo) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	status := m.HealthCheck()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Error("failed to encode health status", "error", err)
	}
}

// ReadinessHandler handles the /readiness endpoint. Ready means capturing
// and connected, not merely alive.
func (m *Myo) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	status := m.HealthCheck()

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	response := map[string]interface{}{
		"ready":  status.Status == "healthy",
		"status": status.Status,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode readiness status", "error", err)
	}
}

// StartHealthServer starts the HTTP endpoint for health checks and
// prometheus scraping
func (m *Myo) StartHealthServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.LivenessHandler)
	mux.HandleFunc("/readiness", m.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", m.cfg.Health.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("health server starting", "port", m.cfg.Health.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	return nil
}

// healthLoop periodically publishes status to the health topic and mirrors
// component counters into prometheus
func (m *Myo) healthLoop(ctx context.Context) {
	defer m.wg.Done()

	interval := time.Duration(m.cfg.Health.PublishIntervalS) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSamples, lastErrors, lastDropped uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := m.HealthCheck()

			// Counters advance by delta so the prometheus totals stay
			// monotone across this loop
			metrics.SamplesCaptured.Add(float64(status.SamplesCaptured - lastSamples))
			metrics.CaptureErrors.Add(float64(status.CaptureErrors - lastErrors))
			metrics.TriggersDropped.Add(float64(status.TriggersDropped - lastDropped))
			lastSamples = status.SamplesCaptured
			lastErrors = status.CaptureErrors
			lastDropped = status.TriggersDropped

			payload, err := json.Marshal(status)
			if err != nil {
				slog.Error("failed to marshal health status", "error", err)
				continue
			}
			if err := m.publisher.PublishHealth(payload); err != nil {
				slog.Debug("health publish failed", "error", err)
				continue
			}
			metrics.MessagesPublished.WithLabelValues("health").Inc()
		}
	}
}
