package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/care/myo/internal/config"
)

// Viewer commands, one byte each. The panel wire protocol: the viewer
// sends 'R' to release one processing cycle and 'B' to wipe the plotter.
const (
	CmdRelease = 'R'
	CmdClear   = 'B'
)

// Callbacks contains callback functions for viewer commands
type Callbacks struct {
	// OnClear wipes the viewer presentation state. It runs outside the
	// MQTT callback and may block briefly.
	OnClear func() error
}

// Handler handles control plane commands
type Handler struct {
	cfg       *config.Config
	client    mqtt.Client
	callbacks Callbacks
	commands  chan byte

	// trigger is the cycle gate: capacity 1, so at most one cycle can be
	// pending while another runs. Excess triggers are dropped, not queued.
	trigger chan struct{}

	triggers uint64
	dropped  uint64
	clears   uint64
	ignored  uint64
	stopped  uint32
}

// NewHandler creates a new control plane handler
func NewHandler(cfg *config.Config, client mqtt.Client, callbacks Callbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		callbacks: callbacks,
		commands:  make(chan byte, 10),
		trigger:   make(chan struct{}, 1),
	}
}

// Start starts listening for control commands
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.MQTT.Topics.Control
	qos := h.cfg.MQTT.QoS["control"]

	slog.Info("subscribing to control plane", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control plane subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control plane subscription failed: %w", err)
	}

	slog.Info("control plane handler started")

	// Process commands
	go h.processCommands(ctx)

	return nil
}

// Stop stops the control plane handler. The command channel is never
// closed: paho can still deliver a message already in flight after the
// unsubscribe returns, so late deliveries are flagged off instead. The
// processing loop exits with its context.
func (h *Handler) Stop() error {
	atomic.StoreUint32(&h.stopped, 1)

	topic := h.cfg.MQTT.Topics.Control
	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(topic)
		token.Wait()
	}

	slog.Info("control plane handler stopped")
	return nil
}

// messageHandler is called when a control message is received
func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	if atomic.LoadUint32(&h.stopped) == 1 {
		return
	}

	payload := msg.Payload()
	if len(payload) == 0 {
		atomic.AddUint64(&h.ignored, 1)
		return
	}

	// Only the first byte carries meaning, the rest is ignored
	select {
	case h.commands <- payload[0]:
	default:
		slog.Warn("command queue full, dropping command", "byte", string(payload[0]))
	}
}

// processCommands processes commands from the queue
func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		}
	}
}

// handleCommand executes a single-byte command
func (h *Handler) handleCommand(cmd byte) {
	switch cmd {
	case CmdRelease:
		h.Trigger()

	case CmdClear:
		atomic.AddUint64(&h.clears, 1)
		slog.Info("clear command received")
		if h.callbacks.OnClear != nil {
			if err := h.callbacks.OnClear(); err != nil {
				slog.Error("clear callback failed", "error", err)
			}
		}

	default:
		atomic.AddUint64(&h.ignored, 1)
		slog.Debug("unrecognized control byte ignored", "byte", cmd)
	}
}

// Trigger releases one processing cycle. Returns false when a cycle is
// already pending, in which case the trigger is dropped. The auto-capture
// ticker feeds the same gate.
func (h *Handler) Trigger() bool {
	select {
	case h.trigger <- struct{}{}:
		atomic.AddUint64(&h.triggers, 1)
		return true
	default:
		atomic.AddUint64(&h.dropped, 1)
		slog.Debug("trigger dropped, cycle already pending")
		return false
	}
}

// TriggerCh returns the channel the cycle consumer waits on
func (h *Handler) TriggerCh() <-chan struct{} {
	return h.trigger
}

// Stats returns handler statistics
func (h *Handler) Stats() Stats {
	return Stats{
		Triggers: atomic.LoadUint64(&h.triggers),
		Dropped:  atomic.LoadUint64(&h.dropped),
		Clears:   atomic.LoadUint64(&h.clears),
		Ignored:  atomic.LoadUint64(&h.ignored),
	}
}

// Stats contains handler statistics
type Stats struct {
	Triggers uint64
	Dropped  uint64
	Clears   uint64
	Ignored  uint64
}
