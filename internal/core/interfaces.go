package core

import (
	"github.com/care/myo/internal/types"
)

// PanelPublisher sends plotter wire lines to the viewer
type PanelPublisher interface {
	// PublishPanel publishes one panel line verbatim
	PublishPanel(msg string) error
}

// Publisher is the full broker surface the daemon uses
type Publisher interface {
	PanelPublisher
	// PublishResult publishes a window result as JSON
	PublishResult(result *types.WindowResult) error
	// PublishHealth publishes a health status document
	PublishHealth(payload []byte) error
}
