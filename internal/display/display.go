// Package display provides the overlay window that sits behind the desktop icons.
package display

import (
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

const (
	// BackendX11 draws into a desktop-type X11 window
	BackendX11 = "x11"
	// BackendHeadless keeps everything in memory
	BackendHeadless = "headless"
)

// New opens the display backend selected by the configuration
func New(cfg domain.Config, logger *zap.Logger) (domain.Display, error) {
	switch cfg.GetDisplayBackend() {
	case BackendX11:
		return NewX11(logger)
	case BackendHeadless:
		return NewHeadless(logger, NewScreenResolution(logger)), nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.GetDisplayBackend())
	}
}
