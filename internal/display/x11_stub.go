//go:build !linux
// +build !linux

package display

import (
	"errors"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// NewX11 is only available on Linux
func NewX11(logger *zap.Logger) (domain.Display, error) {
	logger.Warn("X11 display backend is not supported on this platform")
	return nil, errors.New("x11 display is only available on linux")
}
