//go:build windows
// +build windows

package decoder

import (
	"errors"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// Factory is a placeholder: the player's IPC uses named pipes on Windows, which is not supported yet
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a factory that cannot create decoders
func NewFactory(cfg domain.Config, logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

func (f *Factory) NewDecoder(domain.Surface, domain.DecoderListener) (domain.Decoder, error) {
	f.logger.Warn("Video wallpapers are not supported on Windows")
	return nil, errors.New("video decoding is not supported on windows")
}
