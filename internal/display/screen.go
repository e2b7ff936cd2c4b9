package display

import (
	"image"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// fallbackResolution is used when no display can be queried
var fallbackResolution = domain.ScreenResolution{Width: 1920, Height: 1080}

// NewScreenResolution detects the size of the screen the overlay covers
func NewScreenResolution(logger *zap.Logger) domain.ScreenResolution {
	n := screenshot.NumActiveDisplays()
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, screenshot.GetDisplayBounds(i))
	}

	res, ok := primaryResolution(bounds)
	if !ok {
		logger.Warn("No active displays detected, falling back to default resolution",
			zap.Int("width", res.Width),
			zap.Int("height", res.Height))
		return res
	}

	logger.Info("Screen resolution detected",
		zap.Int("displays", n),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height))
	return res
}

// primaryResolution picks the monitor at the desktop origin, where the desktop window
// is placed. Without one it takes the largest monitor.
func primaryResolution(bounds []image.Rectangle) (domain.ScreenResolution, bool) {
	var best image.Rectangle
	for _, b := range bounds {
		if b.Empty() {
			continue
		}
		if b.Min == (image.Point{}) {
			best = b
			break
		}
		if b.Dx()*b.Dy() > best.Dx()*best.Dy() {
			best = b
		}
	}
	if best.Empty() {
		return fallbackResolution, false
	}
	return domain.ScreenResolution{Width: best.Dx(), Height: best.Dy()}, true
}
