package display

import (
	"errors"
	"image"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/render"
)

// fittedCacheBudget bounds the memory spent on fitted animation frames.
// Frames beyond the budget are fitted again on every display.
const fittedCacheBudget = 256 << 20

// frameSet holds decoded frames and lazily fits them to the window
type frameSet struct {
	src  []domain.Frame
	size domain.ScreenResolution
	mode domain.ScaleMode

	fitted []image.Image
	used   int
}

func newFrameSet(frames []domain.Frame, size domain.ScreenResolution, mode domain.ScaleMode) (*frameSet, error) {
	if len(frames) == 0 {
		return nil, errors.New("image view needs at least one frame")
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, errors.New("display has no size")
	}
	fs := &frameSet{src: frames, size: size}
	fs.setMode(mode)
	return fs, nil
}

func (fs *frameSet) setMode(mode domain.ScaleMode) {
	fs.mode = mode
	fs.fitted = make([]image.Image, len(fs.src))
	fs.used = 0
}

func (fs *frameSet) len() int {
	return len(fs.src)
}

func (fs *frameSet) animated() bool {
	return len(fs.src) > 1
}

func (fs *frameSet) delay(i int) time.Duration {
	return fs.src[i].Delay
}

// frame returns frame i fitted to the window
func (fs *frameSet) frame(i int) (image.Image, error) {
	if img := fs.fitted[i]; img != nil {
		return img, nil
	}

	img, err := render.Fit(fs.src[i].Image, fs.size.Width, fs.size.Height, fs.mode)
	if err != nil {
		return nil, err
	}

	if n := len(img.Pix); fs.used+n <= fittedCacheBudget {
		fs.fitted[i] = img
		fs.used += n
	}
	return img, nil
}
