// Package render decodes wallpaper images and fits them to the screen.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/backdrop/internal/domain"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// minFrameDelay matches what browsers do with 0/10ms GIF delays
	minFrameDelay = 20 * time.Millisecond
	// maxAnimatedFrames bounds memory for very long GIFs
	maxAnimatedFrames = 600
)

var background = color.NRGBA{A: 255}

// LoadFrames decodes the media at path into frames for an image view.
// Static images yield one frame; animated images yield every frame fully composited.
func LoadFrames(path string, kind domain.Kind) ([]domain.Frame, error) {
	switch kind {
	case domain.KindAnimatedImage:
		return loadGIF(path)
	case domain.KindStatic:
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		if err := validate(img); err != nil {
			return nil, err
		}
		return []domain.Frame{{Image: img}}, nil
	default:
		return nil, fmt.Errorf("kind %s has no image frames", kind)
	}
}

func loadGIF(path string) ([]domain.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, errors.New("failed to decode image: no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{})
	count := min(len(g.Image), maxAnimatedFrames)
	frames := make([]domain.Frame, 0, count)

	for i := 0; i < count; i++ {
		src := g.Image[i]
		previous := imaging.Clone(canvas)

		canvas = imaging.Overlay(canvas, src, src.Bounds().Min, 1.0)
		frames = append(frames, domain.Frame{
			Image: imaging.Clone(canvas),
			Delay: frameDelay(g.Delay, i),
		})

		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		switch disposal {
		case gif.DisposalBackground:
			canvas = clearRect(canvas, src.Bounds())
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	// A single-frame GIF is effectively static
	if len(frames) == 1 {
		frames[0].Delay = 0
	}
	return frames, nil
}

func frameDelay(delays []int, i int) time.Duration {
	if i >= len(delays) {
		return minFrameDelay
	}
	d := time.Duration(delays[i]) * 10 * time.Millisecond
	if d < minFrameDelay {
		return minFrameDelay
	}
	return d
}

func clearRect(canvas *image.NRGBA, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return canvas
	}
	return imaging.Paste(canvas, imaging.New(r.Dx(), r.Dy(), color.NRGBA{}), r.Min)
}

// Fit renders img into a w x h canvas according to mode
func Fit(img image.Image, w, h int, mode domain.ScaleMode) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid target size: %dx%d", w, h)
	}
	if err := validate(img); err != nil {
		return nil, err
	}

	switch mode {
	case domain.ScaleStretch:
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	case domain.ScaleTile:
		return tile(img, w, h), nil
	default:
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos), nil
	}
}

// tile draws in place: imaging.Paste copies the whole canvas per call
func tile(img image.Image, w, h int) *image.NRGBA {
	dst := imaging.New(w, h, background)
	b := img.Bounds()
	for y := 0; y < h; y += b.Dy() {
		for x := 0; x < w; x += b.Dx() {
			draw.Draw(dst, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		}
	}
	return dst
}

// Thumbnail scales img to fit inside a size x size box, keeping aspect ratio
func Thumbnail(img image.Image, size int) *image.NRGBA {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// validate rejects images with no pixels to avoid division by zero while scaling
func validate(img image.Image) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}
	return nil
}
