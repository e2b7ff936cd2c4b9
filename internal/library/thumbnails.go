package library

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/render"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ThumbnailSize is the longest edge of a thumbnail in pixels
const ThumbnailSize = 256

// ErrNoVideoThumbnailer is returned for video thumbnails when ffmpeg is not installed
var ErrNoVideoThumbnailer = errors.New("ffmpeg is required for video thumbnails")

// ThumbnailCache generates thumbnails on first request and keeps them on disk,
// keyed by the media path. A file replaced in place keeps its old thumbnail until Clear.
type ThumbnailCache struct {
	logger *zap.Logger
	dir    string
	ffmpeg string

	group singleflight.Group

	once       sync.Once
	ffmpegPath string
	ffmpegErr  error
}

// NewThumbnailCache stores thumbnails in dir
func NewThumbnailCache(dir string, logger *zap.Logger) *ThumbnailCache {
	return &ThumbnailCache{logger: logger, dir: dir, ffmpeg: "ffmpeg"}
}

// Path returns where the thumbnail of media is stored
func (c *ThumbnailCache) Path(media string) string {
	sum := md5.Sum([]byte(media))
	return filepath.Join(c.dir, "thumb_"+hex.EncodeToString(sum[:])+".png")
}

// Get returns the thumbnail of media, generating it if needed
func (c *ThumbnailCache) Get(ctx context.Context, media string) (string, error) {
	thumb := c.Path(media)
	if _, err := os.Stat(thumb); err == nil {
		return thumb, nil
	}

	_, err, _ := c.group.Do(thumb, func() (any, error) {
		return nil, c.generate(ctx, media, thumb)
	})
	if err != nil {
		return "", err
	}
	return thumb, nil
}

func (c *ThumbnailCache) generate(ctx context.Context, media, thumb string) error {
	var (
		img image.Image
		err error
	)
	switch kind := classifier.Classify(media); kind {
	case domain.KindVideo:
		img, err = c.videoFrame(ctx, media)
	default:
		var frames []domain.Frame
		frames, err = render.LoadFrames(media, kind)
		if err == nil {
			img = frames[0].Image
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", media, err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "thumb-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create thumbnail: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, render.Thumbnail(img, ThumbnailSize), imaging.PNG); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), thumb); err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}

	c.logger.Debug("Thumbnail generated", zap.String("media", media), zap.String("thumbnail", thumb))
	return nil
}

// videoFrame grabs a frame one second in, or the first frame of shorter clips
func (c *ThumbnailCache) videoFrame(ctx context.Context, media string) (image.Image, error) {
	c.once.Do(func() {
		c.ffmpegPath, c.ffmpegErr = exec.LookPath(c.ffmpeg)
	})
	if c.ffmpegErr != nil {
		return nil, ErrNoVideoThumbnailer
	}

	var lastErr error
	for _, offset := range []string{"1", "0"} {
		var out, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, c.ffmpegPath,
			"-v", "error", "-ss", offset, "-i", media,
			"-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-")
		cmd.Stdout = &out
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("ffmpeg failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
			continue
		}
		if out.Len() == 0 {
			lastErr = errors.New("ffmpeg produced no frame")
			continue
		}
		return imaging.Decode(&out)
	}
	return nil, lastErr
}

// Clear removes every cached thumbnail and returns how many were removed
func (c *ThumbnailCache) Clear() (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "thumb_*.png"))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed++
	}

	c.logger.Info("Thumbnail cache cleared", zap.Int("removed", removed))
	return removed, nil
}
