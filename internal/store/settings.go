package store

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

const (
	keyMediaPath = "media_path"
	keyKind      = "kind"
	keyOpacity   = "opacity"
	keyMuted     = "muted"
	keyLooping   = "looping"
	keyScaleMode = "scale_mode"
)

// Settings is the wallpaper configuration store.
// Reads are served from memory; every setter commits to disk before returning.
type Settings struct {
	logger *zap.Logger
	bucket *Bucket

	mu  sync.RWMutex
	cfg domain.Configuration
}

// NewSettings loads the wallpaper namespace, writing defaults on first start
func NewSettings(kv *KV, logger *zap.Logger) (*Settings, error) {
	s := &Settings{
		logger: logger,
		bucket: kv.Bucket(NamespaceWallpaper),
	}

	values, err := s.bucket.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load wallpaper settings: %w", err)
	}

	if len(values) == 0 {
		s.cfg = domain.DefaultConfiguration()
		if err := s.bucket.SetMany(encode(s.cfg)); err != nil {
			return nil, fmt.Errorf("failed to write default settings: %w", err)
		}
		logger.Info("Wallpaper settings initialized with defaults")
		return s, nil
	}

	s.cfg = decode(values, logger)
	if stored := values[keyKind]; s.cfg.HasMedia() && domain.Kind(stored) != s.cfg.Kind {
		logger.Warn("Stored kind disagrees with media path, re-derived",
			zap.String("path", s.cfg.MediaPath),
			zap.String("stored", stored),
			zap.String("derived", string(s.cfg.Kind)))
		if err := s.bucket.Set(keyKind, string(s.cfg.Kind)); err != nil {
			return nil, err
		}
	}

	logger.Info("Wallpaper settings loaded",
		zap.String("path", s.cfg.MediaPath),
		zap.String("kind", string(s.cfg.Kind)),
		zap.Int("opacity", s.cfg.Opacity),
		zap.Bool("muted", s.cfg.Muted),
		zap.Bool("looping", s.cfg.Looping),
		zap.String("scaleMode", string(s.cfg.ScaleMode)))
	return s, nil
}

// Get returns the last committed configuration
func (s *Settings) Get() domain.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetMedia stores path and kind in one transaction. An empty path clears the wallpaper.
func (s *Settings) SetMedia(path string, kind domain.Kind) error {
	if path == "" {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.bucket.Update(map[string]string{keyKind: string(domain.KindStatic)}, keyMediaPath); err != nil {
			return err
		}
		s.cfg.MediaPath = ""
		s.cfg.Kind = domain.KindStatic
		return nil
	}

	if derived := classifier.Classify(path); kind != derived {
		return fmt.Errorf("kind %s does not match %s (classified as %s)", kind, path, derived)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.SetMany(map[string]string{
		keyMediaPath: path,
		keyKind:      string(kind),
	}); err != nil {
		return err
	}
	s.cfg.MediaPath = path
	s.cfg.Kind = kind
	return nil
}

// SetOpacity clamps v to [0,100] and stores it
func (s *Settings) SetOpacity(v int) (int, error) {
	v = domain.ClampOpacity(v)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Set(keyOpacity, strconv.Itoa(v)); err != nil {
		return s.cfg.Opacity, err
	}
	s.cfg.Opacity = v
	return v, nil
}

func (s *Settings) SetMuted(muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Set(keyMuted, strconv.FormatBool(muted)); err != nil {
		return err
	}
	s.cfg.Muted = muted
	return nil
}

func (s *Settings) SetLooping(looping bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Set(keyLooping, strconv.FormatBool(looping)); err != nil {
		return err
	}
	s.cfg.Looping = looping
	return nil
}

func (s *Settings) SetScaleMode(mode domain.ScaleMode) error {
	if _, err := domain.ParseScaleMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bucket.Set(keyScaleMode, string(mode)); err != nil {
		return err
	}
	s.cfg.ScaleMode = mode
	return nil
}

// Reset restores the defaults. The namespace itself is kept.
func (s *Settings) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := domain.DefaultConfiguration()
	if err := s.bucket.Update(encode(defaults), keyMediaPath); err != nil {
		return err
	}
	s.cfg = defaults
	s.logger.Info("Wallpaper settings reset to defaults")
	return nil
}

func encode(cfg domain.Configuration) map[string]string {
	values := map[string]string{
		keyKind:      string(cfg.Kind),
		keyOpacity:   strconv.Itoa(cfg.Opacity),
		keyMuted:     strconv.FormatBool(cfg.Muted),
		keyLooping:   strconv.FormatBool(cfg.Looping),
		keyScaleMode: string(cfg.ScaleMode),
	}
	if cfg.MediaPath != "" {
		values[keyMediaPath] = cfg.MediaPath
	}
	return values
}

// decode builds a configuration from stored values, falling back to defaults per field
func decode(values map[string]string, logger *zap.Logger) domain.Configuration {
	cfg := domain.DefaultConfiguration()

	cfg.MediaPath = values[keyMediaPath]
	if cfg.MediaPath != "" {
		cfg.Kind = classifier.Classify(cfg.MediaPath)
	}

	if v, ok := values[keyOpacity]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Opacity = domain.ClampOpacity(n)
		} else {
			logger.Warn("Ignoring invalid stored opacity", zap.String("value", v))
		}
	}
	if v, ok := values[keyMuted]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Muted = b
		}
	}
	if v, ok := values[keyLooping]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Looping = b
		}
	}
	if v, ok := values[keyScaleMode]; ok {
		if mode, err := domain.ParseScaleMode(v); err == nil {
			cfg.ScaleMode = mode
		} else {
			logger.Warn("Ignoring invalid stored scale mode", zap.String("value", v))
		}
	}
	return cfg
}
