package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultDataDir  = "~/.local/share/backdrop"
	defaultLibrary  = "~/Pictures/Wallpapers"
	defaultDisplay  = "x11"
	defaultPlayer   = "mpv"
	cacheDirName    = "backdrop"
	databaseName    = "backdrop.db"
	thumbnailSubdir = "thumbnails"
)

// AppConfig holds application configuration
type AppConfig struct {
	logger      *zap.Logger
	dataDir     string
	cacheDir    string
	libraryDirs []string
	display     string
	player      string
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger) *AppConfig {
	// Read from environment variables or use defaults
	dataDir := expandPath(envOr("BACKDROP_DATA_DIR", defaultDataDir))

	cacheDir := os.Getenv("BACKDROP_CACHE_DIR")
	if cacheDir == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(userCache, cacheDirName)
		} else {
			cacheDir = filepath.Join(dataDir, "cache")
		}
	}
	cacheDir = expandPath(cacheDir)

	var libraryDirs []string
	for _, dir := range filepath.SplitList(envOr("BACKDROP_LIBRARY", defaultLibrary)) {
		if dir = strings.TrimSpace(dir); dir != "" {
			libraryDirs = append(libraryDirs, expandPath(dir))
		}
	}

	display := strings.ToLower(envOr("BACKDROP_DISPLAY", defaultDisplay))
	player := envOr("BACKDROP_PLAYER", defaultPlayer)

	logger.Info("Configuration loaded",
		zap.String("dataDir", dataDir),
		zap.String("cacheDir", cacheDir),
		zap.Strings("libraryDirs", libraryDirs),
		zap.String("display", display),
		zap.String("player", player))

	return &AppConfig{
		logger:      logger,
		dataDir:     dataDir,
		cacheDir:    cacheDir,
		libraryDirs: libraryDirs,
		display:     display,
		player:      player,
	}
}

// GetDataDir returns the directory holding the settings database
func (c *AppConfig) GetDataDir() string {
	return c.dataDir
}

// GetCacheDir returns the directory for derived data such as thumbnails
func (c *AppConfig) GetCacheDir() string {
	return c.cacheDir
}

// GetLibraryDirs returns the media library roots
func (c *AppConfig) GetLibraryDirs() []string {
	return append([]string(nil), c.libraryDirs...)
}

// GetDisplayBackend returns the overlay backend name
func (c *AppConfig) GetDisplayBackend() string {
	return c.display
}

// GetPlayerBinary returns the video player executable
func (c *AppConfig) GetPlayerBinary() string {
	return c.player
}

// DatabasePath returns the settings database location inside dataDir
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, databaseName)
}

// ThumbnailDir returns the thumbnail cache location inside cacheDir
func ThumbnailDir(cacheDir string) string {
	return filepath.Join(cacheDir, thumbnailSubdir)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}
