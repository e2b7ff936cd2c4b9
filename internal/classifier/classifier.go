// Package classifier maps media file paths to wallpaper kinds.
package classifier

import (
	"path/filepath"
	"strings"

	"github.com/genricoloni/backdrop/internal/domain"
)

var kinds = map[string]domain.Kind{
	".jpg":  domain.KindStatic,
	".jpeg": domain.KindStatic,
	".png":  domain.KindStatic,
	".bmp":  domain.KindStatic,
	".webp": domain.KindStatic,
	".gif":  domain.KindAnimatedImage,
	".mp4":  domain.KindVideo,
	".webm": domain.KindVideo,
	".avi":  domain.KindVideo,
	".mkv":  domain.KindVideo,
	".mov":  domain.KindVideo,
	".m4v":  domain.KindVideo,
}

// Classify returns the wallpaper kind for path based on its extension.
// Unknown extensions are treated as static images.
func Classify(path string) domain.Kind {
	if k, ok := kinds[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return domain.KindStatic
}

// IsSupported reports whether path has one of the known media extensions
func IsSupported(path string) bool {
	_, ok := kinds[strings.ToLower(filepath.Ext(path))]
	return ok
}
