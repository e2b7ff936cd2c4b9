package domain

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Kind classifies wallpaper media by how it has to be rendered
type Kind string

const (
	// KindStatic is a still image shown in an image view
	KindStatic Kind = "static"
	// KindAnimatedImage is a multi-frame image (GIF) shown in an image view
	KindAnimatedImage Kind = "animated"
	// KindVideo is decoded by a media player into a surface view
	KindVideo Kind = "video"
)

// ParseKind converts a persisted kind back into a Kind.
// Unknown values fall back to KindStatic.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(s)) {
	case KindAnimatedImage:
		return KindAnimatedImage
	case KindVideo:
		return KindVideo
	default:
		return KindStatic
	}
}

// ScaleMode controls how media is fitted to the overlay window
type ScaleMode string

const (
	// ScaleCenter fills the screen keeping aspect ratio, cropping the overflow
	ScaleCenter ScaleMode = "center"
	// ScaleStretch resizes to the exact screen size
	ScaleStretch ScaleMode = "stretch"
	// ScaleTile repeats the media at its natural size
	ScaleTile ScaleMode = "tile"
)

// ParseScaleMode validates a user supplied scale mode
func ParseScaleMode(s string) (ScaleMode, error) {
	switch ScaleMode(strings.ToLower(strings.TrimSpace(s))) {
	case ScaleCenter:
		return ScaleCenter, nil
	case ScaleStretch:
		return ScaleStretch, nil
	case ScaleTile:
		return ScaleTile, nil
	default:
		return "", fmt.Errorf("unknown scale mode %q (want center, stretch or tile)", s)
	}
}

const (
	// MinOpacity is the fully transparent wallpaper
	MinOpacity = 0
	// MaxOpacity is the fully opaque wallpaper
	MaxOpacity = 100
)

// ClampOpacity limits an opacity percentage to [MinOpacity, MaxOpacity]
func ClampOpacity(v int) int {
	if v < MinOpacity {
		return MinOpacity
	}
	if v > MaxOpacity {
		return MaxOpacity
	}
	return v
}

// Configuration is the persisted wallpaper state
type Configuration struct {
	// MediaPath is the absolute path of the current media; empty means no wallpaper
	MediaPath string
	// Kind is derived from MediaPath and cached alongside it
	Kind Kind
	// Opacity in percent, [0,100]
	Opacity int
	// Muted silences video wallpapers
	Muted bool
	// Looping repeats video wallpapers at end of stream
	Looping bool
	// ScaleMode fits the media to the screen
	ScaleMode ScaleMode
}

// HasMedia reports whether a wallpaper is configured
func (c Configuration) HasMedia() bool {
	return c.MediaPath != ""
}

// DefaultConfiguration is the state written on first start and restored by a reset
func DefaultConfiguration() Configuration {
	return Configuration{
		Kind:      KindStatic,
		Opacity:   MaxOpacity,
		Muted:     true,
		Looping:   true,
		ScaleMode: ScaleCenter,
	}
}

// WallpaperItem describes one media file found while scanning a library root
type WallpaperItem struct {
	Path        string
	DisplayName string
	SizeBytes   int64
	Kind        Kind
}

// Frame is one decoded image of a static or animated wallpaper
type Frame struct {
	Image image.Image
	// Delay before the next frame; zero for static images
	Delay time.Duration
}

// ScreenResolution holds the display dimensions
type ScreenResolution struct {
	Width  int
	Height int
}

// NotificationType identifies an outbound notification
type NotificationType string

const (
	// NotificationMediaUnavailable is fired when the wallpaper media cannot be shown
	NotificationMediaUnavailable NotificationType = "MediaUnavailable"
	// NotificationScanCompleted is fired when a bulk scan finishes
	NotificationScanCompleted NotificationType = "ScanCompleted"
)

// Notification is delivered to external collaborators
type Notification struct {
	Type NotificationType
	// Path of the unavailable media (MediaUnavailable)
	Path string
	// Err is the cause (MediaUnavailable)
	Err error
	// Count of wallpapers found (ScanCompleted)
	Count int
}

// MediaUnavailable builds a MediaUnavailable notification
func MediaUnavailable(path string, err error) Notification {
	return Notification{Type: NotificationMediaUnavailable, Path: path, Err: err}
}

// ScanCompleted builds a ScanCompleted notification
func ScanCompleted(count int) Notification {
	return Notification{Type: NotificationScanCompleted, Count: count}
}

// SessionState is the lifecycle state of a decoder session
type SessionState string

const (
	SessionUnbound   SessionState = "Unbound"
	SessionBound     SessionState = "Bound"
	SessionPreparing SessionState = "Preparing"
	SessionReady     SessionState = "Ready"
	SessionPlaying   SessionState = "Playing"
	SessionStopped   SessionState = "Stopped"
	SessionReleased  SessionState = "Released"
)

// Phase is the overlay manager's position in a wallpaper change
type Phase string

const (
	PhaseIdle        Phase = "Idle"
	PhaseTearingDown Phase = "TearingDown"
	PhaseClassifying Phase = "Classifying"
	PhaseBuilding    Phase = "Building"
	PhaseAttaching   Phase = "Attaching"
	PhaseAttached    Phase = "Attached"
)

// Status is a point-in-time snapshot of the wallpaper slot
type Status struct {
	Phase Phase
	Path  string
	Kind  Kind
	// Session is empty when no decoder session exists
	Session SessionState
}
