package domain

import "context"

// Config defines the interface for application configuration
type Config interface {
	// GetDataDir returns the directory holding the settings database
	GetDataDir() string

	// GetCacheDir returns the directory for derived data such as thumbnails
	GetCacheDir() string

	// GetLibraryDirs returns the media library roots to scan and watch
	GetLibraryDirs() []string

	// GetDisplayBackend returns the overlay backend name ("x11" or "headless")
	GetDisplayBackend() string

	// GetPlayerBinary returns the video player executable
	GetPlayerBinary() string
}

// SettingsReader gives read access to the committed wallpaper configuration
type SettingsReader interface {
	// Get returns the last committed configuration
	Get() Configuration
}

// SettingsStore persists the wallpaper configuration.
// Every setter persists synchronously before returning.
type SettingsStore interface {
	SettingsReader

	// SetMedia stores the media path and its kind together; an empty path clears both
	SetMedia(path string, kind Kind) error

	// SetOpacity clamps v to [0,100], stores it and returns the stored value
	SetOpacity(v int) (int, error)

	SetMuted(muted bool) error
	SetLooping(looping bool) error
	SetScaleMode(mode ScaleMode) error

	// Reset restores DefaultConfiguration
	Reset() error
}

// Surface is a native drawable handed out by the windowing layer
type Surface interface {
	// Handle is the platform window/surface id passed to the decoder
	Handle() uint64
}

// SurfaceListener receives surface lifecycle notifications.
// Calls arrive on the windowing layer's goroutine.
type SurfaceListener interface {
	SurfaceCreated(s Surface)
	SurfaceDestroyed(s Surface)
}

// View is one concrete piece of content for the overlay window
type View interface {
	// SetOpacity applies an opacity percentage in place
	SetOpacity(percent int) error

	// SetScaleMode refits the content in place
	SetScaleMode(mode ScaleMode) error

	// Close frees the view's resources; the view must be detached first
	Close() error
}

// Display owns the single overlay window behind the desktop icons
type Display interface {
	// Size returns the overlay window dimensions
	Size() ScreenResolution

	// NewImageView builds a view for a static (one frame) or animated image
	NewImageView(frames []Frame, mode ScaleMode) (View, error)

	// NewSurfaceView builds a view whose backing surface is reported to listener
	// asynchronously once it exists
	NewSurfaceView(listener SurfaceListener) (View, error)

	// Attach makes v the content of the overlay window
	Attach(v View) error

	// Detach removes v from the overlay window
	Detach(v View) error

	// Close destroys the overlay window
	Close() error
}

// DecoderListener receives decoder notifications on a decoder-owned goroutine
type DecoderListener interface {
	// Prepared is called exactly once per Prepare, with a nil error on success
	Prepared(err error)

	// Completed is called when playback reaches end of stream
	Completed()

	// Failed is called at most once when playback breaks after a successful Prepared
	Failed(err error)
}

// Decoder plays one media file into one surface. All calls are non-blocking.
//
//go:generate mockgen -destination=mocks/decoder_mock.go -package=mocks github.com/genricoloni/backdrop/internal/domain Decoder,DecoderFactory,Notifier
type Decoder interface {
	// Prepare starts asynchronous preparation of path
	Prepare(path string) error
	Start() error
	Stop() error

	// Replay seeks to the beginning and starts playback
	Replay() error

	// SetVolume sets the output volume in [0,1]
	SetVolume(v float64) error
	SetLooping(looping bool) error
	SetScaleMode(mode ScaleMode) error

	// Release frees every decoder resource; later notifications are suppressed
	Release() error
}

// DecoderFactory creates a decoder bound to a surface
type DecoderFactory interface {
	NewDecoder(surface Surface, listener DecoderListener) (Decoder, error)
}

// Notifier delivers outbound notifications to external collaborators
type Notifier interface {
	Notify(n Notification)
}

// Controller is the control facade bound by external UI collaborators
type Controller interface {
	SetWallpaper(ctx context.Context, path string) error
	ClearWallpaper(ctx context.Context) error
	SetTransparency(ctx context.Context, percent int) error
	SetMuted(ctx context.Context, muted bool) error
	SetLooping(ctx context.Context, looping bool) error
	SetScaleMode(ctx context.Context, mode ScaleMode) error
	Reset(ctx context.Context) error
	Configuration() Configuration
	Status(ctx context.Context) (Status, error)

	// Scan bulk-scans dirs and returns the number of wallpapers found
	Scan(ctx context.Context, dirs []string) (int, error)
}
