package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/overlay"
	"go.uber.org/zap"
)

// ErrNotRunning is returned by facade calls made before Start or after Stop
var ErrNotRunning = errors.New("engine is not running")

var _ domain.Controller = (*Engine)(nil)

// Scanner lists the wallpapers found in library roots
type Scanner interface {
	Scan(ctx context.Context, dirs ...string) ([]domain.WallpaperItem, error)
}

// command is a unit of work run on the engine goroutine
type command struct {
	fn     func() error
	result chan error
}

// Engine is the control facade. It owns the overlay manager on a single goroutine:
// facade calls persist the change, then run on that goroutine, which also receives
// surface and decoder notifications.
type Engine struct {
	logger   *zap.Logger
	cfg      domain.Config
	settings domain.SettingsStore
	scanner  Scanner
	manager  *overlay.Manager

	cmds   chan command
	events chan overlay.Event

	mu      sync.Mutex
	running bool
	stopped bool
	stop    context.CancelFunc
	quit    <-chan struct{}
	done    chan struct{}
}

// NewEngine creates a new engine. The engine takes ownership of display.
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	display domain.Display,
	decoders domain.DecoderFactory,
	settings domain.SettingsStore,
	scanner Scanner,
	notifier domain.Notifier,
) *Engine {
	e := &Engine{
		logger:   logger,
		cfg:      cfg,
		settings: settings,
		scanner:  scanner,
		cmds:     make(chan command),
		events:   make(chan overlay.Event, 64),
	}
	e.manager = overlay.NewManager(logger.Named("overlay"), display, decoders, settings, notifier, e.post)
	return e
}

// Start launches the engine goroutine and restores the persisted wallpaper.
// A wallpaper that cannot be restored is reported, not returned.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	if e.stopped {
		e.mu.Unlock()
		return errors.New("engine cannot be restarted")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	e.quit = loopCtx.Done()
	e.done = make(chan struct{})
	e.running = true
	e.mu.Unlock()

	e.logger.Info("Engine starting...")
	go e.runLoop(loopCtx, e.done)

	cfg := e.settings.Get()
	if !cfg.HasMedia() {
		e.logger.Info("No wallpaper configured")
		return nil
	}

	if err := e.do(ctx, func() error { return e.manager.SetWallpaper(e.settings.Get().MediaPath) }); err != nil {
		e.logger.Warn("Could not restore wallpaper", zap.String("path", cfg.MediaPath), zap.Error(err))
		return nil
	}
	e.logger.Info("Wallpaper restored", zap.String("path", cfg.MediaPath))
	return nil
}

// runLoop serializes commands and events. The manager is closed when it exits.
func (e *Engine) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := e.manager.Close(); err != nil {
			e.logger.Warn("Failed to close overlay", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case cmd := <-e.cmds:
			cmd.result <- cmd.fn()

		case ev := <-e.events:
			e.manager.HandleEvent(ev)
		}
	}
}

// post queues a surface or decoder notification for the loop
func (e *Engine) post(ev overlay.Event) {
	e.mu.Lock()
	quit := e.quit
	e.mu.Unlock()

	select {
	case e.events <- ev:
	case <-quit:
	}
}

// do runs fn on the engine goroutine and waits for its result
func (e *Engine) do(ctx context.Context, fn func() error) error {
	e.mu.Lock()
	running, quit := e.running, e.quit
	e.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	cmd := command{fn: fn, result: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-quit:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetWallpaper persists path and returns once its view is attached
func (e *Engine) SetWallpaper(ctx context.Context, path string) error {
	if path == "" {
		return e.ClearWallpaper(ctx)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid wallpaper path: %w", err)
	}

	if err := e.settings.SetMedia(abs, classifier.Classify(abs)); err != nil {
		return fmt.Errorf("failed to save wallpaper: %w", err)
	}
	e.logger.Info("Wallpaper selected", zap.String("path", abs))

	return e.do(ctx, func() error { return e.manager.SetWallpaper(e.settings.Get().MediaPath) })
}

// ClearWallpaper removes the wallpaper
func (e *Engine) ClearWallpaper(ctx context.Context) error {
	if err := e.settings.SetMedia("", ""); err != nil {
		return fmt.Errorf("failed to clear wallpaper: %w", err)
	}
	e.logger.Info("Wallpaper cleared")

	return e.do(ctx, func() error { return e.manager.SetWallpaper(e.settings.Get().MediaPath) })
}

// SetTransparency stores a clamped opacity and applies it to the attached view
func (e *Engine) SetTransparency(ctx context.Context, percent int) error {
	stored, err := e.settings.SetOpacity(percent)
	if err != nil {
		return fmt.Errorf("failed to save opacity: %w", err)
	}
	e.logger.Debug("Opacity changed", zap.Int("requested", percent), zap.Int("stored", stored))

	return e.do(ctx, func() error { return e.manager.ApplyOpacity(e.settings.Get().Opacity) })
}

// SetMuted stores the muted flag and applies it to a live video session
func (e *Engine) SetMuted(ctx context.Context, muted bool) error {
	if err := e.settings.SetMuted(muted); err != nil {
		return fmt.Errorf("failed to save muted flag: %w", err)
	}
	return e.do(ctx, func() error { return e.manager.SetMuted(e.settings.Get().Muted) })
}

// SetLooping stores the looping flag; turning it on replays a video stopped at end of stream
func (e *Engine) SetLooping(ctx context.Context, looping bool) error {
	if err := e.settings.SetLooping(looping); err != nil {
		return fmt.Errorf("failed to save looping flag: %w", err)
	}
	return e.do(ctx, func() error { return e.manager.SetLooping(e.settings.Get().Looping) })
}

// SetScaleMode validates and stores mode, then refits the attached view and the decoder
func (e *Engine) SetScaleMode(ctx context.Context, mode domain.ScaleMode) error {
	mode, err := domain.ParseScaleMode(string(mode))
	if err != nil {
		return err
	}
	if err := e.settings.SetScaleMode(mode); err != nil {
		return fmt.Errorf("failed to save scale mode: %w", err)
	}
	return e.do(ctx, func() error { return e.manager.ApplyScaleMode(e.settings.Get().ScaleMode) })
}

// Reset restores the default configuration, which has no wallpaper
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.settings.Reset(); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	return e.do(ctx, func() error { return e.manager.SetWallpaper(e.settings.Get().MediaPath) })
}

// Configuration returns the last committed configuration
func (e *Engine) Configuration() domain.Configuration {
	return e.settings.Get()
}

// Status returns a snapshot of the wallpaper slot
func (e *Engine) Status(ctx context.Context) (domain.Status, error) {
	var st domain.Status
	err := e.do(ctx, func() error {
		st = e.manager.Status()
		return nil
	})
	return st, err
}

// Scan lists the wallpapers in dirs, or in the configured library when dirs is empty
func (e *Engine) Scan(ctx context.Context, dirs []string) (int, error) {
	if len(dirs) == 0 {
		dirs = e.cfg.GetLibraryDirs()
	}
	items, err := e.scanner.Scan(ctx, dirs...)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Stop ends the engine goroutine, which releases the decoder and closes the overlay
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.stopped = true
	stop, done := e.stop, e.done
	e.mu.Unlock()

	e.logger.Info("Engine stopping...")
	stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
