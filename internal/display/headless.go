package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

var errClosed = errors.New("display is closed")

// Headless is an in-memory display. Surface views report their surface asynchronously
// when attached, like a real windowing system.
type Headless struct {
	logger *zap.Logger
	size   domain.ScreenResolution
	events *dispatcher

	mu         sync.Mutex
	attached   domain.View
	nextHandle uint64
	closed     bool
}

// NewHeadless creates a headless display of the given size
func NewHeadless(logger *zap.Logger, size domain.ScreenResolution) *Headless {
	logger.Info("Using headless display",
		zap.Int("width", size.Width),
		zap.Int("height", size.Height))

	return &Headless{
		logger: logger,
		size:   size,
		events: newDispatcher(),
	}
}

func (h *Headless) Size() domain.ScreenResolution {
	return h.size
}

func (h *Headless) NewImageView(frames []domain.Frame, mode domain.ScaleMode) (domain.View, error) {
	fs, err := newFrameSet(frames, h.size, mode)
	if err != nil {
		return nil, err
	}
	// Fit the first frame now so that unusable media fails while building
	if _, err := fs.frame(0); err != nil {
		return nil, err
	}
	return &HeadlessImageView{logger: h.logger, frames: fs, opacity: domain.MaxOpacity}, nil
}

func (h *Headless) NewSurfaceView(listener domain.SurfaceListener) (domain.View, error) {
	if listener == nil {
		return nil, errors.New("surface view needs a listener")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errClosed
	}

	h.nextHandle++
	return &HeadlessSurfaceView{
		handle:   h.nextHandle,
		listener: listener,
		opacity:  domain.MaxOpacity,
	}, nil
}

func (h *Headless) Attach(v domain.View) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errClosed
	}
	if h.attached != nil {
		return errors.New("another view is already attached")
	}

	switch view := v.(type) {
	case *HeadlessImageView:
		view.start()
	case *HeadlessSurfaceView:
		view.mu.Lock()
		view.alive = true
		view.mu.Unlock()
		h.events.post(func() { view.listener.SurfaceCreated(view) })
	default:
		return fmt.Errorf("view %T does not belong to this display", v)
	}

	h.attached = v
	return nil
}

func (h *Headless) Detach(v domain.View) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attached != v {
		return errors.New("view is not attached")
	}
	h.detachLocked()
	return nil
}

func (h *Headless) detachLocked() {
	switch view := h.attached.(type) {
	case *HeadlessImageView:
		view.stop()
	case *HeadlessSurfaceView:
		h.revokeLocked(view)
	}
	h.attached = nil
}

func (h *Headless) revokeLocked(view *HeadlessSurfaceView) bool {
	view.mu.Lock()
	wasAlive := view.alive
	view.alive = false
	view.mu.Unlock()

	if wasAlive {
		h.events.post(func() { view.listener.SurfaceDestroyed(view) })
	}
	return wasAlive
}

// DestroySurface revokes the attached surface as the windowing system would.
// The view stays attached. It reports whether a live surface was revoked.
func (h *Headless) DestroySurface() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	view, ok := h.attached.(*HeadlessSurfaceView)
	if !ok {
		return false
	}
	return h.revokeLocked(view)
}

// Attached returns the attached view, or nil
func (h *Headless) Attached() domain.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	if h.attached != nil {
		h.detachLocked()
	}
	h.closed = true
	h.events.close()
	h.logger.Debug("Headless display closed")
	return nil
}

// HeadlessImageView shows a static or animated image in memory
type HeadlessImageView struct {
	logger *zap.Logger

	mu      sync.Mutex
	frames  *frameSet
	current int
	opacity int
	closed  bool
	anim    *animator
}

func (v *HeadlessImageView) start() {
	if !v.frames.animated() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.anim = startAnimator(v.logger, v.frames.len(), v.frames.delay, v.show)
}

func (v *HeadlessImageView) stop() {
	v.mu.Lock()
	a := v.anim
	v.anim = nil
	v.mu.Unlock()

	if a != nil {
		a.Stop()
	}
}

func (v *HeadlessImageView) show(i int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.frames.frame(i); err != nil {
		return err
	}
	v.current = i
	return nil
}

func (v *HeadlessImageView) SetOpacity(percent int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opacity = domain.ClampOpacity(percent)
	return nil
}

func (v *HeadlessImageView) SetScaleMode(mode domain.ScaleMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frames.setMode(mode)
	_, err := v.frames.frame(v.current)
	return err
}

func (v *HeadlessImageView) Close() error {
	v.stop()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// Opacity returns the applied opacity percentage
func (v *HeadlessImageView) Opacity() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opacity
}

// ScaleMode returns the applied scale mode
func (v *HeadlessImageView) ScaleMode() domain.ScaleMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames.mode
}

// FrameIndex returns the index of the frame on screen
func (v *HeadlessImageView) FrameIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Image returns the fitted frame on screen
func (v *HeadlessImageView) Image() image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	img, _ := v.frames.frame(v.current)
	return img
}

// Closed reports whether Close was called
func (v *HeadlessImageView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// HeadlessSurfaceView hands out a surface for a decoder
type HeadlessSurfaceView struct {
	handle   uint64
	listener domain.SurfaceListener

	mu      sync.Mutex
	alive   bool
	opacity int
	mode    domain.ScaleMode
	closed  bool
}

// Handle implements domain.Surface
func (v *HeadlessSurfaceView) Handle() uint64 {
	return v.handle
}

func (v *HeadlessSurfaceView) SetOpacity(percent int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opacity = domain.ClampOpacity(percent)
	return nil
}

// SetScaleMode is recorded only; video scaling is done by the decoder
func (v *HeadlessSurfaceView) SetScaleMode(mode domain.ScaleMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	return nil
}

func (v *HeadlessSurfaceView) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

// Opacity returns the applied opacity percentage
func (v *HeadlessSurfaceView) Opacity() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opacity
}

// Alive reports whether the surface currently exists
func (v *HeadlessSurfaceView) Alive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.alive
}

// Closed reports whether Close was called
func (v *HeadlessSurfaceView) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
