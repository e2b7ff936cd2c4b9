//go:build linux
// +build linux

package display

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// putImageHeader is the size of a PutImage request without its data
const putImageHeader = 24

// X11 is a desktop-type window kept below every other window
type X11 struct {
	logger *zap.Logger
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext
	size   domain.ScreenResolution
	atoms  map[string]xproto.Atom

	// largest PutImage payload in bytes
	maxPayload int

	mu       sync.Mutex
	attached domain.View
	surfaces map[xproto.Window]*x11SurfaceView
	closed   bool
}

// NewX11 connects to $DISPLAY and maps the overlay window
func NewX11(logger *zap.Logger) (domain.Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	d := &X11{
		logger:     logger,
		conn:       conn,
		screen:     screen,
		size:       domain.ScreenResolution{Width: int(screen.WidthInPixels), Height: int(screen.HeightInPixels)},
		atoms:      make(map[string]xproto.Atom),
		maxPayload: int(setup.MaximumRequestLength)*4 - putImageHeader,
		surfaces:   make(map[xproto.Window]*x11SurfaceView),
	}

	if err := d.createWindow(); err != nil {
		conn.Close()
		return nil, err
	}

	go d.eventLoop()

	logger.Info("X11 overlay window created",
		zap.Uint32("window", uint32(d.window)),
		zap.Int("width", d.size.Width),
		zap.Int("height", d.size.Height))

	return d, nil
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authoriz") || strings.Contains(msg, "authentication")
}

func (d *X11) createWindow() error {
	wid, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = xproto.CreateWindowChecked(d.conn, d.screen.RootDepth, wid, d.screen.Root,
		0, 0, d.screen.WidthInPixels, d.screen.HeightInPixels, 0,
		xproto.WindowClassInputOutput, d.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{d.screen.BlackPixel, xproto.EventMaskStructureNotify | xproto.EventMaskSubstructureNotify}).Check()
	if err != nil {
		return fmt.Errorf("failed to create overlay window: %w", err)
	}
	d.window = wid

	if err := d.setAtoms(wid, "_NET_WM_WINDOW_TYPE", "_NET_WM_WINDOW_TYPE_DESKTOP"); err != nil {
		return err
	}
	if err := d.setAtoms(wid, "_NET_WM_STATE",
		"_NET_WM_STATE_BELOW", "_NET_WM_STATE_STICKY",
		"_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER"); err != nil {
		return err
	}

	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate graphics context: %w", err)
	}
	if err := xproto.CreateGCChecked(d.conn, gc, xproto.Drawable(wid), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	d.gc = gc

	if err := xproto.MapWindowChecked(d.conn, wid).Check(); err != nil {
		return fmt.Errorf("failed to map overlay window: %w", err)
	}
	xproto.ConfigureWindow(d.conn, wid, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeBelow})
	return nil
}

func (d *X11) atom(name string) (xproto.Atom, error) {
	if a, ok := d.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(d.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern atom %s: %w", name, err)
	}
	d.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// setAtoms replaces property with a list of atoms
func (d *X11) setAtoms(wid xproto.Window, property string, values ...string) error {
	prop, err := d.atom(property)
	if err != nil {
		return err
	}

	data := make([]byte, 4*len(values))
	for i, name := range values {
		a, err := d.atom(name)
		if err != nil {
			return err
		}
		xgb.Put32(data[i*4:], uint32(a))
	}

	return xproto.ChangePropertyChecked(d.conn, xproto.PropModeReplace, wid, prop,
		xproto.AtomAtom, 32, uint32(len(values)), data).Check()
}

// setOpacity asks the compositor to blend the whole overlay window
func (d *X11) setOpacity(percent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prop, err := d.atom("_NET_WM_WINDOW_OPACITY")
	if err != nil {
		return err
	}

	value := uint32(uint64(domain.ClampOpacity(percent)) * 0xffffffff / domain.MaxOpacity)
	data := make([]byte, 4)
	xgb.Put32(data, value)

	return xproto.ChangePropertyChecked(d.conn, xproto.PropModeReplace, d.window, prop,
		xproto.AtomCardinal, 32, 1, data).Check()
}

func (d *X11) Size() domain.ScreenResolution {
	return d.size
}

// newChild creates an unmapped full-size child of the overlay window
func (d *X11) newChild() (xproto.Window, error) {
	wid, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = xproto.CreateWindowChecked(d.conn, d.screen.RootDepth, wid, d.window,
		0, 0, uint16(d.size.Width), uint16(d.size.Height), 0,
		xproto.WindowClassInputOutput, d.screen.RootVisual,
		xproto.CwBackPixel, []uint32{d.screen.BlackPixel}).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create view window: %w", err)
	}
	return wid, nil
}

func (d *X11) NewImageView(frames []domain.Frame, mode domain.ScaleMode) (domain.View, error) {
	fs, err := newFrameSet(frames, d.size, mode)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}

	wid, err := d.newChild()
	if err != nil {
		return nil, err
	}

	pid, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		xproto.DestroyWindow(d.conn, wid)
		return nil, fmt.Errorf("failed to allocate pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(d.conn, d.screen.RootDepth, pid, xproto.Drawable(wid),
		uint16(d.size.Width), uint16(d.size.Height)).Check()
	if err != nil {
		xproto.DestroyWindow(d.conn, wid)
		return nil, fmt.Errorf("failed to create pixmap: %w", err)
	}

	v := &x11ImageView{d: d, window: wid, pixmap: pid, frames: fs}
	if err := v.draw(0); err != nil {
		v.Close()
		return nil, err
	}
	xproto.ChangeWindowAttributes(d.conn, wid, xproto.CwBackPixmap, []uint32{uint32(pid)})
	return v, nil
}

func (d *X11) NewSurfaceView(listener domain.SurfaceListener) (domain.View, error) {
	if listener == nil {
		return nil, errors.New("surface view needs a listener")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}

	wid, err := d.newChild()
	if err != nil {
		return nil, err
	}

	v := &x11SurfaceView{d: d, window: wid, listener: listener}
	d.surfaces[wid] = v
	return v, nil
}

func (d *X11) Attach(v domain.View) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errClosed
	}
	if d.attached != nil {
		return errors.New("another view is already attached")
	}

	switch view := v.(type) {
	case *x11ImageView:
		if err := xproto.MapWindowChecked(d.conn, view.window).Check(); err != nil {
			return fmt.Errorf("failed to map image view: %w", err)
		}
		view.start()
	case *x11SurfaceView:
		// The surface is reported from the event loop once MapNotify arrives
		if err := xproto.MapWindowChecked(d.conn, view.window).Check(); err != nil {
			return fmt.Errorf("failed to map surface view: %w", err)
		}
	default:
		return fmt.Errorf("view %T does not belong to this display", v)
	}

	d.attached = v
	return nil
}

func (d *X11) Detach(v domain.View) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.attached != v {
		return errors.New("view is not attached")
	}
	return d.detachLocked()
}

func (d *X11) detachLocked() error {
	var wid xproto.Window
	switch view := d.attached.(type) {
	case *x11ImageView:
		view.stop()
		wid = view.window
	case *x11SurfaceView:
		wid = view.window
	}
	d.attached = nil
	return xproto.UnmapWindowChecked(d.conn, wid).Check()
}

// eventLoop turns structure notifications of surface windows into listener calls
func (d *X11) eventLoop() {
	for {
		ev, xerr := d.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			d.logger.Debug("X11 event loop stopped")
			return
		}
		if xerr != nil {
			d.logger.Warn("X11 error", zap.String("error", xerr.Error()))
			continue
		}

		switch e := ev.(type) {
		case xproto.MapNotifyEvent:
			d.surfaceEvent(e.Window, true)
		case xproto.UnmapNotifyEvent:
			d.surfaceEvent(e.Window, false)
		case xproto.DestroyNotifyEvent:
			d.surfaceEvent(e.Window, false)
		}
	}
}

func (d *X11) surfaceEvent(wid xproto.Window, mapped bool) {
	d.mu.Lock()
	view, ok := d.surfaces[wid]
	d.mu.Unlock()
	if !ok {
		return
	}

	view.mu.Lock()
	changed := view.alive != mapped
	view.alive = mapped
	view.mu.Unlock()
	if !changed {
		return
	}

	d.logger.Debug("Surface changed", zap.Uint32("window", uint32(wid)), zap.Bool("mapped", mapped))
	if mapped {
		view.listener.SurfaceCreated(view)
	} else {
		view.listener.SurfaceDestroyed(view)
	}
}

func (d *X11) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.attached != nil {
		err = multierr.Append(err, d.detachLocked())
	}
	xproto.FreeGC(d.conn, d.gc)
	err = multierr.Append(err, xproto.DestroyWindowChecked(d.conn, d.window).Check())
	d.conn.Close()

	d.logger.Info("X11 overlay window closed")
	return err
}

// putImage uploads img into drawable in bands that fit a single request
func (d *X11) putImage(drawable xproto.Drawable, img image.Image) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w * 4

	rows := d.maxPayload / stride
	if rows < 1 {
		return fmt.Errorf("image row of %d bytes exceeds the request size", stride)
	}

	for y := 0; y < h; y += rows {
		n := min(rows, h-y)
		data := bgrx(img, b.Min.Y+y, n)
		err := xproto.PutImageChecked(d.conn, xproto.ImageFormatZPixmap, drawable, d.gc,
			uint16(w), uint16(n), 0, int16(y), 0, d.screen.RootDepth, data).Check()
		if err != nil {
			return fmt.Errorf("failed to upload image: %w", err)
		}
	}
	return nil
}

// bgrx converts n rows starting at y0 to the 32-bit ZPixmap layout, blended over black
func bgrx(img image.Image, y0, n int) []byte {
	b := img.Bounds()
	w := b.Dx()
	out := make([]byte, w*n*4)

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < n; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y0+y):]
			for x := 0; x < w; x++ {
				s := row[x*4 : x*4+4]
				o := out[(y*w+x)*4:]
				a := uint32(s[3])
				o[0] = byte(uint32(s[2]) * a / 255)
				o[1] = byte(uint32(s[1]) * a / 255)
				o[2] = byte(uint32(s[0]) * a / 255)
			}
		}
		return out
	}

	for y := 0; y < n; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, y0+y).RGBA()
			o := out[(y*w+x)*4:]
			o[0] = byte(bl >> 8)
			o[1] = byte(g >> 8)
			o[2] = byte(r >> 8)
		}
	}
	return out
}

// x11ImageView is a child window whose background pixmap holds the current frame
type x11ImageView struct {
	d      *X11
	window xproto.Window
	pixmap xproto.Pixmap

	mu      sync.Mutex
	frames  *frameSet
	current int
	anim    *animator
}

func (v *x11ImageView) draw(i int) error {
	img, err := v.frames.frame(i)
	if err != nil {
		return err
	}
	if err := v.d.putImage(xproto.Drawable(v.pixmap), img); err != nil {
		return err
	}
	v.current = i
	return nil
}

// show draws frame i and repaints the window from its background
func (v *x11ImageView) show(i int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.draw(i); err != nil {
		return err
	}
	xproto.ClearArea(v.d.conn, false, v.window, 0, 0, 0, 0)
	return nil
}

func (v *x11ImageView) start() {
	if !v.frames.animated() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.anim = startAnimator(v.d.logger, v.frames.len(), v.frames.delay, v.show)
}

func (v *x11ImageView) stop() {
	v.mu.Lock()
	a := v.anim
	v.anim = nil
	v.mu.Unlock()

	if a != nil {
		a.Stop()
	}
}

func (v *x11ImageView) SetOpacity(percent int) error {
	return v.d.setOpacity(percent)
}

func (v *x11ImageView) SetScaleMode(mode domain.ScaleMode) error {
	v.mu.Lock()
	v.frames.setMode(mode)
	i := v.current
	v.mu.Unlock()
	return v.show(i)
}

func (v *x11ImageView) Close() error {
	v.stop()
	xproto.FreePixmap(v.d.conn, v.pixmap)
	return xproto.DestroyWindowChecked(v.d.conn, v.window).Check()
}

// x11SurfaceView is a child window handed to the decoder by id
type x11SurfaceView struct {
	d        *X11
	window   xproto.Window
	listener domain.SurfaceListener

	mu    sync.Mutex
	alive bool
}

// Handle implements domain.Surface
func (v *x11SurfaceView) Handle() uint64 {
	return uint64(v.window)
}

func (v *x11SurfaceView) SetOpacity(percent int) error {
	return v.d.setOpacity(percent)
}

// SetScaleMode is a no-op: the decoder scales video into the window
func (v *x11SurfaceView) SetScaleMode(domain.ScaleMode) error {
	return nil
}

func (v *x11SurfaceView) Close() error {
	v.d.mu.Lock()
	delete(v.d.surfaces, v.window)
	v.d.mu.Unlock()
	return xproto.DestroyWindowChecked(v.d.conn, v.window).Check()
}
