package overlay

import (
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/backdrop/internal/display"
	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// fakeDecoder records the calls it receives
type fakeDecoder struct {
	mu       sync.Mutex
	listener domain.DecoderListener
	surface  domain.Surface
	path     string
	calls    []string
	volume   float64
	looping  bool
	released bool
}

func (d *fakeDecoder) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	return nil
}

func (d *fakeDecoder) Prepare(path string) error {
	d.mu.Lock()
	d.path = path
	d.mu.Unlock()
	return d.record("Prepare")
}
func (d *fakeDecoder) Start() error  { return d.record("Start") }
func (d *fakeDecoder) Stop() error   { return d.record("Stop") }
func (d *fakeDecoder) Replay() error { return d.record("Replay") }
func (d *fakeDecoder) SetVolume(v float64) error {
	d.mu.Lock()
	d.volume = v
	d.mu.Unlock()
	return d.record("SetVolume")
}
func (d *fakeDecoder) SetLooping(l bool) error {
	d.mu.Lock()
	d.looping = l
	d.mu.Unlock()
	return d.record("SetLooping")
}
func (d *fakeDecoder) SetScaleMode(domain.ScaleMode) error { return d.record("SetScaleMode") }
func (d *fakeDecoder) Release() error {
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
	return d.record("Release")
}

func (d *fakeDecoder) lastCall() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		return ""
	}
	return d.calls[len(d.calls)-1]
}

type fakeFactory struct {
	mu       sync.Mutex
	decoders []*fakeDecoder
	err      error
}

func (f *fakeFactory) NewDecoder(s domain.Surface, l domain.DecoderListener) (domain.Decoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d := &fakeDecoder{surface: s, listener: l}
	f.decoders = append(f.decoders, d)
	return d, nil
}

// live counts decoders that were created and not yet released
func (f *fakeFactory) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.decoders {
		d.mu.Lock()
		if !d.released {
			n++
		}
		d.mu.Unlock()
	}
	return n
}

func (f *fakeFactory) last() *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.decoders) == 0 {
		return nil
	}
	return f.decoders[len(f.decoders)-1]
}

type fakeSettings struct {
	cfg domain.Configuration
}

func (s *fakeSettings) Get() domain.Configuration { return s.cfg }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *fakeNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type harness struct {
	m        *Manager
	display  *display.Headless
	factory  *fakeFactory
	settings *fakeSettings
	notifier *fakeNotifier
	events   chan Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		display:  display.NewHeadless(zap.NewNop(), domain.ScreenResolution{Width: 64, Height: 32}),
		factory:  &fakeFactory{},
		settings: &fakeSettings{cfg: domain.DefaultConfiguration()},
		notifier: &fakeNotifier{},
		events:   make(chan Event, 64),
	}
	h.m = NewManager(zap.NewNop(), h.display, h.factory, h.settings, h.notifier, func(ev Event) { h.events <- ev })
	t.Cleanup(func() { h.m.Close() })
	return h
}

// pump delivers the next posted event to the manager, as the owning goroutine would
func (h *harness) pump(t *testing.T, want EventType) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		if ev.Type != want {
			t.Fatalf("expected %s event, got %s", want, ev.Type)
		}
		h.m.HandleEvent(ev)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
		return Event{}
	}
}

// playVideo attaches path and drives its session to Playing
func (h *harness) playVideo(t *testing.T, path string) *fakeDecoder {
	t.Helper()
	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatalf("SetWallpaper(%s) failed: %v", path, err)
	}
	h.pump(t, EventSurfaceCreated)

	dec := h.factory.last()
	if dec == nil {
		t.Fatal("no decoder was created for the surface")
	}
	dec.listener.Prepared(nil)
	h.pump(t, EventPrepared)

	if got := h.m.Status().Session; got != domain.SessionPlaying {
		t.Fatalf("expected Playing session, got %s", got)
	}
	return dec
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really a video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSetWallpaper_StaticImage(t *testing.T) {
	h := newHarness(t)
	h.settings.cfg.Opacity = 40
	path := writeImage(t, t.TempDir(), "photo.png")

	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatalf("SetWallpaper failed: %v", err)
	}

	st := h.m.Status()
	if st.Phase != domain.PhaseAttached || st.Kind != domain.KindStatic || st.Path != path {
		t.Errorf("unexpected status %+v", st)
	}
	view, ok := h.display.Attached().(*display.HeadlessImageView)
	if !ok {
		t.Fatalf("expected an image view, got %T", h.display.Attached())
	}
	if view.Opacity() != 40 {
		t.Errorf("expected opacity 40 applied on attach, got %d", view.Opacity())
	}
	if h.factory.live() != 0 {
		t.Error("static images must not create decoders")
	}
}

func TestSetWallpaper_SamePathIsNoOp(t *testing.T) {
	h := newHarness(t)
	path := writeImage(t, t.TempDir(), "photo.jpg")

	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatal(err)
	}
	first := h.display.Attached()

	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatal(err)
	}
	if h.display.Attached() != first {
		t.Error("setting the attached path again should keep the same view")
	}
}

func TestSetWallpaper_Unavailable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
		cause error
	}{
		{
			name:  "Missing image",
			setup: func(t *testing.T, dir string) string { return filepath.Join(dir, "gone.png") },
			cause: fs.ErrNotExist,
		},
		{
			name:  "Missing video",
			setup: func(t *testing.T, dir string) string { return filepath.Join(dir, "gone.mp4") },
			cause: fs.ErrNotExist,
		},
		{
			name: "Corrupt image",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "broken.png")
				os.WriteFile(p, []byte("garbage"), 0644)
				return p
			},
		},
		{
			name: "Directory named like a video",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "folder.mp4")
				os.Mkdir(p, 0755)
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			path := tt.setup(t, t.TempDir())

			err := h.m.SetWallpaper(path)
			if !errors.Is(err, domain.ErrMediaUnavailable) {
				t.Fatalf("expected ErrMediaUnavailable, got %v", err)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("expected cause %v in %v", tt.cause, err)
			}
			if h.display.Attached() != nil {
				t.Error("nothing may stay attached after a failed build")
			}
			if h.m.Status().Phase != domain.PhaseIdle {
				t.Errorf("expected Idle, got %s", h.m.Status().Phase)
			}
			if h.notifier.count() != 1 || h.notifier.sent[0].Type != domain.NotificationMediaUnavailable {
				t.Errorf("expected one MediaUnavailable notification, got %+v", h.notifier.sent)
			}
		})
	}
}

func TestSetWallpaper_FailureReplacesPreviousView(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	good := writeImage(t, dir, "good.png")

	if err := h.m.SetWallpaper(good); err != nil {
		t.Fatal(err)
	}
	if err := h.m.SetWallpaper(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("expected an error")
	}
	if h.display.Attached() != nil {
		t.Error("previous view should be gone after a failed change")
	}
}

func TestVideo_PlaybackStartsWithSettings(t *testing.T) {
	h := newHarness(t)
	h.settings.cfg.Muted = false
	path := writeVideo(t, t.TempDir(), "clip.mp4")

	dec := h.playVideo(t, path)

	if dec.path != path {
		t.Errorf("decoder prepared %s, want %s", dec.path, path)
	}
	if dec.volume != 1 {
		t.Errorf("expected full volume when not muted, got %v", dec.volume)
	}
	if !dec.looping {
		t.Error("expected looping from settings")
	}
	if dec.lastCall() != "Start" {
		t.Errorf("playback should start last, calls were %v", dec.calls)
	}
	if h.factory.live() != 1 {
		t.Errorf("expected exactly one live decoder, got %d", h.factory.live())
	}
}

func TestVideo_SwitchReleasesDecoderAndDropsStaleEvents(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	old := h.playVideo(t, writeVideo(t, dir, "a.webm"))

	still := writeImage(t, dir, "b.png")
	if err := h.m.SetWallpaper(still); err != nil {
		t.Fatal(err)
	}
	if !old.released {
		t.Error("decoder must be released before the new view is attached")
	}

	// The old surface is destroyed by the detach; its event must be ignored
	h.pump(t, EventSurfaceDestroyed)

	// A late notification from the released decoder must be ignored too
	old.listener.Completed()
	h.pump(t, EventCompleted)

	if st := h.m.Status(); st.Path != still || st.Phase != domain.PhaseAttached || st.Session != "" {
		t.Errorf("unexpected status after stale events: %+v", st)
	}
	if h.factory.live() != 0 {
		t.Errorf("expected no live decoders, got %d", h.factory.live())
	}
}

func TestVideo_PrepareFailureEmptiesSlot(t *testing.T) {
	h := newHarness(t)
	path := writeVideo(t, t.TempDir(), "clip.mkv")

	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatal(err)
	}
	h.pump(t, EventSurfaceCreated)

	dec := h.factory.last()
	dec.listener.Prepared(errors.New("codec not supported"))
	h.pump(t, EventPrepared)

	if !dec.released {
		t.Error("failed decoder must be released")
	}
	if h.display.Attached() != nil {
		t.Error("surface view must be detached after a decoder failure")
	}
	if h.m.Status().Phase != domain.PhaseIdle {
		t.Errorf("expected Idle, got %s", h.m.Status().Phase)
	}

	if h.notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", h.notifier.count())
	}
	note := h.notifier.sent[0]
	if note.Path != path || !errors.Is(note.Err, domain.ErrDecoderFailure) {
		t.Errorf("unexpected notification %+v", note)
	}
}

func TestVideo_PlaybackFailureEmptiesSlot(t *testing.T) {
	h := newHarness(t)
	path := writeVideo(t, t.TempDir(), "clip.webm")
	dec := h.playVideo(t, path)

	dec.listener.Failed(errors.New("video player exited: signal: killed"))
	h.pump(t, EventFailed)

	if !dec.released {
		t.Error("crashed decoder must be released")
	}
	if h.display.Attached() != nil {
		t.Error("surface view must be detached after a playback failure")
	}
	if st := h.m.Status(); st.Phase != domain.PhaseIdle || st.Session != "" {
		t.Errorf("expected an empty Idle slot, got %+v", st)
	}

	if h.notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", h.notifier.count())
	}
	note := h.notifier.sent[0]
	if note.Type != domain.NotificationMediaUnavailable || note.Path != path ||
		!errors.Is(note.Err, domain.ErrDecoderFailure) {
		t.Errorf("unexpected notification %+v", note)
	}

	// A failure from a decoder that is already gone changes nothing
	dec.listener.Failed(errors.New("late"))
	h.pump(t, EventFailed)
	if h.notifier.count() != 1 {
		t.Errorf("stale failure must be dropped, got %d notifications", h.notifier.count())
	}
}

func TestVideo_DecoderCreationFailure(t *testing.T) {
	h := newHarness(t)
	h.factory.err = errors.New("mpv not installed")

	if err := h.m.SetWallpaper(writeVideo(t, t.TempDir(), "clip.mov")); err != nil {
		t.Fatal(err)
	}
	h.pump(t, EventSurfaceCreated)

	if h.m.Status().Phase != domain.PhaseIdle {
		t.Errorf("expected Idle, got %s", h.m.Status().Phase)
	}
	if h.notifier.count() != 1 {
		t.Errorf("expected one notification, got %d", h.notifier.count())
	}
}

func TestVideo_SurfaceRecreated(t *testing.T) {
	h := newHarness(t)
	path := writeVideo(t, t.TempDir(), "clip.mp4")
	first := h.playVideo(t, path)

	if !h.display.DestroySurface() {
		t.Fatal("expected a live surface")
	}
	h.pump(t, EventSurfaceDestroyed)

	if !first.released {
		t.Error("decoder must be released when its surface is destroyed")
	}
	if st := h.m.Status(); st.Phase != domain.PhaseAttached || st.Session != "" {
		t.Errorf("view should stay attached without a session, got %+v", st)
	}

	// Re-attach the same view to simulate the windowing system handing out a new surface
	view := h.display.Attached()
	h.display.Detach(view)
	h.display.Attach(view)
	h.pump(t, EventSurfaceCreated)

	second := h.factory.last()
	if second == first {
		t.Fatal("a new surface needs a new decoder")
	}
	if h.factory.live() != 1 {
		t.Errorf("expected one live decoder, got %d", h.factory.live())
	}
}

func TestVideo_EndOfStream(t *testing.T) {
	h := newHarness(t)
	h.settings.cfg.Looping = false
	dec := h.playVideo(t, writeVideo(t, t.TempDir(), "clip.mp4"))

	dec.listener.Completed()
	h.pump(t, EventCompleted)
	if got := h.m.Status().Session; got != domain.SessionStopped {
		t.Fatalf("expected Stopped, got %s", got)
	}

	if err := h.m.SetLooping(true); err != nil {
		t.Fatal(err)
	}
	if dec.lastCall() != "Replay" {
		t.Errorf("enabling looping after the end should replay, calls were %v", dec.calls)
	}
	if got := h.m.Status().Session; got != domain.SessionPlaying {
		t.Errorf("expected Playing, got %s", got)
	}
}

func TestApplyParameters(t *testing.T) {
	h := newHarness(t)
	dec := h.playVideo(t, writeVideo(t, t.TempDir(), "clip.mp4"))

	if err := h.m.ApplyOpacity(25); err != nil {
		t.Fatal(err)
	}
	view := h.display.Attached().(*display.HeadlessSurfaceView)
	if view.Opacity() != 25 {
		t.Errorf("expected opacity 25, got %d", view.Opacity())
	}

	if err := h.m.SetMuted(false); err != nil {
		t.Fatal(err)
	}
	if dec.volume != 1 {
		t.Errorf("expected volume 1, got %v", dec.volume)
	}

	if err := h.m.ApplyScaleMode(domain.ScaleStretch); err != nil {
		t.Fatal(err)
	}
	if dec.lastCall() != "SetScaleMode" {
		t.Errorf("scale mode should reach the decoder, calls were %v", dec.calls)
	}
}

func TestApplyParameters_WithoutView(t *testing.T) {
	h := newHarness(t)

	if err := h.m.ApplyOpacity(10); err != nil {
		t.Error(err)
	}
	if err := h.m.ApplyScaleMode(domain.ScaleTile); err != nil {
		t.Error(err)
	}
	if err := h.m.SetMuted(true); err != nil {
		t.Error(err)
	}
	if err := h.m.SetLooping(false); err != nil {
		t.Error(err)
	}
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	dec := h.playVideo(t, writeVideo(t, t.TempDir(), "clip.avi"))

	if err := h.m.SetWallpaper(""); err != nil {
		t.Fatal(err)
	}
	if !dec.released || h.display.Attached() != nil {
		t.Error("clearing must release the decoder and detach the view")
	}
	if st := h.m.Status(); st.Phase != domain.PhaseIdle || st.Path != "" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	h := newHarness(t)
	dec := h.playVideo(t, writeVideo(t, t.TempDir(), "clip.m4v"))

	if err := h.m.Close(); err != nil {
		t.Fatal(err)
	}
	if !dec.released {
		t.Error("Close must release the decoder")
	}
	if err := h.display.Attach(nil); err == nil {
		t.Error("display should be closed")
	}
}

func TestAnimatedImage(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "loop.gif")
	if err := imaging.Save(imaging.New(8, 8, color.White), path); err != nil {
		t.Fatal(err)
	}

	if err := h.m.SetWallpaper(path); err != nil {
		t.Fatal(err)
	}
	if h.m.Status().Kind != domain.KindAnimatedImage {
		t.Errorf("expected animated kind, got %s", h.m.Status().Kind)
	}
	if _, ok := h.display.Attached().(*display.HeadlessImageView); !ok {
		t.Errorf("expected an image view, got %T", h.display.Attached())
	}
}
