package ipc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/engine"
	"github.com/genricoloni/backdrop/internal/notify"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeController struct {
	mu    sync.Mutex
	calls []string
	err   error
	cfg   domain.Configuration
}

func (c *fakeController) record(call string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.err
}

func (c *fakeController) SetWallpaper(_ context.Context, path string) error {
	return c.record("SetWallpaper " + path)
}
func (c *fakeController) ClearWallpaper(context.Context) error { return c.record("ClearWallpaper") }
func (c *fakeController) SetTransparency(_ context.Context, p int) error {
	return c.record(fmt.Sprintf("SetTransparency %d", p))
}
func (c *fakeController) SetMuted(_ context.Context, m bool) error {
	return c.record(fmt.Sprintf("SetMuted %t", m))
}
func (c *fakeController) SetLooping(_ context.Context, l bool) error {
	return c.record(fmt.Sprintf("SetLooping %t", l))
}
func (c *fakeController) SetScaleMode(_ context.Context, m domain.ScaleMode) error {
	return c.record("SetScaleMode " + string(m))
}
func (c *fakeController) Reset(context.Context) error         { return c.record("Reset") }
func (c *fakeController) Configuration() domain.Configuration { return c.cfg }
func (c *fakeController) Status(context.Context) (domain.Status, error) {
	return domain.Status{Phase: domain.PhaseAttached, Path: c.cfg.MediaPath, Kind: c.cfg.Kind,
		Session: domain.SessionPlaying}, c.record("Status")
}
func (c *fakeController) Scan(_ context.Context, dirs []string) (int, error) {
	return len(dirs) * 2, c.record(fmt.Sprintf("Scan %v", dirs))
}

type fakeThumbnailer struct{}

func (fakeThumbnailer) Get(_ context.Context, media string) (string, error) {
	if media == "" {
		return "", fs.ErrNotExist
	}
	return "/cache/thumb_" + media + ".png", nil
}
func (fakeThumbnailer) Clear() (int, error) { return 3, nil }

func newTestObject(ctrl *fakeController) *object {
	return &object{ctrl: ctrl, thumbs: fakeThumbnailer{}, logger: zap.NewNop()}
}

func TestObject_ForwardsCalls(t *testing.T) {
	ctrl := &fakeController{}
	obj := newTestObject(ctrl)

	require.Nil(t, obj.SetWallpaper("/walls/a.png"))
	require.Nil(t, obj.ClearWallpaper())
	require.Nil(t, obj.SetTransparency(40))
	require.Nil(t, obj.SetMuted(false))
	require.Nil(t, obj.SetLooping(true))
	require.Nil(t, obj.SetScaleMode(" Tile "))
	require.Nil(t, obj.Reset())

	n, derr := obj.Scan([]string{"/a", "/b"})
	require.Nil(t, derr)
	assert.Equal(t, int32(4), n)

	assert.Equal(t, []string{
		"SetWallpaper /walls/a.png",
		"ClearWallpaper",
		"SetTransparency 40",
		"SetMuted false",
		"SetLooping true",
		"SetScaleMode tile",
		"Reset",
		"Scan [/a /b]",
	}, ctrl.calls)
}

func TestObject_InvalidScaleMode(t *testing.T) {
	ctrl := &fakeController{}
	derr := newTestObject(ctrl).SetScaleMode("zoom")

	require.NotNil(t, derr)
	assert.Equal(t, ErrorInvalidArgs, derr.Name)
	assert.Empty(t, ctrl.calls, "invalid modes never reach the controller")
}

func TestObject_ErrorNames(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantName string
	}{
		{
			name:     "Media unavailable",
			err:      domain.NewMediaUnavailable("/walls/a.png", fs.ErrNotExist),
			wantName: ErrorMediaUnavailable,
		},
		{
			name:     "Decoder failure",
			err:      domain.NewDecoderFailure("/walls/a.mp4", errors.New("bad codec")),
			wantName: ErrorDecoderFailure,
		},
		{
			name:     "Permission denied",
			err:      fmt.Errorf("open overlay: %w", domain.ErrPermissionDenied),
			wantName: ErrorPermissionDenied,
		},
		{
			name:     "Engine stopped",
			err:      engine.ErrNotRunning,
			wantName: ErrorNotRunning,
		},
		{
			name:     "Anything else",
			err:      errors.New("disk full"),
			wantName: ErrorFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := newTestObject(&fakeController{err: tt.err}).SetWallpaper("/walls/a.png")
			require.NotNil(t, derr)
			assert.Equal(t, tt.wantName, derr.Name)
			assert.Equal(t, tt.err.Error(), derr.Error())
		})
	}
}

func TestFromDBusError_RestoresSentinels(t *testing.T) {
	original := domain.NewMediaUnavailable("/walls/a.png", fs.ErrNotExist)

	// Calls return the error by value
	err := fromDBusError(*toDBusError(original))
	assert.ErrorIs(t, err, domain.ErrMediaUnavailable)
	assert.Contains(t, err.Error(), "/walls/a.png")

	err = fromDBusError(toDBusError(engine.ErrNotRunning))
	assert.ErrorIs(t, err, engine.ErrNotRunning)

	err = fromDBusError(*dbus.NewError("org.freedesktop.DBus.Error.ServiceUnknown", []any{"no daemon"}))
	assert.EqualError(t, err, "no daemon")

	plain := errors.New("plain")
	assert.Same(t, plain, fromDBusError(plain))
}

func TestObject_ConfigurationAndStatus(t *testing.T) {
	cfg := domain.Configuration{
		MediaPath: "/walls/clip.mp4",
		Kind:      domain.KindVideo,
		Opacity:   55,
		Muted:     false,
		Looping:   true,
		ScaleMode: domain.ScaleStretch,
	}
	obj := newTestObject(&fakeController{cfg: cfg})

	m, derr := obj.GetConfiguration()
	require.Nil(t, derr)
	got, err := decodeConfiguration(m)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	sm, derr := obj.Status()
	require.Nil(t, derr)
	st, err := decodeStatus(sm)
	require.NoError(t, err)
	assert.Equal(t, domain.Status{
		Phase:   domain.PhaseAttached,
		Path:    "/walls/clip.mp4",
		Kind:    domain.KindVideo,
		Session: domain.SessionPlaying,
	}, st)
}

func TestDecodeConfiguration_WrongType(t *testing.T) {
	_, err := decodeConfiguration(map[string]dbus.Variant{
		"Opacity": dbus.MakeVariant("lots"),
	})
	assert.Error(t, err)
}

func TestObject_Thumbnails(t *testing.T) {
	obj := newTestObject(&fakeController{})

	thumb, derr := obj.Thumbnail("a")
	require.Nil(t, derr)
	assert.Equal(t, "/cache/thumb_a.png", thumb)

	_, derr = obj.Thumbnail("")
	require.NotNil(t, derr)
	assert.Equal(t, ErrorFailed, derr.Name)

	n, derr := obj.ClearThumbnails()
	require.Nil(t, derr)
	assert.Equal(t, int32(3), n)
}

type emitted struct {
	member string
	values []any
}

func TestService_ForwardsNotificationsAsSignals(t *testing.T) {
	bus := notify.NewBus(zap.NewNop())
	svc := NewService(&fakeController{}, fakeThumbnailer{}, bus, zap.NewNop())
	svc.done = make(chan struct{})

	out := make(chan emitted, 4)
	ctx, cancel := context.WithCancel(context.Background())
	go svc.forward(ctx, func(member string, values ...any) error {
		out <- emitted{member, values}
		return nil
	})

	bus.Notify(domain.MediaUnavailable("/walls/a.png", fs.ErrNotExist))
	bus.Notify(domain.Notification{Type: "Other"})
	bus.Notify(domain.ScanCompleted(9))

	want := []emitted{
		{"MediaUnavailable", []any{"/walls/a.png", fs.ErrNotExist.Error()}},
		{"ScanCompleted", []any{int32(9)}},
	}
	for _, w := range want {
		select {
		case got := <-out:
			assert.Equal(t, w, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("signal %s was not emitted", w.member)
		}
	}

	cancel()
	select {
	case <-svc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not stop")
	}
}

func TestService_NoSessionBus(t *testing.T) {
	svc := NewService(&fakeController{}, fakeThumbnailer{}, notify.NewBus(zap.NewNop()), zap.NewNop())
	svc.connect = func() (*dbus.Conn, error) { return nil, errors.New("no session bus") }

	require.NoError(t, svc.Start(context.Background()), "a missing bus is not fatal")
	require.NoError(t, svc.Stop(context.Background()))
}

func TestService_DefaultConnectorWithoutBus(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path="+t.TempDir()+"/no-bus")

	svc := NewService(&fakeController{}, fakeThumbnailer{}, notify.NewBus(zap.NewNop()), zap.NewNop())
	conn, err := svc.connect()
	require.Error(t, err)
	assert.Nil(t, conn)

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
}
