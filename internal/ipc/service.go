// Package ipc exposes the wallpaper controller on the D-Bus session bus.
package ipc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/notify"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"
)

// callTimeout bounds a single method call on the controller
const callTimeout = 30 * time.Second

// Thumbnailer serves library thumbnails
type Thumbnailer interface {
	Get(ctx context.Context, media string) (string, error)
	Clear() (int, error)
}

// emitFunc sends one signal on the control interface
type emitFunc func(member string, values ...any) error

// Service owns the bus name and forwards notifications as signals
type Service struct {
	logger  *zap.Logger
	object  *object
	events  <-chan domain.Notification
	connect func() (*dbus.Conn, error)

	mu      sync.Mutex
	running bool
	conn    *dbus.Conn
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService creates the control service. Notifications published on bus become signals.
func NewService(ctrl domain.Controller, thumbs Thumbnailer, bus *notify.Bus, logger *zap.Logger) *Service {
	return &Service{
		logger:  logger,
		object:  &object{ctrl: ctrl, thumbs: thumbs, logger: logger},
		events:  bus.Subscribe(),
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Start exports the control object and claims BusName.
// Without a session bus the service stays offline and Start succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	conn, err := s.connect()
	if err != nil {
		s.logger.Warn("Session bus unavailable, control interface disabled", zap.Error(err))
		return nil
	}

	if err := export(conn, s.object); err != nil {
		conn.Close()
		return err
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("bus name %s is already owned, is another daemon running?", BusName)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.conn = conn
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.forward(runCtx, func(member string, values ...any) error {
		return conn.Emit(ObjectPath, Interface+"."+member, values...)
	})

	s.logger.Info("Control interface exported",
		zap.String("name", BusName),
		zap.String("path", string(ObjectPath)))
	return nil
}

// export publishes obj and its introspection data on conn
func export(conn *dbus.Conn, obj *object) error {
	if err := conn.Export(obj, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export control object: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(obj),
				Signals: signals,
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection data: %w", err)
	}
	return nil
}

var signals = []introspect.Signal{
	{
		Name: "MediaUnavailable",
		Args: []introspect.Arg{
			{Name: "path", Type: "s"},
			{Name: "reason", Type: "s"},
		},
	},
	{
		Name: "ScanCompleted",
		Args: []introspect.Arg{
			{Name: "count", Type: "i"},
		},
	},
}

// forward turns notifications into signals until ctx is done or the bus closes
func (s *Service) forward(ctx context.Context, emit emitFunc) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.events:
			if !ok {
				return
			}
			member, values := signal(n)
			if member == "" {
				continue
			}
			if err := emit(member, values...); err != nil {
				s.logger.Warn("Failed to emit signal", zap.String("signal", member), zap.Error(err))
			}
		}
	}
}

func signal(n domain.Notification) (string, []any) {
	switch n.Type {
	case domain.NotificationMediaUnavailable:
		reason := ""
		if n.Err != nil {
			reason = n.Err.Error()
		}
		return "MediaUnavailable", []any{n.Path, reason}
	case domain.NotificationScanCompleted:
		return "ScanCompleted", []any{int32(n.Count)}
	}
	return "", nil
}

// Stop releases the bus name and closes the connection
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	conn, cancel, done := s.conn, s.cancel, s.done
	s.conn = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if _, err := conn.ReleaseName(BusName); err != nil {
		s.logger.Debug("Failed to release bus name", zap.Error(err))
	}
	return conn.Close()
}

// object is exported on the bus: every exported method is a D-Bus method
type object struct {
	ctrl   domain.Controller
	thumbs Thumbnailer
	logger *zap.Logger
}

func (o *object) call(method string, fn func(ctx context.Context) error) *dbus.Error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		o.logger.Debug("Method failed", zap.String("method", method), zap.Error(err))
		return toDBusError(err)
	}
	return nil
}

func (o *object) SetWallpaper(path string) *dbus.Error {
	return o.call("SetWallpaper", func(ctx context.Context) error {
		return o.ctrl.SetWallpaper(ctx, path)
	})
}

func (o *object) ClearWallpaper() *dbus.Error {
	return o.call("ClearWallpaper", o.ctrl.ClearWallpaper)
}

func (o *object) SetTransparency(percent int32) *dbus.Error {
	return o.call("SetTransparency", func(ctx context.Context) error {
		return o.ctrl.SetTransparency(ctx, int(percent))
	})
}

func (o *object) SetMuted(muted bool) *dbus.Error {
	return o.call("SetMuted", func(ctx context.Context) error {
		return o.ctrl.SetMuted(ctx, muted)
	})
}

func (o *object) SetLooping(looping bool) *dbus.Error {
	return o.call("SetLooping", func(ctx context.Context) error {
		return o.ctrl.SetLooping(ctx, looping)
	})
}

func (o *object) SetScaleMode(mode string) *dbus.Error {
	parsed, err := domain.ParseScaleMode(mode)
	if err != nil {
		return invalidArgs(err)
	}
	return o.call("SetScaleMode", func(ctx context.Context) error {
		return o.ctrl.SetScaleMode(ctx, parsed)
	})
}

func (o *object) GetConfiguration() (map[string]dbus.Variant, *dbus.Error) {
	return encodeConfiguration(o.ctrl.Configuration()), nil
}

func (o *object) Status() (map[string]dbus.Variant, *dbus.Error) {
	var st domain.Status
	derr := o.call("Status", func(ctx context.Context) error {
		var err error
		st, err = o.ctrl.Status(ctx)
		return err
	})
	if derr != nil {
		return nil, derr
	}
	return encodeStatus(st), nil
}

func (o *object) Scan(dirs []string) (int32, *dbus.Error) {
	var n int
	derr := o.call("Scan", func(ctx context.Context) error {
		var err error
		n, err = o.ctrl.Scan(ctx, dirs)
		return err
	})
	return int32(n), derr
}

func (o *object) Reset() *dbus.Error {
	return o.call("Reset", o.ctrl.Reset)
}

func (o *object) Thumbnail(path string) (string, *dbus.Error) {
	var thumb string
	derr := o.call("Thumbnail", func(ctx context.Context) error {
		var err error
		thumb, err = o.thumbs.Get(ctx, path)
		return err
	})
	return thumb, derr
}

func (o *object) ClearThumbnails() (int32, *dbus.Error) {
	n, err := o.thumbs.Clear()
	if err != nil {
		return int32(n), toDBusError(err)
	}
	return int32(n), nil
}
