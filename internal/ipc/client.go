package ipc

import (
	"context"
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/godbus/dbus/v5"
)

// Client calls a running daemon over the session bus
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to the session bus. It does not check that the daemon is running.
func Dial() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(BusName, ObjectPath)}, nil
}

// Close closes the bus connection
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, ret []any, args ...any) error {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0, args...)
	if call.Err != nil {
		return fromDBusError(call.Err)
	}
	if len(ret) == 0 {
		return nil
	}
	return call.Store(ret...)
}

func (c *Client) SetWallpaper(ctx context.Context, path string) error {
	return c.call(ctx, "SetWallpaper", nil, path)
}

func (c *Client) ClearWallpaper(ctx context.Context) error {
	return c.call(ctx, "ClearWallpaper", nil)
}

func (c *Client) SetTransparency(ctx context.Context, percent int) error {
	return c.call(ctx, "SetTransparency", nil, int32(percent))
}

func (c *Client) SetMuted(ctx context.Context, muted bool) error {
	return c.call(ctx, "SetMuted", nil, muted)
}

func (c *Client) SetLooping(ctx context.Context, looping bool) error {
	return c.call(ctx, "SetLooping", nil, looping)
}

func (c *Client) SetScaleMode(ctx context.Context, mode string) error {
	return c.call(ctx, "SetScaleMode", nil, mode)
}

func (c *Client) Reset(ctx context.Context) error {
	return c.call(ctx, "Reset", nil)
}

// Configuration returns the daemon's committed configuration
func (c *Client) Configuration(ctx context.Context) (domain.Configuration, error) {
	var m map[string]dbus.Variant
	if err := c.call(ctx, "GetConfiguration", []any{&m}); err != nil {
		return domain.Configuration{}, err
	}
	return decodeConfiguration(m)
}

// Status returns a snapshot of the wallpaper slot
func (c *Client) Status(ctx context.Context) (domain.Status, error) {
	var m map[string]dbus.Variant
	if err := c.call(ctx, "Status", []any{&m}); err != nil {
		return domain.Status{}, err
	}
	return decodeStatus(m)
}

// Scan scans dirs, or the configured library when dirs is empty
func (c *Client) Scan(ctx context.Context, dirs []string) (int, error) {
	if dirs == nil {
		dirs = []string{}
	}
	var n int32
	if err := c.call(ctx, "Scan", []any{&n}, dirs); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Thumbnail returns the path of the cached thumbnail for media
func (c *Client) Thumbnail(ctx context.Context, media string) (string, error) {
	var thumb string
	if err := c.call(ctx, "Thumbnail", []any{&thumb}, media); err != nil {
		return "", err
	}
	return thumb, nil
}

// ClearThumbnails removes every cached thumbnail
func (c *Client) ClearThumbnails(ctx context.Context) (int, error) {
	var n int32
	if err := c.call(ctx, "ClearThumbnails", []any{&n}); err != nil {
		return 0, err
	}
	return int(n), nil
}
