package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	notificationsName      = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
)

// DBusClient defines the desktop notification calls used by Desktop.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/backdrop/internal/notify DBusClient
type DBusClient interface {
	// Close closes the D-Bus connection
	Close() error

	// Notify shows a desktop notification and returns its id.
	// A non-zero replacesID replaces an earlier notification in place.
	Notify(appName string, replacesID uint32, icon, summary, body string, timeout int32) (uint32, error)
}

// StdDBusClient is the real implementation using godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient creates a private connection to the session bus
func NewStdDBusClient() (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Close closes the D-Bus connection
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

// Notify calls org.freedesktop.Notifications.Notify
func (c *StdDBusClient) Notify(appName string, replacesID uint32, icon, summary, body string, timeout int32) (uint32, error) {
	obj := c.conn.Object(notificationsName, notificationsPath)

	var id uint32
	err := obj.Call(notificationsInterface+".Notify", 0,
		appName, replacesID, icon, summary, body,
		[]string{}, map[string]dbus.Variant{}, timeout,
	).Store(&id)
	return id, err
}
