package notify

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

const (
	appName = "Backdrop"
	appIcon = "preferences-desktop-wallpaper"
	// toastTimeout in milliseconds
	toastTimeout int32 = 5000
)

// Desktop shows notifications as desktop toasts.
// Without a notification daemon it degrades to log lines.
type Desktop struct {
	logger  *zap.Logger
	events  <-chan domain.Notification
	connect func() (DBusClient, error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// owned by the run goroutine
	client   DBusClient
	replaces uint32
}

// NewDesktop subscribes to bus
func NewDesktop(bus *Bus, logger *zap.Logger) *Desktop {
	return &Desktop{
		logger:  logger,
		events:  bus.Subscribe(),
		connect: NewStdDBusClient,
	}
}

// Start begins delivering toasts. The session bus is connected lazily.
func (d *Desktop) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true

	go d.run(runCtx)
	return nil
}

func (d *Desktop) run(ctx context.Context) {
	defer close(d.done)
	defer d.disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.events:
			if !ok {
				return
			}
			d.show(n)
		}
	}
}

// show delivers one toast, reconnecting on the next one after a failure
func (d *Desktop) show(n domain.Notification) {
	summary, body := message(n)
	if summary == "" {
		return
	}

	if d.client == nil {
		client, err := d.connect()
		if err != nil {
			d.logger.Debug("Desktop notifications unavailable", zap.Error(err), zap.String("summary", summary))
			return
		}
		d.client = client
	}

	id, err := d.client.Notify(appName, d.replaces, appIcon, summary, body, toastTimeout)
	if err != nil {
		d.logger.Warn("Failed to show desktop notification", zap.Error(err), zap.String("summary", summary))
		d.disconnect()
		return
	}
	d.replaces = id
}

func (d *Desktop) disconnect() {
	if d.client == nil {
		return
	}
	if err := d.client.Close(); err != nil {
		d.logger.Debug("Failed to close D-Bus connection", zap.Error(err))
	}
	d.client = nil
	d.replaces = 0
}

// Stop ends delivery and closes the D-Bus connection
func (d *Desktop) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// message renders the toast text for n; an empty summary means no toast
func message(n domain.Notification) (summary, body string) {
	switch n.Type {
	case domain.NotificationMediaUnavailable:
		body = fmt.Sprintf("%s could not be shown", filepath.Base(n.Path))
		if n.Err != nil {
			body = fmt.Sprintf("%s: %v", body, n.Err)
		}
		return "Wallpaper unavailable", body
	case domain.NotificationScanCompleted:
		switch n.Count {
		case 0:
			return "Library scan completed", "No wallpapers found"
		case 1:
			return "Library scan completed", "Found 1 wallpaper"
		default:
			return "Library scan completed", fmt.Sprintf("Found %d wallpapers", n.Count)
		}
	}
	return "", ""
}
