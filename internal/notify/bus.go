// Package notify fans out engine notifications to the IPC service and desktop toasts.
package notify

import (
	"sync"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// subscriberBuffer is the per-subscriber queue length
const subscriberBuffer = 16

// dropWarningInterval rate limits "subscriber full" warnings
const dropWarningInterval = 5 * time.Second

// Bus is a domain.Notifier that copies every notification to its subscribers.
// Notify never blocks: a subscriber that falls behind loses notifications.
type Bus struct {
	logger *zap.Logger

	mu              sync.Mutex
	subs            []chan domain.Notification
	closed          bool
	lastDropWarning time.Time
}

var _ domain.Notifier = (*Bus)(nil)

// NewBus creates a bus without subscribers
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe returns a channel receiving every later notification.
// The channel is closed by Close.
func (b *Bus) Subscribe() <-chan domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan domain.Notification, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Notify implements domain.Notifier
func (b *Bus) Notify(n domain.Notification) {
	fields := []zap.Field{zap.String("type", string(n.Type))}
	switch n.Type {
	case domain.NotificationMediaUnavailable:
		fields = append(fields, zap.String("path", n.Path), zap.Error(n.Err))
	case domain.NotificationScanCompleted:
		fields = append(fields, zap.Int("count", n.Count))
	}
	b.logger.Info("Notification", fields...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	dropped := false
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			dropped = true
		}
	}
	if dropped {
		b.logDropWarning()
	}
}

// logDropWarning must be called with b.mu held
func (b *Bus) logDropWarning() {
	now := time.Now()
	if now.Sub(b.lastDropWarning) >= dropWarningInterval {
		b.logger.Warn("Notification subscriber full, dropping notification")
		b.lastDropWarning = now
	}
}

// Close closes every subscriber channel. Later notifications are only logged.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
