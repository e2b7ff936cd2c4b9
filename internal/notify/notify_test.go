package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/notify/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestBus_FansOutToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	a, b := bus.Subscribe(), bus.Subscribe()

	bus.Notify(domain.ScanCompleted(4))

	for i, ch := range []<-chan domain.Notification{a, b} {
		select {
		case n := <-ch:
			if n.Count != 4 {
				t.Errorf("subscriber %d: expected count 4, got %d", i, n.Count)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ch := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Notify(domain.ScanCompleted(i))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("expected a full buffer of %d, got %d", subscriberBuffer, len(ch))
	}
	if n := <-ch; n.Count != 0 {
		t.Errorf("expected the oldest notification to be kept, got %d", n.Count)
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ch := bus.Subscribe()

	bus.Close()
	bus.Close()
	bus.Notify(domain.ScanCompleted(1))

	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel to be closed")
	}
	if _, ok := <-bus.Subscribe(); ok {
		t.Error("subscribing to a closed bus should return a closed channel")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name        string
		n           domain.Notification
		wantSummary string
		wantBody    string
	}{
		{
			name:        "Media unavailable",
			n:           domain.MediaUnavailable("/walls/beach.jpg", errors.New("no such file")),
			wantSummary: "Wallpaper unavailable",
			wantBody:    "beach.jpg could not be shown: no such file",
		},
		{
			name:        "Media unavailable without cause",
			n:           domain.MediaUnavailable("/walls/clip.mp4", nil),
			wantSummary: "Wallpaper unavailable",
			wantBody:    "clip.mp4 could not be shown",
		},
		{
			name:        "Empty scan",
			n:           domain.ScanCompleted(0),
			wantSummary: "Library scan completed",
			wantBody:    "No wallpapers found",
		},
		{
			name:        "Single result",
			n:           domain.ScanCompleted(1),
			wantSummary: "Library scan completed",
			wantBody:    "Found 1 wallpaper",
		},
		{
			name:        "Many results",
			n:           domain.ScanCompleted(12),
			wantSummary: "Library scan completed",
			wantBody:    "Found 12 wallpapers",
		},
		{
			name: "Unknown type",
			n:    domain.Notification{Type: "Other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, body := message(tt.n)
			if summary != tt.wantSummary {
				t.Errorf("expected summary %q, got %q", tt.wantSummary, summary)
			}
			if body != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, body)
			}
		})
	}
}

func newTestDesktop(connect func() (DBusClient, error)) *Desktop {
	d := NewDesktop(NewBus(zap.NewNop()), zap.NewNop())
	d.connect = connect
	return d
}

func TestDesktop_ShowReplacesPreviousToast(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	connects := 0
	d := newTestDesktop(func() (DBusClient, error) {
		connects++
		return client, nil
	})

	gomock.InOrder(
		client.EXPECT().Notify(appName, uint32(0), appIcon, "Library scan completed", "Found 2 wallpapers", toastTimeout).
			Return(uint32(41), nil),
		client.EXPECT().Notify(appName, uint32(41), appIcon, "Wallpaper unavailable", gomock.Any(), toastTimeout).
			Return(uint32(41), nil),
	)

	d.show(domain.ScanCompleted(2))
	d.show(domain.MediaUnavailable("/walls/a.png", nil))

	if connects != 1 {
		t.Errorf("expected a single connection, got %d", connects)
	}
}

func TestDesktop_ReconnectsAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	broken := mocks.NewMockDBusClient(ctrl)
	healthy := mocks.NewMockDBusClient(ctrl)

	broken.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uint32(0), errors.New("connection reset"))
	broken.EXPECT().Close().Return(nil)
	healthy.EXPECT().Notify(appName, uint32(0), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(uint32(7), nil)

	clients := []DBusClient{broken, healthy}
	d := newTestDesktop(func() (DBusClient, error) {
		c := clients[0]
		clients = clients[1:]
		return c, nil
	})

	d.show(domain.ScanCompleted(1))
	d.show(domain.ScanCompleted(1))

	if d.replaces != 7 {
		t.Errorf("expected replaces id 7, got %d", d.replaces)
	}
}

func TestDesktop_NoSessionBus(t *testing.T) {
	d := newTestDesktop(func() (DBusClient, error) {
		return nil, errors.New("no session bus")
	})

	// Must not panic or block
	d.show(domain.ScanCompleted(3))
	if d.client != nil {
		t.Error("expected no client without a session bus")
	}
}

func TestDesktop_Lifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDBusClient(ctrl)

	bus := NewBus(zap.NewNop())
	d := NewDesktop(bus, zap.NewNop())
	d.connect = func() (DBusClient, error) { return client, nil }

	delivered := make(chan struct{})
	client.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(string, uint32, string, string, string, int32) (uint32, error) {
			close(delivered)
			return 1, nil
		})
	client.EXPECT().Close().Return(nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	bus.Notify(domain.ScanCompleted(5))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("toast was not delivered")
	}

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}
