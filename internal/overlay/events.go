package overlay

import (
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
)

// EventType identifies an asynchronous notification for the manager
type EventType int

const (
	EventSurfaceCreated EventType = iota
	EventSurfaceDestroyed
	EventPrepared
	EventCompleted
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventSurfaceCreated:
		return "SurfaceCreated"
	case EventSurfaceDestroyed:
		return "SurfaceDestroyed"
	case EventPrepared:
		return "Prepared"
	case EventCompleted:
		return "Completed"
	case EventFailed:
		return "Failed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a surface or decoder notification tagged with the token of the view or
// session it belongs to
type Event struct {
	Type    EventType
	Token   uint64
	Surface domain.Surface
	Err     error
}

// PostFunc hands an event to the goroutine that owns the manager
type PostFunc func(Event)

// surfaceListener forwards surface callbacks of one view
type surfaceListener struct {
	token uint64
	post  PostFunc
}

func (l surfaceListener) SurfaceCreated(s domain.Surface) {
	l.post(Event{Type: EventSurfaceCreated, Token: l.token, Surface: s})
}

func (l surfaceListener) SurfaceDestroyed(s domain.Surface) {
	l.post(Event{Type: EventSurfaceDestroyed, Token: l.token, Surface: s})
}

// decoderListener forwards decoder callbacks of one session
type decoderListener struct {
	token uint64
	post  PostFunc
}

func (l decoderListener) Prepared(err error) {
	l.post(Event{Type: EventPrepared, Token: l.token, Err: err})
}

func (l decoderListener) Completed() {
	l.post(Event{Type: EventCompleted, Token: l.token})
}

func (l decoderListener) Failed(err error) {
	l.post(Event{Type: EventFailed, Token: l.token, Err: err})
}
