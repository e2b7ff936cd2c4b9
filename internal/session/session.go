// Package session drives one video decoder through its lifecycle.
//
// A Session is not safe for concurrent use: it is owned by the overlay manager's goroutine,
// which also filters out notifications that belong to older sessions.
package session

import (
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// Session owns exactly one decoder bound to exactly one surface
type Session struct {
	logger  *zap.Logger
	token   uint64
	state   domain.SessionState
	decoder domain.Decoder
	path    string

	muted     bool
	looping   bool
	scaleMode domain.ScaleMode
}

// New creates an unbound session identified by token
func New(logger *zap.Logger, token uint64) *Session {
	return &Session{
		logger: logger.With(zap.Uint64("session", token)),
		token:  token,
		state:  domain.SessionUnbound,
	}
}

// Token identifies the session in asynchronous notifications
func (s *Session) Token() uint64 {
	return s.token
}

// State returns the current lifecycle state
func (s *Session) State() domain.SessionState {
	return s.state
}

// Live reports whether parameters can be applied to the decoder directly
func (s *Session) Live() bool {
	switch s.state {
	case domain.SessionReady, domain.SessionPlaying, domain.SessionStopped:
		return true
	}
	return false
}

// Bind creates the decoder for surface
func (s *Session) Bind(factory domain.DecoderFactory, surface domain.Surface, listener domain.DecoderListener) error {
	if s.state != domain.SessionUnbound {
		return fmt.Errorf("cannot bind session in state %s", s.state)
	}

	dec, err := factory.NewDecoder(surface, listener)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	s.decoder = dec
	s.transition(domain.SessionBound)
	return nil
}

// Prepare requests asynchronous preparation of path. It does not wait for the result.
func (s *Session) Prepare(path string) error {
	if s.state != domain.SessionBound {
		return fmt.Errorf("cannot prepare session in state %s", s.state)
	}

	if err := s.decoder.Prepare(path); err != nil {
		return fmt.Errorf("failed to request preparation: %w", err)
	}

	s.path = path
	s.transition(domain.SessionPreparing)
	return nil
}

// OnPrepared applies the current parameters and starts playback immediately
func (s *Session) OnPrepared(cfg domain.Configuration) error {
	if s.state != domain.SessionPreparing {
		return fmt.Errorf("unexpected preparation result in state %s", s.state)
	}
	s.transition(domain.SessionReady)

	s.muted = cfg.Muted
	s.looping = cfg.Looping
	s.scaleMode = cfg.ScaleMode

	if err := s.decoder.SetVolume(volume(s.muted)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	if err := s.decoder.SetLooping(s.looping); err != nil {
		return fmt.Errorf("failed to set looping: %w", err)
	}
	if err := s.decoder.SetScaleMode(s.scaleMode); err != nil {
		return fmt.Errorf("failed to set scale mode: %w", err)
	}
	if err := s.decoder.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.transition(domain.SessionPlaying)
	return nil
}

// OnCompleted handles end of stream. With looping on the decoder repeats by itself.
func (s *Session) OnCompleted() error {
	if s.state != domain.SessionPlaying {
		s.logger.Debug("Ignoring completion", zap.String("state", string(s.state)))
		return nil
	}
	if s.looping {
		return nil
	}

	if err := s.decoder.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	s.transition(domain.SessionStopped)
	return nil
}

// SetMuted applies muted to a live decoder, or remembers it for the next Ready
func (s *Session) SetMuted(muted bool) error {
	s.muted = muted
	if !s.Live() {
		return nil
	}
	return s.decoder.SetVolume(volume(muted))
}

// SetLooping applies looping to a live decoder. Turning looping on after playback
// stopped at end of stream starts it again from the beginning.
func (s *Session) SetLooping(looping bool) error {
	s.looping = looping
	if !s.Live() {
		return nil
	}

	if err := s.decoder.SetLooping(looping); err != nil {
		return err
	}
	if looping && s.state == domain.SessionStopped {
		if err := s.decoder.Replay(); err != nil {
			return fmt.Errorf("failed to replay: %w", err)
		}
		s.transition(domain.SessionPlaying)
	}
	return nil
}

// SetScaleMode applies mode to a live decoder
func (s *Session) SetScaleMode(mode domain.ScaleMode) error {
	s.scaleMode = mode
	if !s.Live() {
		return nil
	}
	return s.decoder.SetScaleMode(mode)
}

// Release frees the decoder in any state. Calling it again is a no-op.
func (s *Session) Release() error {
	if s.state == domain.SessionReleased {
		return nil
	}

	var err error
	if s.decoder != nil {
		err = s.decoder.Release()
		s.decoder = nil
	}
	s.transition(domain.SessionReleased)
	return err
}

func (s *Session) transition(to domain.SessionState) {
	s.logger.Debug("Decoder session transition",
		zap.String("from", string(s.state)),
		zap.String("to", string(to)),
		zap.String("path", s.path))
	s.state = to
}

func volume(muted bool) float64 {
	if muted {
		return 0
	}
	return 1
}
