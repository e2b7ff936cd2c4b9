// Package overlay keeps exactly one wallpaper view attached to the overlay window.
//
// A Manager is owned by a single goroutine. Surface and decoder callbacks arrive on
// other goroutines; they are handed to the owner through a PostFunc and applied with
// HandleEvent, which drops events that belong to a view or session that is gone.
package overlay

import (
	"errors"

	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager switches the overlay window between wallpapers
type Manager struct {
	logger   *zap.Logger
	display  domain.Display
	decoders domain.DecoderFactory
	settings domain.SettingsReader
	notifier domain.Notifier
	post     PostFunc

	phase     domain.Phase
	path      string
	kind      domain.Kind
	view      domain.View
	viewToken uint64
	session   *session.Session
	tokens    uint64
}

// NewManager creates an idle manager. The manager owns display and closes it in Close.
func NewManager(
	logger *zap.Logger,
	display domain.Display,
	decoders domain.DecoderFactory,
	settings domain.SettingsReader,
	notifier domain.Notifier,
	post PostFunc,
) *Manager {
	return &Manager{
		logger:   logger,
		display:  display,
		decoders: decoders,
		settings: settings,
		notifier: notifier,
		post:     post,
		phase:    domain.PhaseIdle,
	}
}

// SetWallpaper replaces the attached view with one showing path.
// An empty path only removes the current view. On failure nothing is attached.
func (m *Manager) SetWallpaper(path string) error {
	if path == "" {
		m.teardown()
		return nil
	}
	if m.phase == domain.PhaseAttached && m.path == path {
		m.logger.Debug("Wallpaper already attached", zap.String("path", path))
		return nil
	}

	cfg := m.settings.Get()
	m.teardown()

	m.setPhase(domain.PhaseClassifying)
	kind := classifier.Classify(path)

	m.setPhase(domain.PhaseBuilding)
	token := m.nextToken()
	view, err := builders[kind](m, buildRequest{path: path, kind: kind, token: token, cfg: cfg})
	if err != nil {
		m.setPhase(domain.PhaseIdle)
		return m.unavailable(path, err)
	}

	m.setPhase(domain.PhaseAttaching)
	if err := m.display.Attach(view); err != nil {
		if cerr := view.Close(); cerr != nil {
			m.logger.Warn("Failed to close unattached view", zap.Error(cerr))
		}
		m.setPhase(domain.PhaseIdle)
		return m.unavailable(path, err)
	}

	if err := view.SetOpacity(cfg.Opacity); err != nil {
		m.logger.Warn("Failed to apply opacity", zap.Int("opacity", cfg.Opacity), zap.Error(err))
	}

	m.view = view
	m.viewToken = token
	m.path = path
	m.kind = kind
	m.setPhase(domain.PhaseAttached)

	m.logger.Info("Wallpaper attached",
		zap.String("path", path),
		zap.String("kind", string(kind)))
	return nil
}

// ApplyOpacity changes the opacity of the attached view in place
func (m *Manager) ApplyOpacity(percent int) error {
	if m.view == nil {
		return nil
	}
	return m.view.SetOpacity(percent)
}

// ApplyScaleMode refits the attached view and the live decoder
func (m *Manager) ApplyScaleMode(mode domain.ScaleMode) error {
	var err error
	if m.view != nil {
		err = multierr.Append(err, m.view.SetScaleMode(mode))
	}
	if m.session != nil {
		err = multierr.Append(err, m.session.SetScaleMode(mode))
	}
	return err
}

// SetMuted forwards to the live decoder session, if any
func (m *Manager) SetMuted(muted bool) error {
	if m.session == nil {
		return nil
	}
	return m.session.SetMuted(muted)
}

// SetLooping forwards to the live decoder session, if any
func (m *Manager) SetLooping(looping bool) error {
	if m.session == nil {
		return nil
	}
	return m.session.SetLooping(looping)
}

// HandleEvent applies a surface or decoder notification. Stale events are dropped.
func (m *Manager) HandleEvent(ev Event) {
	if !m.current(ev) {
		m.logger.Debug("Dropping stale event",
			zap.Stringer("type", ev.Type),
			zap.Uint64("token", ev.Token))
		return
	}

	switch ev.Type {
	case EventSurfaceCreated:
		m.startSession(ev.Surface)

	case EventSurfaceDestroyed:
		m.logger.Info("Surface destroyed, releasing decoder", zap.String("path", m.path))
		m.releaseSession()

	case EventPrepared:
		if ev.Err != nil {
			m.decoderFailed(ev.Err)
			return
		}
		if err := m.session.OnPrepared(m.settings.Get()); err != nil {
			m.decoderFailed(err)
		}

	case EventCompleted:
		if err := m.session.OnCompleted(); err != nil {
			m.logger.Warn("Failed to handle end of stream", zap.Error(err))
		}

	case EventFailed:
		m.decoderFailed(ev.Err)
	}
}

func (m *Manager) current(ev Event) bool {
	switch ev.Type {
	case EventSurfaceCreated, EventSurfaceDestroyed:
		return m.viewToken != 0 && ev.Token == m.viewToken
	case EventPrepared, EventCompleted, EventFailed:
		return m.session != nil && ev.Token == m.session.Token()
	}
	return false
}

// Status returns a snapshot of the slot
func (m *Manager) Status() domain.Status {
	st := domain.Status{Phase: m.phase, Path: m.path, Kind: m.kind}
	if m.session != nil {
		st.Session = m.session.State()
	}
	return st
}

// Close removes the wallpaper and closes the display
func (m *Manager) Close() error {
	m.teardown()
	return m.display.Close()
}

func (m *Manager) startSession(surface domain.Surface) {
	// A new surface invalidates whatever was bound to the previous one
	m.releaseSession()

	s := session.New(m.logger, m.nextToken())
	m.session = s

	if err := s.Bind(m.decoders, surface, decoderListener{token: s.Token(), post: m.post}); err != nil {
		m.decoderFailed(err)
		return
	}
	if err := s.Prepare(m.path); err != nil {
		m.decoderFailed(err)
		return
	}

	m.logger.Info("Decoder session started",
		zap.Uint64("session", s.Token()),
		zap.Uint64("surface", surface.Handle()),
		zap.String("path", m.path))
}

// decoderFailed empties the slot and reports the media as unavailable
func (m *Manager) decoderFailed(err error) {
	path := m.path
	m.logger.Error("Video decoder failed", zap.String("path", path), zap.Error(err))
	m.teardown()

	merr := domain.NewDecoderFailure(path, err)
	m.notifier.Notify(domain.MediaUnavailable(path, merr))
}

func (m *Manager) releaseSession() {
	if m.session == nil {
		return
	}
	if err := m.session.Release(); err != nil {
		m.logger.Warn("Failed to release decoder", zap.Error(err))
	}
	m.session = nil
}

// teardown releases the session, then detaches and closes the view
func (m *Manager) teardown() {
	if m.view == nil && m.session == nil {
		m.resetSlot()
		return
	}

	m.setPhase(domain.PhaseTearingDown)
	m.releaseSession()

	if m.view != nil {
		if err := m.display.Detach(m.view); err != nil {
			m.logger.Warn("Failed to detach view", zap.Error(err))
		}
		if err := m.view.Close(); err != nil {
			m.logger.Warn("Failed to close view", zap.Error(err))
		}
		m.view = nil
	}

	m.resetSlot()
}

func (m *Manager) resetSlot() {
	m.viewToken = 0
	m.path = ""
	m.kind = ""
	m.setPhase(domain.PhaseIdle)
}

func (m *Manager) unavailable(path string, err error) error {
	var merr *domain.MediaError
	if !errors.As(err, &merr) {
		merr = domain.NewMediaUnavailable(path, err)
	}

	m.logger.Error("Wallpaper unavailable", zap.String("path", path), zap.Error(err))
	m.notifier.Notify(domain.MediaUnavailable(path, merr))
	return merr
}

func (m *Manager) nextToken() uint64 {
	m.tokens++
	return m.tokens
}

func (m *Manager) setPhase(p domain.Phase) {
	if m.phase == p {
		return
	}
	m.logger.Debug("Overlay phase", zap.String("from", string(m.phase)), zap.String("to", string(p)))
	m.phase = p
}
