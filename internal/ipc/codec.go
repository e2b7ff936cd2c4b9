package ipc

import (
	"errors"
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/engine"
	"github.com/godbus/dbus/v5"
)

const (
	// BusName is the well-known name owned by the daemon
	BusName = "io.github.genricoloni.Backdrop1"
	// ObjectPath is where the control object is exported
	ObjectPath dbus.ObjectPath = "/io/github/genricoloni/Backdrop"
	// Interface is the control interface name
	Interface = BusName
)

// D-Bus error names returned by the control object
const (
	ErrorMediaUnavailable = Interface + ".Error.MediaUnavailable"
	ErrorPermissionDenied = Interface + ".Error.PermissionDenied"
	ErrorDecoderFailure   = Interface + ".Error.DecoderFailure"
	ErrorNotRunning       = Interface + ".Error.NotRunning"
	ErrorInvalidArgs      = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrorFailed           = "org.freedesktop.DBus.Error.Failed"
)

var errorNames = []struct {
	name     string
	sentinel error
}{
	{ErrorMediaUnavailable, domain.ErrMediaUnavailable},
	{ErrorPermissionDenied, domain.ErrPermissionDenied},
	{ErrorDecoderFailure, domain.ErrDecoderFailure},
	{ErrorNotRunning, engine.ErrNotRunning},
}

// toDBusError names err after the first sentinel it matches
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	for _, e := range errorNames {
		if errors.Is(err, e.sentinel) {
			return dbus.NewError(e.name, []any{err.Error()})
		}
	}
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

func invalidArgs(err error) *dbus.Error {
	return dbus.NewError(ErrorInvalidArgs, []any{err.Error()})
}

// fromDBusError maps a named D-Bus error back to its sentinel
func fromDBusError(err error) error {
	var de dbus.Error
	if !errors.As(err, &de) {
		var pde *dbus.Error
		if !errors.As(err, &pde) {
			return err
		}
		de = *pde
	}

	msg := de.Error()
	for _, e := range errorNames {
		if de.Name == e.name {
			return fmt.Errorf("%w: %s", e.sentinel, msg)
		}
	}
	return errors.New(msg)
}

func encodeConfiguration(cfg domain.Configuration) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"MediaPath": dbus.MakeVariant(cfg.MediaPath),
		"Kind":      dbus.MakeVariant(string(cfg.Kind)),
		"Opacity":   dbus.MakeVariant(int32(cfg.Opacity)),
		"Muted":     dbus.MakeVariant(cfg.Muted),
		"Looping":   dbus.MakeVariant(cfg.Looping),
		"ScaleMode": dbus.MakeVariant(string(cfg.ScaleMode)),
	}
}

func decodeConfiguration(m map[string]dbus.Variant) (domain.Configuration, error) {
	var cfg domain.Configuration
	var kind, mode string
	var opacity int32

	if err := storeAll(m, map[string]any{
		"MediaPath": &cfg.MediaPath,
		"Kind":      &kind,
		"Opacity":   &opacity,
		"Muted":     &cfg.Muted,
		"Looping":   &cfg.Looping,
		"ScaleMode": &mode,
	}); err != nil {
		return cfg, err
	}

	cfg.Kind = domain.ParseKind(kind)
	cfg.Opacity = int(opacity)
	cfg.ScaleMode = domain.ScaleMode(mode)
	return cfg, nil
}

func encodeStatus(st domain.Status) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Phase":   dbus.MakeVariant(string(st.Phase)),
		"Path":    dbus.MakeVariant(st.Path),
		"Kind":    dbus.MakeVariant(string(st.Kind)),
		"Session": dbus.MakeVariant(string(st.Session)),
	}
}

func decodeStatus(m map[string]dbus.Variant) (domain.Status, error) {
	var st domain.Status
	var phase, kind, session string

	if err := storeAll(m, map[string]any{
		"Phase":   &phase,
		"Path":    &st.Path,
		"Kind":    &kind,
		"Session": &session,
	}); err != nil {
		return st, err
	}

	st.Phase = domain.Phase(phase)
	if kind != "" {
		st.Kind = domain.ParseKind(kind)
	}
	st.Session = domain.SessionState(session)
	return st, nil
}

// storeAll copies each present variant into its destination; missing keys are left zero
func storeAll(m map[string]dbus.Variant, dst map[string]any) error {
	for key, ptr := range dst {
		v, ok := m[key]
		if !ok {
			continue
		}
		if err := v.Store(ptr); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}
