package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMediaUnavailable covers missing, unreadable or corrupt media
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrPermissionDenied is returned when the overlay or storage cannot be accessed
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDecoderFailure is an asynchronous video preparation error
	ErrDecoderFailure = errors.New("decoder failure")
)

// MediaError reports why a wallpaper could not be shown.
// It matches both its Reason (one of the sentinels above) and the underlying cause.
type MediaError struct {
	Path   string
	Reason error
	Err    error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Reason, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Reason, e.Path, e.Err)
}

func (e *MediaError) Unwrap() []error {
	return []error{e.Reason, e.Err}
}

// NewMediaUnavailable wraps err as an ErrMediaUnavailable for path
func NewMediaUnavailable(path string, err error) *MediaError {
	return &MediaError{Path: path, Reason: ErrMediaUnavailable, Err: err}
}

// NewDecoderFailure wraps err as an ErrDecoderFailure for path
func NewDecoderFailure(path string, err error) *MediaError {
	return &MediaError{Path: path, Reason: ErrDecoderFailure, Err: err}
}
