// Package decoder plays video wallpapers with an mpv process controlled over its JSON IPC socket.
package decoder

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/genricoloni/backdrop/internal/domain"
)

// eofObserverID identifies the eof-reached property observer
const eofObserverID = 1

// request is one line sent to mpv
type request struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id,omitempty"`
}

// message is one line received from mpv: either an event or a command reply
type message struct {
	Event     string          `json:"event,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	FileError string          `json:"file_error,omitempty"`
	ID        int             `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID int             `json:"request_id,omitempty"`
}

// signal is what a message means for the session
type signal int

const (
	signalNone signal = iota
	signalLoaded
	signalLoadFailed
	signalEOF
)

func parseMessage(line []byte) (message, error) {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		return message{}, fmt.Errorf("invalid mpv message: %w", err)
	}
	return msg, nil
}

// classify maps an mpv message to a session signal
func classify(msg message) (signal, error) {
	switch msg.Event {
	case "file-loaded":
		return signalLoaded, nil

	case "end-file":
		if msg.Reason != "error" {
			return signalNone, nil
		}
		reason := msg.FileError
		if reason == "" {
			reason = "unknown error"
		}
		return signalLoadFailed, errors.New(reason)

	case "property-change":
		if msg.ID != eofObserverID || msg.Name != "eof-reached" {
			return signalNone, nil
		}
		var reached bool
		if err := json.Unmarshal(msg.Data, &reached); err != nil || !reached {
			return signalNone, nil
		}
		return signalEOF, nil
	}
	return signalNone, nil
}

// Commands

func observeEOF() []any {
	return []any{"observe_property", eofObserverID, "eof-reached"}
}

func loadFile(path string) []any {
	return []any{"loadfile", path, "replace"}
}

func setPause(paused bool) []any {
	return []any{"set_property", "pause", paused}
}

func seekStart() []any {
	return []any{"seek", 0, "absolute"}
}

// setVolume maps [0,1] to mpv's percent volume
func setVolume(v float64) []any {
	v = min(max(v, 0), 1)
	return []any{"set_property", "volume", v * 100}
}

func setLoop(looping bool) []any {
	value := "no"
	if looping {
		value = "inf"
	}
	return []any{"set_property", "loop-file", value}
}

// scaleCommands fills the surface for center (cropping), or stretches it.
// Video has no tile mode; it is shown like center.
func scaleCommands(mode domain.ScaleMode) [][]any {
	if mode == domain.ScaleStretch {
		return [][]any{
			{"set_property", "keepaspect", false},
			{"set_property", "panscan", 0.0},
		}
	}
	return [][]any{
		{"set_property", "keepaspect", true},
		{"set_property", "panscan", 1.0},
	}
}

// playerArgs builds the mpv command line for surface handle and socket
func playerArgs(handle uint64, socket string) []string {
	args := []string{
		"--idle=yes",
		"--keep-open=yes",
		"--pause",
		"--no-terminal",
		"--no-osc",
		"--no-input-default-bindings",
		"--input-ipc-server=" + socket,
	}
	if handle == 0 {
		return append(args, "--vo=null")
	}
	return append(args, fmt.Sprintf("--wid=%d", handle))
}
