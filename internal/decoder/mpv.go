//go:build !windows
// +build !windows

package decoder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

const (
	// queueSize bounds commands waiting for the IPC connection
	queueSize = 64

	dialTimeout  = 5 * time.Second
	dialInterval = 50 * time.Millisecond
)

var (
	errReleased  = errors.New("decoder released")
	errQueueFull = errors.New("decoder command queue is full")
)

// Factory starts one mpv process per decoder
type Factory struct {
	logger *zap.Logger
	player string

	once   sync.Once
	binary string
	err    error
	seq    atomic.Uint64
}

// NewFactory creates a decoder factory for the configured player binary
func NewFactory(cfg domain.Config, logger *zap.Logger) *Factory {
	return &Factory{
		logger: logger,
		player: cfg.GetPlayerBinary(),
	}
}

// lookup resolves the player binary on first use
func (f *Factory) lookup() (string, error) {
	f.once.Do(func() {
		f.binary, f.err = exec.LookPath(f.player)
		if f.err != nil {
			f.logger.Error("Video player not found", zap.String("player", f.player), zap.Error(f.err))
			return
		}
		f.logger.Info("Video player detected", zap.String("binary", f.binary))
	})
	return f.binary, f.err
}

func socketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// NewDecoder spawns the player for surface. It does not wait for the player to come up.
func (f *Factory) NewDecoder(surface domain.Surface, listener domain.DecoderListener) (domain.Decoder, error) {
	binary, err := f.lookup()
	if err != nil {
		return nil, fmt.Errorf("video player unavailable: %w", err)
	}

	socket := filepath.Join(socketDir(), fmt.Sprintf("backdrop-mpv-%d-%d.sock", os.Getpid(), f.seq.Add(1)))
	logger := f.logger.With(zap.Uint64("surface", surface.Handle()))

	cmd := exec.Command(binary, playerArgs(surface.Handle(), socket)...)
	stderr := &zapio.Writer{Log: logger.Named("mpv"), Level: zap.DebugLevel}
	cmd.Stdout = stderr
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	d := newMpv(logger, listener, cmd, socket, stderr)
	logger.Debug("Video player started", zap.Int("pid", cmd.Process.Pid), zap.String("socket", socket))
	return d, nil
}

// newMpv takes over a started player process listening on socket
func newMpv(logger *zap.Logger, listener domain.DecoderListener, cmd *exec.Cmd, socket string, log *zapio.Writer) *Mpv {
	d := &Mpv{
		logger:   logger,
		listener: listener,
		cmd:      cmd,
		socket:   socket,
		log:      log,
		queue:    make(chan []any, queueSize),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	d.queue <- observeEOF()

	go d.wait()
	go d.run()
	return d
}

// Mpv controls one mpv process. Every method only queues a command.
type Mpv struct {
	logger   *zap.Logger
	listener domain.DecoderListener
	cmd      *exec.Cmd
	socket   string
	log      *zapio.Writer

	queue  chan []any
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu        sync.Mutex
	released  bool
	preparing bool
	loaded    bool
	failed    bool
	broken    error
	conn      net.Conn
}

func (d *Mpv) wait() {
	err := d.cmd.Wait()
	close(d.exited)

	d.mu.Lock()
	released := d.released
	d.mu.Unlock()
	if !released {
		d.fail(fmt.Errorf("video player exited: %v", err))
	}
}

// run connects to the IPC socket and writes queued commands in order
func (d *Mpv) run() {
	conn, err := d.dial()
	if err != nil {
		d.fail(err)
		return
	}

	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		conn.Close()
		return
	}
	d.conn = conn
	d.mu.Unlock()

	go d.read(conn)

	enc := json.NewEncoder(conn)
	id := 0
	for {
		select {
		case <-d.quit:
			return
		case args := <-d.queue:
			id++
			if err := enc.Encode(request{Command: args, RequestID: id}); err != nil {
				d.fail(fmt.Errorf("failed to send %v: %w", args[0], err))
				return
			}
		}
	}
}

// dial waits for the player to create its socket
func (d *Mpv) dial() (net.Conn, error) {
	deadline := time.Now().Add(dialTimeout)
	for {
		conn, err := net.Dial("unix", d.socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("video player IPC unavailable: %w", err)
		}

		select {
		case <-d.quit:
			return nil, errReleased
		case <-d.exited:
			return nil, errors.New("video player exited before accepting commands")
		case <-time.After(dialInterval):
		}
	}
}

// read turns player events into listener calls
func (d *Mpv) read(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		msg, err := parseMessage(scanner.Bytes())
		if err != nil {
			d.logger.Debug("Ignoring player message", zap.Error(err))
			continue
		}
		if msg.Error != "" && msg.Error != "success" {
			d.logger.Debug("Player rejected command", zap.Int("request", msg.RequestID), zap.String("error", msg.Error))
			continue
		}

		sig, err := classify(msg)
		switch sig {
		case signalLoaded:
			d.prepared(nil)
		case signalLoadFailed:
			d.fail(err)
		case signalEOF:
			d.completed()
		}
	}

	if err := scanner.Err(); err != nil {
		d.fail(fmt.Errorf("video player IPC failed: %w", err))
		return
	}
	d.fail(errors.New("video player closed the IPC connection"))
}

// prepared reports the pending preparation result once. It returns false when none was pending.
func (d *Mpv) prepared(err error) bool {
	d.mu.Lock()
	if d.released || !d.preparing {
		d.mu.Unlock()
		return false
	}
	d.preparing = false
	d.loaded = err == nil
	d.mu.Unlock()

	d.listener.Prepared(err)
	return true
}

func (d *Mpv) completed() {
	d.mu.Lock()
	released := d.released
	d.mu.Unlock()

	if !released {
		d.listener.Completed()
	}
}

// fail reports err as the pending preparation result. After a successful preparation it is
// reported once through Failed. Before any Prepare it is kept for the next Prepare.
func (d *Mpv) fail(err error) {
	if errors.Is(err, errReleased) {
		return
	}

	d.mu.Lock()
	if d.broken == nil {
		d.broken = err
	}
	d.mu.Unlock()

	if d.prepared(err) {
		return
	}

	d.mu.Lock()
	report := !d.released && d.loaded && !d.failed
	if report {
		d.failed = true
	}
	d.mu.Unlock()
	if !report {
		return
	}

	d.logger.Error("Video player failed during playback", zap.Error(err))
	d.listener.Failed(err)
}

func (d *Mpv) send(cmds ...[]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return errReleased
	}

	for _, c := range cmds {
		select {
		case d.queue <- c:
		default:
			return errQueueFull
		}
	}
	return nil
}

// Prepare loads path. A player that already failed reports the failure asynchronously.
func (d *Mpv) Prepare(path string) error {
	d.mu.Lock()
	d.preparing = true
	broken := d.broken
	d.mu.Unlock()

	if broken != nil {
		go d.prepared(broken)
		return nil
	}
	return d.send(loadFile(path))
}

func (d *Mpv) Start() error {
	return d.send(setPause(false))
}

func (d *Mpv) Stop() error {
	return d.send(setPause(true))
}

func (d *Mpv) Replay() error {
	return d.send(seekStart(), setPause(false))
}

func (d *Mpv) SetVolume(v float64) error {
	return d.send(setVolume(v))
}

func (d *Mpv) SetLooping(looping bool) error {
	return d.send(setLoop(looping))
}

func (d *Mpv) SetScaleMode(mode domain.ScaleMode) error {
	return d.send(scaleCommands(mode)...)
}

// Release stops the player. No listener call is made afterwards.
func (d *Mpv) Release() error {
	var err error
	d.once.Do(func() {
		d.mu.Lock()
		d.released = true
		conn := d.conn
		d.mu.Unlock()

		close(d.quit)
		if conn != nil {
			err = multierr.Append(err, conn.Close())
		}
		if perr := d.cmd.Process.Kill(); perr != nil && !errors.Is(perr, os.ErrProcessDone) {
			err = multierr.Append(err, perr)
		}
		<-d.exited

		if rerr := os.Remove(d.socket); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = multierr.Append(err, rerr)
		}
		d.log.Close()
		d.logger.Debug("Video player released")
	})
	return err
}
