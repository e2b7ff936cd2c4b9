package library

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/genricoloni/backdrop/internal/classifier"
	"github.com/genricoloni/backdrop/internal/domain"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last change before a rescan
const DefaultDebounce = 500 * time.Millisecond

// Watcher rescans the library roots when media files appear or disappear
type Watcher struct {
	logger   *zap.Logger
	scanner  *Scanner
	dirs     []string
	debounce time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher watches the configured library roots
func NewWatcher(cfg domain.Config, scanner *Scanner, logger *zap.Logger) *Watcher {
	return &Watcher{
		logger:   logger,
		scanner:  scanner,
		dirs:     cfg.GetLibraryDirs(),
		debounce: DefaultDebounce,
	}
}

// Start begins watching. It returns immediately; missing roots are skipped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := 0
	for _, dir := range uniqueRoots(w.dirs) {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("Cannot watch library root", zap.String("dir", dir), zap.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		w.logger.Info("No library roots to watch")
		return fw.Close()
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.runLoop(loopCtx, fw)

	w.logger.Info("Library watcher started", zap.Int("roots", watched))
	return nil
}

// runLoop waits for a quiet period after the last relevant change, then rescans once
func (w *Watcher) runLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.done)
	defer fw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Library watcher stopped")
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("Library changed, debouncing...",
				zap.String("path", ev.Name),
				zap.String("op", ev.Op.String()))
			pending = true
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Library watcher error", zap.Error(err))

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if _, err := w.scanner.Scan(ctx, w.dirs...); err != nil {
				w.logger.Warn("Library rescan failed", zap.Error(err))
			}
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return classifier.IsSupported(ev.Name)
}

// Stop ends the watch loop
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
