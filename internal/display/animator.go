package display

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// animator advances an image view through its frames on its own goroutine
type animator struct {
	logger *zap.Logger
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// startAnimator calls show(i) for each frame index in turn, sleeping delay(i) after each,
// until stopped
func startAnimator(logger *zap.Logger, n int, delay func(int) time.Duration, show func(int) error) *animator {
	a := &animator{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(a.done)

		timer := time.NewTimer(0)
		defer timer.Stop()

		i := 0
		for {
			select {
			case <-a.stop:
				return
			case <-timer.C:
			}

			if err := show(i); err != nil {
				a.logger.Warn("Failed to show animation frame", zap.Int("frame", i), zap.Error(err))
			}
			timer.Reset(delay(i))
			i = (i + 1) % n
		}
	}()

	return a
}

// Stop ends the animation and waits for the goroutine to exit
func (a *animator) Stop() {
	a.once.Do(func() { close(a.stop) })
	<-a.done
}
