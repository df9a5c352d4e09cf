package ingest

import (
	"errors"
	"time"
)

// ErrTooManyIngestions is returned when no ingestion slot frees up within
// the configured wait time.
var ErrTooManyIngestions = errors.New("too many concurrent ingestions")

// limiter bounds concurrent ingestions with a semaphore. Waiting callers
// are admitted in roughly FIFO order as slots free up.
type limiter struct {
	slots chan struct{}
}

func newLimiter(n int) *limiter {
	return &limiter{slots: make(chan struct{}, n)}
}

// acquire blocks until a slot is free or the wait time elapses.
func (l *limiter) acquire(wait time.Duration) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrTooManyIngestions
	}
}

func (l *limiter) release() {
	select {
	case <-l.slots:
	default:
	}
}

// active returns the number of held slots.
func (l *limiter) active() int {
	return len(l.slots)
}
