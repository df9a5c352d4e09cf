package ingest

import (
	"errors"
	"testing"
	"time"
)

func TestLimiter_AcquireRelease(t *testing.T) {
	l := newLimiter(2)

	if err := l.acquire(time.Millisecond); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.acquire(time.Millisecond); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if got := l.active(); got != 2 {
		t.Errorf("active() = %d, want 2", got)
	}

	if err := l.acquire(10 * time.Millisecond); !errors.Is(err, ErrTooManyIngestions) {
		t.Errorf("third acquire error = %v, want ErrTooManyIngestions", err)
	}

	l.release()
	if got := l.active(); got != 1 {
		t.Errorf("active() after release = %d, want 1", got)
	}
	if err := l.acquire(time.Millisecond); err != nil {
		t.Errorf("acquire after release: %v", err)
	}
}

func TestLimiter_WaitForSlot(t *testing.T) {
	l := newLimiter(1)
	if err := l.acquire(time.Millisecond); err != nil {
		t.Fatal(err)
	}

	// Free the slot shortly; the waiter should get it within its window.
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.release()
	}()

	if err := l.acquire(time.Second); err != nil {
		t.Errorf("acquire with waiting = %v, want nil", err)
	}
}

func TestLimiter_ReleaseWithoutAcquire(t *testing.T) {
	l := newLimiter(1)
	// Must not block or panic.
	l.release()
	if got := l.active(); got != 0 {
		t.Errorf("active() = %d, want 0", got)
	}
}
