package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/platform/logger"
)

type flushRecorder struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *flushRecorder) flush(ctx context.Context, sessionID string, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, seconds)
	return f.err
}

func (f *flushRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTrackerAccruesTime(t *testing.T) {
	tr := newTracker(10*time.Millisecond, time.Hour, 0, nil, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))

	waitFor(t, 2*time.Second, func() bool {
		snap, ok := tr.Snapshot("session_1")
		return ok && snap.TimeSpent >= 3
	})
}

func TestTrackerFlushes(t *testing.T) {
	rec := &flushRecorder{}
	tr := newTracker(5*time.Millisecond, 20*time.Millisecond, 0, rec.flush, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 2 })
}

func TestTrackerFlushFailureKeepsTicking(t *testing.T) {
	rec := &flushRecorder{err: errors.New("db down")}
	tr := newTracker(5*time.Millisecond, 20*time.Millisecond, 0, rec.flush, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 2 })
	if _, ok := tr.Snapshot("session_1"); !ok {
		t.Fatal("session dropped after flush failure")
	}
}

func TestTrackerReleaseStopsTimers(t *testing.T) {
	tr := newTracker(5*time.Millisecond, time.Hour, 0, nil, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))
	tr.Release("session_1")

	if _, ok := tr.Snapshot("session_1"); ok {
		t.Fatal("released session still tracked")
	}
	if tr.Active() != 0 {
		t.Fatalf("active = %d, want 0", tr.Active())
	}

	// A second release must not panic or block.
	tr.Release("session_1")
}

func TestTrackerRegisterTwiceIsNoop(t *testing.T) {
	tr := newTracker(time.Hour, time.Hour, 0, nil, logger.New("test"))
	defer tr.Stop()

	s := domain.NewSession("session_1", time.Now())
	tr.Register(s)
	tr.Register(s)

	if tr.Active() != 1 {
		t.Fatalf("active = %d, want 1", tr.Active())
	}
}

func TestTrackerIdleEviction(t *testing.T) {
	tr := newTracker(5*time.Millisecond, time.Hour, 20*time.Millisecond, nil, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))

	waitFor(t, 2*time.Second, func() bool { return tr.Active() == 0 })
}

func TestTrackerUpdateRefreshesIdleClock(t *testing.T) {
	tr := newTracker(5*time.Millisecond, time.Hour, 80*time.Millisecond, nil, logger.New("test"))
	defer tr.Stop()

	tr.Register(domain.NewSession("session_1", time.Now()))

	// Keep touching the session for a while; it must survive the idle TTL.
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		if _, ok, _ := tr.Update("session_1", func(s *domain.Session) error { return nil }); !ok {
			t.Fatal("touched session was evicted")
		}
	}
}

func TestTrackerStopDrainsAll(t *testing.T) {
	tr := newTracker(5*time.Millisecond, time.Hour, 0, nil, logger.New("test"))

	tr.Register(domain.NewSession("session_1", time.Now()))
	tr.Register(domain.NewSession("session_2", time.Now()))

	tr.Stop()
	if tr.Active() != 0 {
		t.Fatalf("active = %d, want 0", tr.Active())
	}
}

func TestTrackerUpdateUntrackedSession(t *testing.T) {
	tr := newTracker(time.Hour, time.Hour, 0, nil, logger.New("test"))
	defer tr.Stop()

	_, ok, err := tr.Update("session_missing", func(s *domain.Session) error { return nil })
	if ok || err != nil {
		t.Fatalf("ok = %v, err = %v; want untracked and nil", ok, err)
	}
}
