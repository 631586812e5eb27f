package service

import (
	"context"
	"sync"
	"time"

	"leadfunnel_backend/internal/funnel/domain"
	"leadfunnel_backend/platform/logger"
)

// FlushFunc persists a session's dwell time. Called from the tracker's
// background loop; failures are the callee's problem to log.
type FlushFunc func(ctx context.Context, sessionID string, seconds int) error

// Tracker keeps active wizard sessions in memory and owns their timers: a
// per-second dwell-time tick and a periodic persistence flush. Both timers are
// scoped to the session's registration; Release or Stop always reclaims them.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession

	tickInterval  time.Duration
	flushInterval time.Duration
	idleTTL       time.Duration
	flush         FlushFunc
	log           *logger.Logger
}

type trackedSession struct {
	mu        sync.Mutex
	session   *domain.Session
	lastTouch time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewTracker creates a tracker with production intervals: 1s dwell ticks and
// 30s autosave flushes.
func NewTracker(idleTTL time.Duration, flush FlushFunc, log *logger.Logger) *Tracker {
	return newTracker(time.Second, 30*time.Second, idleTTL, flush, log)
}

func newTracker(tick, flushEvery, idleTTL time.Duration, flush FlushFunc, log *logger.Logger) *Tracker {
	return &Tracker{
		sessions:      make(map[string]*trackedSession),
		tickInterval:  tick,
		flushInterval: flushEvery,
		idleTTL:       idleTTL,
		flush:         flush,
		log:           log,
	}
}

// Register starts tracking a session. Registering an already-tracked ID is a
// no-op; the existing timers keep running.
func (t *Tracker) Register(s *domain.Session) {
	t.mu.Lock()
	if _, exists := t.sessions[s.SessionID]; exists {
		t.mu.Unlock()
		return
	}
	ts := &trackedSession{
		session:   s,
		lastTouch: time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	t.sessions[s.SessionID] = ts
	t.mu.Unlock()

	go t.run(ts)
}

func (t *Tracker) run(ts *trackedSession) {
	defer close(ts.done)

	tick := time.NewTicker(t.tickInterval)
	defer tick.Stop()
	flush := time.NewTicker(t.flushInterval)
	defer flush.Stop()

	for {
		select {
		case <-ts.stop:
			return
		case <-tick.C:
			ts.mu.Lock()
			ts.session.TimeSpent++
			idle := t.idleTTL > 0 && time.Since(ts.lastTouch) > t.idleTTL
			id := ts.session.SessionID
			ts.mu.Unlock()
			if idle {
				// Self-eviction: drop the map entry and exit the loop
				// directly instead of calling Release, which would wait
				// on this goroutine's own done channel.
				t.mu.Lock()
				delete(t.sessions, id)
				t.mu.Unlock()
				t.log.Info("session_idle_evicted", "session_id", id)
				return
			}
		case <-flush.C:
			ts.mu.Lock()
			id := ts.session.SessionID
			seconds := ts.session.TimeSpent
			ts.mu.Unlock()
			if t.flush == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := t.flush(ctx, id, seconds); err != nil {
				t.log.SessionSaveFailed(id, err)
			}
			cancel()
		}
	}
}

// Snapshot returns a copy of the tracked session, if present.
func (t *Tracker) Snapshot(sessionID string) (domain.Session, bool) {
	t.mu.RLock()
	ts, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return domain.Session{}, false
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return *ts.session, true
}

// Update runs fn against the tracked session under its lock and refreshes the
// idle clock. Returns false if the session is not tracked.
func (t *Tracker) Update(sessionID string, fn func(*domain.Session) error) (domain.Session, bool, error) {
	t.mu.RLock()
	ts, ok := t.sessions[sessionID]
	t.mu.RUnlock()
	if !ok {
		return domain.Session{}, false, nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.lastTouch = time.Now()
	if err := fn(ts.session); err != nil {
		return *ts.session, true, err
	}
	return *ts.session, true, nil
}

// Release stops the session's timers and forgets it. Safe to call twice.
func (t *Tracker) Release(sessionID string) {
	t.mu.Lock()
	ts, ok := t.sessions[sessionID]
	if ok {
		delete(t.sessions, sessionID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	close(ts.stop)
	<-ts.done
}

// Stop releases every tracked session. Called on shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	all := make([]*trackedSession, 0, len(t.sessions))
	for id, ts := range t.sessions {
		all = append(all, ts)
		delete(t.sessions, id)
	}
	t.mu.Unlock()

	for _, ts := range all {
		close(ts.stop)
		<-ts.done
	}
}

// Active returns the number of tracked sessions.
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
