package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/filestage"
	"github.com/vango-dev/filestage/pkg/middleware"
	"github.com/vango-dev/filestage/pkg/toast"
)

// Session is one hosted stager and its change feed.
type Session struct {
	ID      string
	Created time.Time

	stager *filestage.Stager
	feed   *feed

	mu         sync.Mutex
	lastActive time.Time
}

// Stager returns the session's stager.
func (s *Session) Stager() *filestage.Stager {
	return s.stager
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

// sessionManager owns every live session and sweeps idle ones.
type sessionManager struct {
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *middleware.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session

	done        chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
}

func newSessionManager(ttl, interval time.Duration, logger *slog.Logger, metrics *middleware.Metrics) *sessionManager {
	sm := &sessionManager{
		ttl:         ttl,
		interval:    interval,
		logger:      logger,
		metrics:     metrics,
		sessions:    make(map[string]*Session),
		done:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// create builds a session around the stager returned by build. build
// receives the session's feed so the stager can publish to it.
func (sm *sessionManager) create(build func(id string, f *feed) (*filestage.Stager, error)) (*Session, error) {
	id := uuid.NewString()
	f := newFeed(sm.logger.With("session", id), sm.metrics)

	stager, err := build(id, f)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:         id,
		Created:    now,
		stager:     stager,
		feed:       f,
		lastActive: now,
	}

	sm.mu.Lock()
	sm.sessions[id] = sess
	sm.mu.Unlock()

	sm.metrics.SessionOpened()
	sm.logger.Info("session created", "session", id)
	return sess, nil
}

// get returns the session and marks it active.
func (sm *sessionManager) get(id string) (*Session, bool) {
	sm.mu.RLock()
	sess, ok := sm.sessions[id]
	sm.mu.RUnlock()
	if ok {
		sess.touch(time.Now())
	}
	return sess, ok
}

// close removes and tears down the session. It reports whether the
// session existed.
func (sm *sessionManager) close(ctx context.Context, id string) bool {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if ok {
		sm.teardown(ctx, sess, "")
	}
	return ok
}

// teardown closes the session's stager and feed. A non-empty notice is
// shown to subscribers as a warning toast before the feed closes.
func (sm *sessionManager) teardown(ctx context.Context, sess *Session, notice string) {
	sess.stager.Close(ctx)
	if notice != "" {
		toast.Warning(sess.feed, notice)
	}
	sess.feed.Emit(EventClosed, map[string]string{"session": sess.ID})
	sess.feed.close()
	sm.metrics.SessionClosed()
	sm.logger.Info("session closed", "session", sess.ID)
}

func (sm *sessionManager) count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// cleanupLoop periodically removes idle sessions.
func (sm *sessionManager) cleanupLoop() {
	defer close(sm.cleanupDone)

	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			sm.cleanupExpired(now)
		case <-sm.done:
			return
		}
	}
}

// cleanupExpired closes sessions idle for longer than the TTL.
func (sm *sessionManager) cleanupExpired(now time.Time) int {
	sm.mu.Lock()
	var expired []*Session
	for id, sess := range sm.sessions {
		if sess.idleSince(now) > sm.ttl {
			expired = append(expired, sess)
			delete(sm.sessions, id)
		}
	}
	remaining := len(sm.sessions)
	sm.mu.Unlock()

	for _, sess := range expired {
		sm.teardown(context.Background(), sess, "Session expired after inactivity; staged files were discarded")
	}

	if len(expired) > 0 {
		sm.logger.Info("cleaned up idle sessions",
			"count", len(expired),
			"remaining", remaining)
	}
	return len(expired)
}

// shutdown stops the janitor and closes every session.
func (sm *sessionManager) shutdown(ctx context.Context) {
	sm.stopOnce.Do(func() {
		close(sm.done)
	})
	<-sm.cleanupDone

	sm.mu.Lock()
	all := make([]*Session, 0, len(sm.sessions))
	for id, sess := range sm.sessions {
		all = append(all, sess)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()

	for _, sess := range all {
		sm.teardown(ctx, sess, "Server is shutting down; staged files were discarded")
	}
}
