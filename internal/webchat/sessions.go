package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/medspa-demo-receptionist/internal/chat"
	"github.com/wolfman30/medspa-demo-receptionist/internal/observability/metrics"
	"github.com/wolfman30/medspa-demo-receptionist/pkg/logging"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("webchat: session not found")

// MachineFactory builds the state machine for a new session.
type MachineFactory func(sessionID string) *chat.Machine

type session struct {
	machine  *chat.Machine
	lastSeen time.Time
}

// SessionStore keeps demo conversations in memory. Idle sessions expire
// after ttl; when the store is full the least recently used one is evicted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  MachineFactory
	ttl      time.Duration
	max      int
	now      func() time.Time
	metrics  *metrics.DemoMetrics
	logger   *logging.Logger
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithStoreClock overrides time.Now for expiry checks.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreMetrics reports the live session count.
func WithStoreMetrics(m *metrics.DemoMetrics) StoreOption {
	return func(s *SessionStore) { s.metrics = m }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *logging.Logger) StoreOption {
	return func(s *SessionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSessionStore creates a store. Zero ttl or max disables that limit.
func NewSessionStore(factory MachineFactory, ttl time.Duration, max int, opts ...StoreOption) *SessionStore {
	if factory == nil {
		factory = func(id string) *chat.Machine { return chat.New(chat.WithSessionID(id)) }
	}
	s := &SessionStore{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new conversation and returns its id.
func (s *SessionStore) Create() (string, *chat.Machine) {
	id := generateSessionID()
	machine := s.factory(id)

	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	if s.max > 0 && len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	s.sessions[id] = &session{machine: machine, lastSeen: now}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetActiveSessions(count)
	s.logger.Debug("webchat: session created", "session_id", id, "active", count)
	return id, machine
}

// Get returns the machine for id and refreshes its expiry.
func (s *SessionStore) Get(id string) (*chat.Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		s.metrics.SetActiveSessions(len(s.sessions))
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = now
	return sess.machine, nil
}

// Delete drops a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	if ok {
		s.metrics.SetActiveSessions(count)
	}
	return ok
}

// Len reports the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	removed := s.sweepLocked(s.now())
	count := len(s.sessions)
	s.mu.Unlock()
	if removed > 0 {
		s.metrics.SetActiveSessions(count)
		s.logger.Debug("webchat: expired sessions removed", "removed", removed, "active", count)
	}
	return removed
}

// RunJanitor sweeps on every tick until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
		s.logger.Info("webchat: session evicted at capacity", "session_id", oldestID)
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
