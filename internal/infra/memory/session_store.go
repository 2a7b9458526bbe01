package memory

import (
	"context"
	"sync"
	"time"

	"evolv/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions are dropped lazily once their TTL has passed.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

type storedSession struct {
	session   domain.QuizSession
	attempts  map[int64]int
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*storedSession),
	}
}

func (s *SessionStore) Save(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	stored := &storedSession{session: session, attempts: make(map[int64]int)}
	if s.ttl > 0 {
		stored.expiresAt = s.clock().Add(s.ttl)
	}
	s.sessions[session.ID] = stored
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.live(sessionID)
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return stored.session, nil
}

func (s *SessionStore) RecordAttempt(_ context.Context, sessionID string, quizID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.live(sessionID)
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	stored.attempts[quizID]++
	return stored.attempts[quizID], nil
}

func (s *SessionStore) live(sessionID string) (*storedSession, bool) {
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if !stored.expiresAt.IsZero() && !stored.expiresAt.After(s.clock()) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	return stored, true
}

func (s *SessionStore) evictExpired() {
	now := s.clock()
	for id, stored := range s.sessions {
		if !stored.expiresAt.IsZero() && !stored.expiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
}
