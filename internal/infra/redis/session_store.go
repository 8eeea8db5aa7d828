package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"spelling-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions themselves stay in process; their controller and subscribers
//     cannot be shared across instances.
//   - Redis only carries a liveness marker per session, refreshed on access, so
//     operators can count live sessions across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string, create func() (*app.Session, error)) (*app.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		s.touch(sessionID)
		return session, false, nil
	}
	session, err := create()
	if err != nil {
		return nil, false, err
	}
	s.sessions[sessionID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return session, true, nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		s.touch(sessionID)
	}
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok || !session.RetireIfIdle() {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	session.Close()
}

func (s *SessionStore) touch(sessionID string) {
	if s.ttl <= 0 {
		return
	}
	_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "spelling:session:" + sessionID
}
