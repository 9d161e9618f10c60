package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Session state itself stays in process memory (the live question flow,
//     timers, and subscriber channels are process-local by design), so this
//     wraps the in-memory registry.
//   - Redis carries liveness markers and the code -> session-id mapping,
//     which makes active join codes observable to operators and could be
//     extended to route joins across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionStore
}

func NewSessionStore(client *redis.Client, ttl time.Duration, questionTime time.Duration, scoring app.ScoringConfig) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionStore(questionTime, scoring),
	}
}

func (s *SessionStore) Create(quiz domain.Quiz, adminID string) (*app.Session, error) {
	session, err := s.local.Create(quiz, adminID)
	if err != nil {
		return nil, err
	}
	// best-effort liveness markers
	ctx := context.Background()
	_ = s.client.Set(ctx, s.sessionKey(session.ID()), session.Code(), s.ttl).Err()
	_ = s.client.Set(ctx, s.codeKey(session.Code()), session.ID(), s.ttl).Err()
	return session, nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	return s.local.Get(sessionID)
}

func (s *SessionStore) GetByCode(code string) (*app.Session, bool) {
	return s.local.GetByCode(code)
}

// EvictIdle sweeps the local registry and clears the Redis markers of
// whatever was dropped.
func (s *SessionStore) EvictIdle(ttl time.Duration) int {
	before := s.localSessions()
	evicted := s.local.EvictIdle(ttl)
	if evicted == 0 {
		return 0
	}
	ctx := context.Background()
	for id, code := range before {
		if _, still := s.local.Get(id); still {
			continue
		}
		_ = s.client.Del(ctx, s.sessionKey(id)).Err()
		// A newer session may have reclaimed the code.
		if _, taken := s.local.GetByCode(code); !taken {
			_ = s.client.Del(ctx, s.codeKey(code)).Err()
		}
	}
	return evicted
}

func (s *SessionStore) localSessions() map[string]string {
	out := make(map[string]string)
	for _, id := range s.local.IDs() {
		if session, ok := s.local.Get(id); ok {
			out[id] = session.Code()
		}
	}
	return out
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "live:session:" + sessionID
}

func (s *SessionStore) codeKey(code string) string {
	return "live:code:" + code
}
