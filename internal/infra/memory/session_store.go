package memory

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 32
)

// SessionStore is the in-memory implementation of app.SessionRepository:
// a process-wide registry of live sessions indexed by id and by join code.
// Construct one at server start and inject it; nothing else holds session
// references.
type SessionStore struct {
	questionTime time.Duration
	scoring      app.ScoringConfig
	rnd          *rand.Rand

	mu     sync.RWMutex
	byID   map[string]*app.Session
	byCode map[string]string // uppercase code -> session id
}

func NewSessionStore(questionTime time.Duration, scoring app.ScoringConfig) *SessionStore {
	return &SessionStore{
		questionTime: questionTime,
		scoring:      scoring,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		byID:         make(map[string]*app.Session),
		byCode:       make(map[string]string),
	}
}

// Create registers a new waiting session with a join code unique among the
// currently non-finished sessions. Codes of finished sessions are
// reclaimed rather than treated as collisions.
func (s *SessionStore) Create(quiz domain.Quiz, adminID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}
	session := app.NewSession(uuid.NewString(), code, adminID, quiz, s.questionTime, s.scoring)
	s.byID[session.ID()] = session
	s.byCode[code] = session.ID()
	return session, nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[sessionID]
	return session, ok
}

// GetByCode looks a session up by join code, case-insensitively. Finished
// sessions are not reachable by code.
func (s *SessionStore) GetByCode(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, false
	}
	session, ok := s.byID[id]
	if !ok || session.Finished() {
		return nil, false
	}
	return session, true
}

// EvictIdle drops finished sessions and sessions untouched for longer than
// ttl. Returns how many were removed. Meant to run on a ticker.
func (s *SessionStore) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, session := range s.byID {
		if !session.Finished() && !session.IdleSince().Before(cutoff) {
			continue
		}
		delete(s.byID, id)
		// The code may have been reclaimed by a newer session already.
		if current, ok := s.byCode[session.Code()]; ok && current == id {
			delete(s.byCode, session.Code())
		}
		evicted++
	}
	return evicted
}

// Len reports the number of registered sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// IDs lists every registered session id.
func (s *SessionStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	return ids
}

func (s *SessionStore) uniqueCodeLocked() (string, error) {
	for try := 0; try < maxCodeTries; try++ {
		code := s.randomCodeLocked()
		id, taken := s.byCode[code]
		if !taken {
			return code, nil
		}
		// Reclaim codes whose sessions already finished.
		if session, ok := s.byID[id]; !ok || session.Finished() {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique join code after %d tries", maxCodeTries)
}

func (s *SessionStore) randomCodeLocked() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(b)
}
