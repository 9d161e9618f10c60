package app

import (
	"context"
	"time"

	"livequiz-service/internal/domain"
)

// SessionRepository abstracts how live sessions are registered (in-memory,
// Redis-backed, etc). Implementations own id and join-code generation and
// must keep codes unique among non-finished sessions.
type SessionRepository interface {
	Create(quiz domain.Quiz, adminID string) (*Session, error)
	Get(sessionID string) (*Session, bool)
	GetByCode(code string) (*Session, bool)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Policy carries the configurable behaviors the live session core must not
// hardcode: the empty-room start override and the disconnect handling.
type Policy struct {
	// AllowEmptyStart lets an admin start a session with zero roster
	// entries without passing the explicit force flag. Kept because
	// participants can be live on the transport before the roster
	// reflects them.
	AllowEmptyStart bool
	// RemoveOnDisconnect drops a participant from the roster when their
	// connection closes. Off by default: identity survives reconnects.
	RemoveOnDisconnect bool
	// QuestionTime is the countdown used when the quiz does not set one.
	QuestionTime time.Duration
	// Scoring tunes the points curve.
	Scoring ScoringConfig
}

// LiveService orchestrates the live-session use cases. It is the only
// mutator of session state; transports and stores never touch a session's
// internals directly.
type LiveService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	policy   Policy
}

func NewLiveService(sessions SessionRepository, quizzes QuizRepository, policy Policy) *LiveService {
	if policy.QuestionTime <= 0 {
		policy.QuestionTime = 20 * time.Second
	}
	return &LiveService{sessions: sessions, quizzes: quizzes, policy: policy}
}

// Policy exposes the configured behavior, mainly for transports deciding
// what to do on disconnect.
func (s *LiveService) Policy() Policy { return s.policy }

// CreateSession snapshots the quiz and registers a new waiting session.
func (s *LiveService) CreateSession(ctx context.Context, quizID, adminID string) (domain.SessionSnapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	session, err := s.sessions.Create(quiz, adminID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.snapshot(), nil
}

// Join adds a participant to the session matching the code. Codes are
// case-insensitive; joining is rejected once the session has started.
func (s *LiveService) Join(code, name string) (string, domain.Participant, error) {
	session, ok := s.sessions.GetByCode(code)
	if !ok {
		return "", domain.Participant{}, domain.ErrSessionNotFound
	}
	p, err := session.join(name)
	if err != nil {
		return "", domain.Participant{}, err
	}
	return session.id, p, nil
}

// Rejoin re-associates a returning client with its logical participant.
func (s *LiveService) Rejoin(sessionID, participantID string) (domain.Participant, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Participant{}, domain.ErrSessionNotFound
	}
	return session.rejoin(participantID)
}

// Leave removes a participant from the roster. Idempotent: leaving an
// unknown session or an already-absent participant is a no-op.
func (s *LiveService) Leave(sessionID, participantID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.leave(participantID)
}

// Start transitions waiting -> active. Only the owning admin may start;
// the zero-participant case follows Policy unless force is set.
func (s *LiveService) Start(sessionID, adminID string, force bool) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.start(adminID, force, s.policy.AllowEmptyStart)
}

// ShowQuestion pushes question index to all clients and starts the
// countdown. Index must be the next expected one.
func (s *LiveService) ShowQuestion(sessionID, adminID string, index int) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.showQuestion(adminID, index)
}

// SubmitAnswer scores and records one participant's answer for the active
// question. Exactly one submission per participant per question wins; the
// rest get ErrAlreadyAnswered.
func (s *LiveService) SubmitAnswer(sessionID, participantID string, optionIndex int, latencyMs int64) (awarded, total int, err error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return 0, 0, domain.ErrSessionNotFound
	}
	return session.submitAnswer(participantID, optionIndex, latencyMs)
}

// RevealResults closes the active question early and broadcasts per-option
// counts. The pending countdown is cancelled atomically with the
// transition.
func (s *LiveService) RevealResults(sessionID, adminID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.reveal(adminID)
}

// Advance shows the next question, or finalizes when none remain.
func (s *LiveService) Advance(sessionID, adminID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.advance(adminID)
}

// Finalize ends the session and broadcasts the final ranking.
func (s *LiveService) Finalize(sessionID, adminID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.finalize(adminID)
}

// Subscribe attaches a client to the session's event feed for the given
// role, replaying a resync snapshot first. The caller must Cancel.
func (s *LiveService) Subscribe(sessionID string, role Role) (*Subscription, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.subscribe(role), nil
}

// Snapshot returns a read-only view of the session.
func (s *LiveService) Snapshot(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Ranking returns the current standings, ranked. The surrounding app may
// persist this as attempt records once the session finishes.
func (s *LiveService) Ranking(sessionID string) ([]domain.RankedEntry, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.ranking(), nil
}
