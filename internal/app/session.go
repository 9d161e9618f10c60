package app

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
)

// Session is the in-memory state of one live quiz run. All mutation is
// serialized by the session mutex, so concurrent joins and submissions
// resolve in a single well-defined order.
type Session struct {
	id        string
	code      string
	adminID   string
	quiz      domain.Quiz
	limit     time.Duration
	scoring   ScoringConfig
	createdAt time.Time
	now       func() time.Time

	mu           sync.Mutex
	status       domain.SessionStatus
	phase        domain.Phase
	currentIndex int
	order        []string
	participants map[string]*domain.Participant
	answers      map[int]map[string]domain.AnswerRecord
	deadline     time.Time
	timer        *time.Timer
	timerGen     uint64
	touchedAt    time.Time
	subscribers  map[*Subscription]struct{}
}

// NewSession builds a session in the waiting state. The store owns id and
// code generation; the quiz snapshot is immutable for the session's life.
func NewSession(id, code, adminID string, quiz domain.Quiz, limit time.Duration, scoring ScoringConfig) *Session {
	return newSessionWithClock(id, code, adminID, quiz, limit, scoring, time.Now)
}

func newSessionWithClock(id, code, adminID string, quiz domain.Quiz, limit time.Duration, scoring ScoringConfig, now func() time.Time) *Session {
	if limit <= 0 {
		limit = 20 * time.Second
	}
	if quiz.TimeLimitSeconds > 0 {
		limit = time.Duration(quiz.TimeLimitSeconds) * time.Second
	}
	s := &Session{
		id:           id,
		code:         strings.ToUpper(code),
		adminID:      adminID,
		quiz:         quiz,
		limit:        limit,
		scoring:      scoring,
		createdAt:    now(),
		now:          now,
		status:       domain.StatusWaiting,
		phase:        domain.PhaseLobby,
		currentIndex: -1,
		participants: make(map[string]*domain.Participant),
		answers:      make(map[int]map[string]domain.AnswerRecord),
		subscribers:  make(map[*Subscription]struct{}),
	}
	s.touchedAt = s.createdAt
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Code returns the uppercase join code.
func (s *Session) Code() string { return s.code }

// Finished reports whether the session reached its terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == domain.StatusFinished
}

// IdleSince reports the last mutation time, used by store eviction sweeps.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) join(name string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Participant{}, domain.ErrNameRequired
	}
	if s.status != domain.StatusWaiting {
		return domain.Participant{}, domain.ErrAlreadyStarted
	}

	p := &domain.Participant{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: s.now(),
	}
	s.participants[p.ID] = p
	s.order = append(s.order, p.ID)
	s.touchedAt = s.now()

	s.publishLocked(RoleAll, ParticipantJoined{Participant: *p, Total: len(s.participants)})
	s.publishLocked(RoleAll, ParticipantList{Participants: s.rosterLocked()})
	return *p, nil
}

func (s *Session) rejoin(participantID string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[participantID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	s.touchedAt = s.now()
	return *p, nil
}

func (s *Session) leave(participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participantID]; !ok {
		return
	}
	delete(s.participants, participantID)
	for i, id := range s.order {
		if id == participantID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.touchedAt = s.now()

	s.publishLocked(RoleAll, ParticipantLeft{ParticipantID: participantID})
	s.publishLocked(RoleAll, ParticipantList{Participants: s.rosterLocked()})
}

func (s *Session) start(adminID string, force, allowEmpty bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adminID != s.adminID {
		return domain.ErrUnauthorized
	}
	if s.status != domain.StatusWaiting {
		return domain.ErrNotWaiting
	}
	if len(s.participants) == 0 && !force && !allowEmpty {
		return domain.ErrNoParticipants
	}

	s.status = domain.StatusActive
	s.touchedAt = s.now()
	s.publishLocked(RoleAll, SessionStarted{SessionID: s.id})
	return nil
}

func (s *Session) showQuestion(adminID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adminID != s.adminID {
		return domain.ErrUnauthorized
	}
	switch s.status {
	case domain.StatusWaiting:
		return domain.ErrNotWaiting
	case domain.StatusFinished:
		return domain.ErrSessionFinished
	}
	if index != s.currentIndex+1 {
		return domain.ErrOutOfOrder
	}
	if index >= len(s.quiz.Questions) {
		return domain.ErrNoMoreQuestions
	}

	s.currentIndex = index
	s.phase = domain.PhaseQuestion
	for _, p := range s.participants {
		p.Answered = false
		p.LastLatencyMs = 0
	}
	s.answers[index] = make(map[string]domain.AnswerRecord)
	s.deadline = s.now().Add(s.limit)
	s.touchedAt = s.now()
	s.armTimerLocked()

	s.publishLocked(RoleAll, s.questionShownLocked())
	return nil
}

// armTimerLocked schedules the auto-reveal and invalidates any previous
// timer via the generation counter, so a stale callback can never act on
// a later question or a session that already left the question phase.
func (s *Session) armTimerLocked() {
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.limit, func() { s.autoReveal(gen) })
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) autoReveal(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.phase != domain.PhaseQuestion {
		return
	}
	s.revealLocked()
}

func (s *Session) submitAnswer(participantID string, optionIndex int, latencyMs int64) (awarded, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseQuestion {
		return 0, 0, domain.ErrNoActiveQuestion
	}
	p, ok := s.participants[participantID]
	if !ok {
		return 0, 0, domain.ErrParticipantNotFound
	}
	question := s.quiz.Questions[s.currentIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return 0, 0, domain.ErrInvalidOption
	}
	ledger := s.answers[s.currentIndex]
	if _, dup := ledger[participantID]; dup {
		return 0, 0, domain.ErrAlreadyAnswered
	}

	limitMs := s.limit.Milliseconds()
	if latencyMs < 0 {
		latencyMs = 0
	}
	if latencyMs > limitMs {
		latencyMs = limitMs
	}

	correct := optionIndex == question.CorrectIndex
	awarded = s.scoring.Score(correct, latencyMs, limitMs)

	now := s.now()
	ledger[participantID] = domain.AnswerRecord{
		ParticipantID: participantID,
		OptionIndex:   optionIndex,
		LatencyMs:     latencyMs,
		SubmittedAt:   now,
	}
	p.Answered = true
	p.LastLatencyMs = latencyMs
	p.TotalLatencyMs += latencyMs
	p.Score += awarded
	p.LastScoredAt = now
	s.touchedAt = now

	s.publishLocked(RoleAdmin, AnswerAck{
		ParticipantID: participantID,
		Correct:       correct,
		Awarded:       awarded,
		RunningScore:  p.Score,
		AnsweredCount: len(ledger),
		Total:         len(s.participants),
	})
	return awarded, p.Score, nil
}

func (s *Session) reveal(adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adminID != s.adminID {
		return domain.ErrUnauthorized
	}
	if s.phase != domain.PhaseQuestion {
		return domain.ErrNoActiveQuestion
	}
	s.revealLocked()
	return nil
}

func (s *Session) revealLocked() {
	s.cancelTimerLocked()
	s.phase = domain.PhaseResults
	s.touchedAt = s.now()

	question := s.quiz.Questions[s.currentIndex]
	counts := make([]int, len(question.Options))
	for _, record := range s.answers[s.currentIndex] {
		counts[record.OptionIndex]++
	}
	s.publishLocked(RoleAll, ResultsShown{
		Index:           s.currentIndex,
		PerOptionCounts: counts,
		CorrectIndex:    question.CorrectIndex,
	})
}

func (s *Session) advance(adminID string) error {
	s.mu.Lock()
	next := s.currentIndex + 1
	finished := s.status == domain.StatusFinished
	inQuestion := s.phase == domain.PhaseQuestion
	s.mu.Unlock()

	if finished {
		return domain.ErrSessionFinished
	}
	if inQuestion {
		// A prior reveal must complete before the next question is shown.
		return domain.ErrQuestionOpen
	}
	if next >= len(s.quiz.Questions) {
		return s.finalize(adminID)
	}
	return s.showQuestion(adminID, next)
}

func (s *Session) finalize(adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if adminID != s.adminID {
		return domain.ErrUnauthorized
	}
	if s.status == domain.StatusFinished {
		return domain.ErrSessionFinished
	}

	s.cancelTimerLocked()
	s.status = domain.StatusFinished
	s.phase = domain.PhaseFinal
	s.touchedAt = s.now()

	s.publishLocked(RoleAll, FinalResults{Ranking: s.rankingLocked()})
	return nil
}

func (s *Session) snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		ID:            s.id,
		Code:          s.code,
		QuizID:        s.quiz.ID,
		QuizTitle:     s.quiz.Title,
		AdminID:       s.adminID,
		Status:        s.status,
		Phase:         s.phase,
		CurrentIndex:  s.currentIndex,
		QuestionCount: len(s.quiz.Questions),
		Participants:  s.rosterLocked(),
		CreatedAt:     s.createdAt,
	}
}

func (s *Session) ranking() []domain.RankedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankingLocked()
}

func (s *Session) rankingLocked() []domain.RankedEntry {
	ordered := make([]*domain.Participant, 0, len(s.participants))
	for _, id := range s.order {
		ordered = append(ordered, s.participants[id])
	}
	return rankParticipants(ordered)
}

func (s *Session) rosterLocked() []domain.Participant {
	roster := make([]domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		roster = append(roster, *s.participants[id])
	}
	return roster
}

func (s *Session) questionShownLocked() QuestionShown {
	question := s.quiz.Questions[s.currentIndex]
	remaining := int(s.deadline.Sub(s.now()).Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return QuestionShown{
		Index:            s.currentIndex,
		Text:             question.Text,
		Options:          question.Options,
		TimeLimitSeconds: int(s.limit / time.Second),
		RemainingSeconds: remaining,
	}
}
