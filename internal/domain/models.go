package domain

import "time"

// SessionStatus is the coarse lifecycle state of a live session.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// Phase is the fine-grained question-flow state inside a session.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
	PhaseFinal    Phase = "final"
)

// Participant is a joined player within a session. Identity is logical:
// the transport connection is tracked separately, so a reconnect maps back
// to the same participant instead of creating a duplicate.
type Participant struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	Answered       bool      `json:"answered"`
	LastLatencyMs  int64     `json:"lastLatencyMs,omitempty"`
	TotalLatencyMs int64     `json:"-"`
	JoinedAt       time.Time `json:"joinedAt"`
	LastScoredAt   time.Time `json:"-"`
}

// AnswerRecord is one participant's answer to one question. At most one
// record may exist per (question index, participant) pair.
type AnswerRecord struct {
	ParticipantID string
	OptionIndex   int
	LatencyMs     int64
	SubmittedAt   time.Time
}

// Question models an MCQ question with a single correct option index.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Quiz is the read-only content snapshot a session plays through.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"` // defaults to 20 if zero
	Questions        []Question `json:"questions"`
}

// RankedEntry is one row of the final ranking.
type RankedEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
}

// SessionSnapshot is a read-only view of session state for REST consumers
// and reconnecting clients.
type SessionSnapshot struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"`
	QuizID        string        `json:"quizId"`
	QuizTitle     string        `json:"quizTitle"`
	AdminID       string        `json:"adminId"`
	Status        SessionStatus `json:"status"`
	Phase         Phase         `json:"phase"`
	CurrentIndex  int           `json:"currentIndex"`
	QuestionCount int           `json:"questionCount"`
	Participants  []Participant `json:"participants"`
	CreatedAt     time.Time     `json:"createdAt"`
}
