package app

import "livequiz-service/internal/domain"

// Role selects which audience of a session receives a published event.
type Role string

const (
	// RoleAdmin is the controller view(s) the owning admin has open.
	RoleAdmin Role = "admin"
	// RolePlayer is the joined participants.
	RolePlayer Role = "player"
	// RoleAll addresses both audiences.
	RoleAll Role = "all"
)

// Event is a broadcast message delivered over the session's real-time
// channel. Every variant carries an explicit payload type so transports
// can switch on the concrete type instead of guessing at object shape.
type Event interface {
	EventType() string
}

// ParticipantJoined announces a new roster member.
type ParticipantJoined struct {
	Participant domain.Participant `json:"participant"`
	Total       int                `json:"totalParticipants"`
}

func (ParticipantJoined) EventType() string { return "participant-joined" }

// ParticipantList is a full roster resync.
type ParticipantList struct {
	Participants []domain.Participant `json:"participants"`
}

func (ParticipantList) EventType() string { return "participant-list" }

// ParticipantLeft announces a roster removal.
type ParticipantLeft struct {
	ParticipantID string `json:"participantId"`
}

func (ParticipantLeft) EventType() string { return "participant-left" }

// SessionStarted signals the waiting -> active transition.
type SessionStarted struct {
	SessionID string `json:"sessionId"`
}

func (SessionStarted) EventType() string { return "session-started" }

// QuestionShown pushes the active question to clients. The correct option
// index is never included; it travels only in ResultsShown.
type QuestionShown struct {
	Index            int      `json:"questionIndex"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	RemainingSeconds int      `json:"remainingSeconds"`
}

func (QuestionShown) EventType() string { return "question-shown" }

// AnswerAck reports a scored submission. Broadcast to the admin channel for
// live progress; the submitting player receives its own copy directly.
type AnswerAck struct {
	ParticipantID string `json:"participantId"`
	Correct       bool   `json:"correct"`
	Awarded       int    `json:"awarded"`
	RunningScore  int    `json:"runningScore"`
	AnsweredCount int    `json:"answeredCount"`
	Total         int    `json:"totalParticipants"`
}

func (AnswerAck) EventType() string { return "answer-ack" }

// ResultsShown closes a question with per-option counts and the answer.
type ResultsShown struct {
	Index           int   `json:"questionIndex"`
	PerOptionCounts []int `json:"perOptionCounts"`
	CorrectIndex    int   `json:"correctIndex"`
}

func (ResultsShown) EventType() string { return "results-shown" }

// FinalResults carries the final ranking once the session is finished.
type FinalResults struct {
	Ranking []domain.RankedEntry `json:"ranking"`
}

func (FinalResults) EventType() string { return "final-results" }
