package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches an id or join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrParticipantNotFound is returned when a participant id is not in the roster.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAlreadyStarted rejects joins once the session has left the waiting state.
	ErrAlreadyStarted = errors.New("session already started or finished")
	// ErrNotWaiting rejects a start on a session that is not in the waiting state.
	ErrNotWaiting = errors.New("session is not waiting to start")
	// ErrSessionFinished rejects any flow action on a finished session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrNoActiveQuestion rejects submissions outside the question phase.
	ErrNoActiveQuestion = errors.New("no question is currently active")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("participant already answered this question")
	// ErrNoParticipants rejects starting an empty session without the force override.
	ErrNoParticipants = errors.New("session has no participants")
	// ErrUnauthorized rejects admin-only actions from anyone but the owning admin.
	ErrUnauthorized = errors.New("only the owning admin may perform this action")
	// ErrOutOfOrder rejects showing any question other than the next expected one.
	ErrOutOfOrder = errors.New("question index is not the next expected index")
	// ErrQuestionOpen rejects advancing while a question is still collecting answers.
	ErrQuestionOpen = errors.New("current question must be revealed first")
	// ErrNoMoreQuestions rejects advancing past the last question.
	ErrNoMoreQuestions = errors.New("no questions remain")
	// ErrInvalidOption indicates the submitted option index is out of bounds.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrNameRequired rejects joins with an empty display name.
	ErrNameRequired = errors.New("display name is required")
)
