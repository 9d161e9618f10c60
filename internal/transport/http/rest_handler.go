package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// RestHandler serves the non-realtime session endpoints: create, join by
// code, and snapshot lookup.
type RestHandler struct {
	service *app.LiveService
}

func NewRestHandler(service *app.LiveService) *RestHandler {
	return &RestHandler{service: service}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

// CreateSession starts a new waiting session for the authenticated admin.
func (h *RestHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "quizId is required")
		return
	}

	snapshot, err := h.service.CreateSession(r.Context(), req.QuizID, adminIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	log.Printf("session %s created with code %s", snapshot.ID, snapshot.Code)
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: snapshot.ID,
		Code:      snapshot.Code,
	})
}

type joinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type joinResponse struct {
	SessionID   string             `json:"sessionId"`
	Participant domain.Participant `json:"participant"`
}

// Join adds a participant to the session matching the code.
func (h *RestHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	sessionID, participant, err := h.service.Join(req.Code, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{SessionID: sessionID, Participant: participant})
}

// GetSession returns a read-only session snapshot.
func (h *RestHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyStarted), errors.Is(err, domain.ErrNotWaiting),
		errors.Is(err, domain.ErrSessionFinished), errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrAlreadyAnswered), errors.Is(err, domain.ErrNoParticipants),
		errors.Is(err, domain.ErrOutOfOrder), errors.Is(err, domain.ErrNoMoreQuestions),
		errors.Is(err, domain.ErrQuestionOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
