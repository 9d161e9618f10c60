package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"livequiz-service/internal/app"
)

// WSHandler is the bidirectional event channel for live sessions. Clients
// attach in one of two roles: the owning admin's controller view, or a
// participant player. Each role sees its own event feed and command set.
type WSHandler struct {
	service  *app.LiveService
	auth     *Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LiveService, auth *Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinSessionPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type rejoinSessionPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
}

type joinedSessionPayload struct {
	SessionID   string `json:"sessionId"`
	Participant any    `json:"participant"`
}

type startQuizPayload struct {
	Force bool `json:"force"`
}

type showQuestionPayload struct {
	Index int `json:"questionIndex"`
}

type submitAnswerPayload struct {
	OptionIndex int   `json:"optionIndex"`
	LatencyMs   int64 `json:"latencyMs"`
}

// ServeWS upgrades the connection and dispatches by role. Admins must
// present their identity token before the upgrade; players authenticate by
// join code only.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		role = "player"
	}

	if role == "admin" {
		adminID, err := h.auth.AdminID(r)
		if err != nil {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		sessionID := r.URL.Query().Get("sessionId")
		if sessionID == "" {
			http.Error(w, "missing sessionId", http.StatusBadRequest)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		h.serveAdmin(conn, sessionID, adminID)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	h.servePlayer(conn)
}

// wsSender owns all writes to one connection so the read loop, the event
// pump, and command replies never write concurrently.
type wsSender struct {
	send       chan outboundMessage
	closeC     chan struct{}
	writerDone chan struct{}
	pumpDone   chan struct{}
}

func newWSSender(conn *websocket.Conn) *wsSender {
	s := &wsSender{
		send:       make(chan outboundMessage, 16),
		closeC:     make(chan struct{}),
		writerDone: make(chan struct{}),
		pumpDone:   make(chan struct{}),
	}
	go func() {
		defer close(s.writerDone)
		for msg := range s.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return s
}

// pump copies subscription events into the send channel until the
// subscription or the connection goes away.
func (s *wsSender) pump(sub *app.Subscription) {
	go func() {
		defer close(s.pumpDone)
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case s.send <- outboundMessage{Type: ev.EventType(), Payload: ev}:
				case <-s.closeC:
					return
				}
			case <-s.closeC:
				return
			}
		}
	}()
}

func (s *wsSender) reply(msg outboundMessage) {
	select {
	case s.send <- msg:
	case <-s.closeC:
	}
}

func (s *wsSender) replyErr(err error) {
	s.reply(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
}

func (s *wsSender) shutdown(pumped bool) {
	close(s.closeC)
	if pumped {
		<-s.pumpDone
	}
	close(s.send)
	<-s.writerDone
}

func (h *WSHandler) serveAdmin(conn *websocket.Conn, sessionID, adminID string) {
	sender := newWSSender(conn)

	sub, err := h.service.Subscribe(sessionID, app.RoleAdmin)
	if err != nil {
		sender.replyErr(err)
		sender.shutdown(false)
		return
	}
	defer sub.Cancel()
	sender.pump(sub)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start-quiz":
			var p startQuizPayload
			_ = json.Unmarshal(inbound.Payload, &p)
			if err := h.service.Start(sessionID, adminID, p.Force); err != nil {
				sender.replyErr(err)
			}
		case "show-question":
			var p showQuestionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				sender.replyErr(err)
				continue
			}
			if err := h.service.ShowQuestion(sessionID, adminID, p.Index); err != nil {
				sender.replyErr(err)
			}
		case "show-results":
			if err := h.service.RevealResults(sessionID, adminID); err != nil {
				sender.replyErr(err)
			}
		case "next-question":
			if err := h.service.Advance(sessionID, adminID); err != nil {
				sender.replyErr(err)
			}
		case "show-final-results":
			if err := h.service.Finalize(sessionID, adminID); err != nil {
				sender.replyErr(err)
			}
		default:
			sender.reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	sender.shutdown(true)
}

func (h *WSHandler) servePlayer(conn *websocket.Conn) {
	sender := newWSSender(conn)

	// The first accepted message must establish identity: a fresh join by
	// code, or a rejoin that re-associates this connection with an
	// existing participant.
	var sessionID, participantID string
	for sessionID == "" {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			sender.shutdown(false)
			return
		}
		switch inbound.Type {
		case "join-session":
			var p joinSessionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				sender.replyErr(err)
				continue
			}
			id, participant, err := h.service.Join(p.Code, p.Name)
			if err != nil {
				sender.replyErr(err)
				continue
			}
			sessionID, participantID = id, participant.ID
			sender.reply(outboundMessage{Type: "joined-session", Payload: joinedSessionPayload{SessionID: id, Participant: participant}})
		case "rejoin-session":
			var p rejoinSessionPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				sender.replyErr(err)
				continue
			}
			participant, err := h.service.Rejoin(p.SessionID, p.ParticipantID)
			if err != nil {
				sender.replyErr(err)
				continue
			}
			sessionID, participantID = p.SessionID, participant.ID
			sender.reply(outboundMessage{Type: "rejoined-session", Payload: joinedSessionPayload{SessionID: sessionID, Participant: participant}})
		default:
			sender.reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "join or rejoin first"}})
		}
	}

	sub, err := h.service.Subscribe(sessionID, app.RolePlayer)
	if err != nil {
		sender.replyErr(err)
		sender.shutdown(false)
		return
	}
	defer sub.Cancel()
	sender.pump(sub)

	left := false
	for !left {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit-answer":
			var p submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &p); err != nil {
				sender.replyErr(err)
				continue
			}
			awarded, total, err := h.service.SubmitAnswer(sessionID, participantID, p.OptionIndex, p.LatencyMs)
			if err != nil {
				sender.replyErr(err)
				continue
			}
			sender.reply(outboundMessage{Type: "answer-ack", Payload: app.AnswerAck{
				ParticipantID: participantID,
				Correct:       awarded > 0,
				Awarded:       awarded,
				RunningScore:  total,
			}})
		case "leave":
			h.service.Leave(sessionID, participantID)
			left = true
		default:
			sender.reply(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	// A dropped connection is not a leave unless policy says so; the
	// participant keeps its roster slot for reconnection.
	if !left && h.service.Policy().RemoveOnDisconnect {
		h.service.Leave(sessionID, participantID)
	}

	sender.shutdown(true)
}
