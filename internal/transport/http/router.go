package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"livequiz-service/internal/app"
)

// NewRouter wires the REST and WebSocket surfaces of the live session
// core. Session creation and the admin control channel require the
// identity token; joining by code is open.
func NewRouter(service *app.LiveService, auth *Authenticator) http.Handler {
	rest := NewRestHandler(service)
	ws := NewWSHandler(service, auth)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/ws", ws.ServeWS)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/join", rest.Join)
		r.Get("/{id}", rest.GetSession)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Post("/", rest.CreateSession)
		})
	})

	return r
}
