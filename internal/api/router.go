package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mynotes/internal/notebook"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; sessions, if
// non-nil, lets signed-in browser sessions through as well.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(view *notebook.View, authEnabled bool, token string, sessions SessionChecker, sseHandler http.Handler) chi.Router {
	h := NewHandler(view)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token, sessions))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/fetch", h.FetchNotes)
	r.Delete("/notes/{id}", h.DeleteNote)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
