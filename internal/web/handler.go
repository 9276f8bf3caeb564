// Package web serves the server-rendered notes page: sign-in gate, create
// form, note list with delete buttons, and sign-out.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/models"
	"github.com/starford/mynotes/internal/notebook"
)

const maxFormBytes = 50 << 20 // 50 MB

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type ctxKey struct{}

type indexPage struct {
	Notes []models.Note
	Error string
}

type signinPage struct {
	Error string
}

// Handler serves the web UI.
type Handler struct {
	sessions    *Sessions
	authEnabled bool
	token       string
}

// NewHandler creates the web handler. With authEnabled false a session is
// started transparently on first visit.
func NewHandler(sessions *Sessions, authEnabled bool, token string) *Handler {
	return &Handler{sessions: sessions, authEnabled: authEnabled, token: token}
}

// Routes returns the chi router for the web UI.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.sessions.LoadAndSave)

	r.Get("/signin", h.SignInPage)
	r.Post("/signin", h.SignIn)
	r.Post("/signout", h.SignOut)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get("/", h.Index)
		r.Post("/notes", h.CreateNote)
		r.Post("/notes/{id}/delete", h.DeleteNote)
	})

	return r
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.sessions.Current(r.Context())
		if !ok {
			if h.authEnabled {
				http.Redirect(w, r, "/signin", http.StatusSeeOther)
				return
			}
			var err error
			if sess, err = h.sessions.Start(r.Context()); err != nil {
				slog.Error("start session failed", slog.String("error", err.Error()))
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *Session {
	sess, _ := r.Context().Value(ctxKey{}).(*Session)
	return sess
}

func render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template failed", slog.String("template", name), slog.String("error", err.Error()))
	}
}

// Index handles GET /. Every load refetches, like remounting the page.
// If the backend is unreachable the last local collection is shown.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	view := sessionFrom(r).View
	if err := view.Fetch(r.Context()); err != nil {
		slog.Error("fetch notes failed", slog.String("error", err.Error()))
	}
	render(w, http.StatusOK, "index.html", indexPage{Notes: view.Notes()})
}

// CreateNote handles POST /notes (multipart form).
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	view := sessionFrom(r).View
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		render(w, http.StatusBadRequest, "index.html", indexPage{Notes: view.Notes(), Error: "The form could not be read."})
		return
	}

	in := notebook.CreateInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		// An empty file input still submits a part with no file name.
		if header.Filename != "" && header.Size > 0 {
			in.Image = &notebook.Image{Filename: header.Filename, Body: file}
		}
	}

	if _, err := view.Create(r.Context(), in); err != nil {
		if errors.Is(err, apperr.ErrInvalid) {
			render(w, http.StatusBadRequest, "index.html", indexPage{Notes: view.Notes(), Error: "Name and description are required."})
			return
		}
		slog.Error("create note failed", slog.String("name", in.Name), slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteNote handles POST /notes/{id}/delete. The note disappears from the
// page even if the backend call fails.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	view := sessionFrom(r).View
	id := chi.URLParam(r, "id")
	note, ok := view.Find(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := view.Delete(r.Context(), note); err != nil {
		slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignInPage handles GET /signin.
func (h *Handler) SignInPage(w http.ResponseWriter, r *http.Request) {
	if !h.authEnabled || h.sessions.Authenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	render(w, http.StatusOK, "signin.html", signinPage{})
}

// SignIn handles POST /signin.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	if !h.authEnabled {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	token := r.PostFormValue("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
		render(w, http.StatusUnauthorized, "signin.html", signinPage{Error: "Invalid access token."})
		return
	}
	if _, err := h.sessions.Start(r.Context()); err != nil {
		slog.Error("start session failed", slog.String("error", err.Error()))
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOut handles POST /signout.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context()); err != nil {
		slog.Error("end session failed", slog.String("error", err.Error()))
	}
	target := "/"
	if h.authEnabled {
		target = "/signin"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
