package api

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/notebook"
)

const maxUploadBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	view *notebook.View
}

// NewHandler creates a new Handler over a note collection view.
func NewHandler(view *notebook.View) *Handler {
	return &Handler{view: view}
}

func (h *Handler) listResponse() NoteListResponse {
	notes := h.view.Notes()
	return NoteListResponse{Notes: notes, Total: len(notes)}
}

// ListNotes handles GET /api/notes.
//
// The first successful call loads the collection; until then each call
// retries the initial fetch.
//
//	@Summary		List the locally held notes
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	if err := h.view.Mount(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("fetch failed"))
		return
	}
	writeJSON(w, http.StatusOK, h.listResponse())
}

// FetchNotes handles POST /api/notes/fetch.
//
//	@Summary		Reload every note from the backend
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/fetch [post]
func (h *Handler) FetchNotes(w http.ResponseWriter, r *http.Request) {
	if err := h.view.Fetch(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody("fetch failed"))
		return
	}
	writeJSON(w, http.StatusOK, h.listResponse())
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note, uploading its image first when present
//	@Tags			notes
//	@Accept			json
//	@Accept			mpfd
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	CreateNoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var in notebook.CreateInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		in.Name = r.FormValue("name")
		in.Description = r.FormValue("description")
		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			in.Image = &notebook.Image{Filename: header.Filename, Body: file}
		case errors.Is(err, http.ErrMissingFile):
			// Image is optional.
		default:
			writeJSON(w, http.StatusBadRequest, errorBody("invalid 'image' field"))
			return
		}
	} else {
		var req CreateNoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		in.Name = req.Name
		in.Description = req.Description
	}

	created, err := h.view.Create(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalid):
			writeJSON(w, http.StatusBadRequest, errorBody("name and description are required"))
		case created != nil:
			// The note exists; only the refetch failed.
			list := h.listResponse()
			writeJSON(w, http.StatusCreated, CreateNoteResponse{Note: created, Notes: list.Notes, Total: list.Total})
		default:
			writeJSON(w, http.StatusBadGateway, errorBody("create failed"))
		}
		return
	}
	list := h.listResponse()
	writeJSON(w, http.StatusCreated, CreateNoteResponse{Note: created, Notes: list.Notes, Total: list.Total})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note (removed locally before the backend confirms)
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, ok := h.view.Find(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.view.Delete(r.Context(), note); err != nil {
		slog.Error("delete note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("delete failed; note removed locally"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
