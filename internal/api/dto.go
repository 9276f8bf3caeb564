package api

import "github.com/starford/mynotes/internal/models"

// Note is the API representation of a note (aliased from the domain layer).
type Note = models.Note

// CreateNoteRequest is the JSON request body for creating a note.
// Multipart requests use the same field names plus an optional "image" file.
type CreateNoteRequest struct {
	Name        string `json:"name" example:"Groceries" validate:"required"`
	Description string `json:"description" example:"Milk and eggs" validate:"required"`
}

// NoteListResponse wraps the locally held note collection.
type NoteListResponse struct {
	Notes []Note `json:"notes" validate:"required"`
	Total int    `json:"total" example:"3" validate:"required"`
}

// CreateNoteResponse carries the created note and the refetched collection.
type CreateNoteResponse struct {
	Note  *Note  `json:"note" validate:"required"`
	Notes []Note `json:"notes" validate:"required"`
	Total int    `json:"total" example:"3" validate:"required"`
}
