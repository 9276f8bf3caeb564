// Package backend defines the remote note API the application talks to.
package backend

import (
	"context"

	"github.com/starford/mynotes/internal/models"
)

// API is the set of generated operations the note views depend on:
// the listNotes query and the createNote and deleteNote mutations.
type API interface {
	ListNotes(ctx context.Context) ([]models.Note, error)
	CreateNote(ctx context.Context, in models.CreateNoteInput) (*models.Note, error)
	DeleteNote(ctx context.Context, in models.DeleteNoteInput) (*models.Note, error)
}
