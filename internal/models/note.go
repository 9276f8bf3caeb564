// Package models defines the domain types for mynotes.
package models

import "time"

// Note is a user-created record. Name doubles as the object-storage key
// for the note's image.
type Note struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// HasImage reports whether the note carries an image reference.
func (n Note) HasImage() bool {
	return n.Image != ""
}

// CreateNoteInput is the payload of the createNote mutation.
type CreateNoteInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
}

// DeleteNoteInput is the payload of the deleteNote mutation.
type DeleteNoteInput struct {
	ID string `json:"id"`
}
