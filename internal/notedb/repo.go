package notedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/backend"
	"github.com/starford/mynotes/internal/models"
)

var _ backend.API = (*DB)(nil)

// ListNotes returns every note in creation order.
func (db *DB) ListNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, description, image, created_at, updated_at
		FROM notes
		ORDER BY created_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("notedb: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Name, &n.Description, &n.Image, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("notedb: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateNote inserts a note with a fresh id. Names are not unique.
func (db *DB) CreateNote(ctx context.Context, in models.CreateNoteInput) (*models.Note, error) {
	now := time.Now().UTC()
	n := models.Note{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notes (id, name, description, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.Name, n.Description, n.Image, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("notedb: insert note: %w", err)
	}
	return &n, nil
}

// DeleteNote removes a note by id and returns the deleted record.
func (db *DB) DeleteNote(ctx context.Context, in models.DeleteNoteInput) (*models.Note, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("notedb: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var n models.Note
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, description, image, created_at, updated_at
		FROM notes WHERE id = ?
	`, in.ID).Scan(&n.ID, &n.Name, &n.Description, &n.Image, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notedb: note %s: %w", in.ID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("notedb: load note: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, in.ID); err != nil {
		return nil, fmt.Errorf("notedb: delete note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("notedb: commit: %w", err)
	}
	return &n, nil
}
