// Package notebook holds the note collection view: the in-memory list of
// notes a user sees, how it is fetched, and how create and delete are
// dispatched to the backend and object storage.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/backend"
	"github.com/starford/mynotes/internal/models"
	"github.com/starford/mynotes/internal/storage"
)

// Change kinds passed to the OnChange hook.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
	EventFetched = "fetched"
)

// ChangeFunc observes view transitions. name is empty for EventFetched.
type ChangeFunc func(kind, name string)

// Image is an uploaded file attached to a new note.
type Image struct {
	Filename string
	Body     io.Reader
}

// CreateInput is what the create form submits.
type CreateInput struct {
	Name        string
	Description string
	Image       *Image
}

// Validate checks the fields the form marks as required. Nothing else is
// checked: duplicate names are accepted.
func (in CreateInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Description, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return nil
}

// View is a note collection owned by one consumer (a browser session, the
// JSON API, the MCP server).
//
// Remote calls run outside the lock and nothing orders concurrent
// operations: a Fetch that was already in flight when Delete removed a
// note locally can bring that note back.
type View struct {
	api      backend.API
	store    storage.Provider
	logger   *slog.Logger
	onChange ChangeFunc

	mountMu sync.Mutex
	mounted bool

	mu    sync.RWMutex
	notes []models.Note
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger used for remote failures.
func WithLogger(l *slog.Logger) Option {
	return func(v *View) {
		v.logger = l
	}
}

// WithOnChange registers a hook called after every transition.
func WithOnChange(fn ChangeFunc) Option {
	return func(v *View) {
		v.onChange = fn
	}
}

// New creates an empty view. Call Mount to load it.
func New(api backend.API, store storage.Provider, opts ...Option) *View {
	v := &View{
		api:    api,
		store:  store,
		logger: slog.Default(),
		notes:  []models.Note{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount runs the initial Fetch. Once a Fetch has succeeded later calls
// return nil without contacting the backend; after a failure the next call
// tries again.
func (v *View) Mount(ctx context.Context) error {
	v.mountMu.Lock()
	defer v.mountMu.Unlock()
	if v.mounted {
		return nil
	}
	if err := v.Fetch(ctx); err != nil {
		return err
	}
	v.mounted = true
	return nil
}

// Fetch reloads every note from the backend, resolves image URLs from
// object storage, and replaces the local collection. A note whose image
// cannot be resolved is kept without one. If listing fails the local
// collection is left untouched.
func (v *View) Fetch(ctx context.Context) error {
	notes, err := v.api.ListNotes(ctx)
	if err != nil {
		v.logger.Error("fetch notes failed", slog.String("error", err.Error()))
		return fmt.Errorf("list notes: %w", err)
	}
	for i := range notes {
		if !notes[i].HasImage() {
			continue
		}
		u, err := v.store.URL(ctx, notes[i].Name)
		if err != nil {
			v.logger.Warn("resolve image failed",
				slog.String("name", notes[i].Name),
				slog.String("error", err.Error()))
			notes[i].Image = ""
			continue
		}
		notes[i].Image = u
	}
	if notes == nil {
		notes = []models.Note{}
	}

	v.mu.Lock()
	v.notes = notes
	v.mu.Unlock()

	v.emit(EventFetched, "")
	return nil
}

// Create uploads the image (keyed by note name) if one is given, submits
// the create mutation, then refetches. If the mutation fails after the
// upload succeeded, the uploaded object is left in storage.
func (v *View) Create(ctx context.Context, in CreateInput) (*models.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	input := models.CreateNoteInput{
		Name:        in.Name,
		Description: in.Description,
	}
	if in.Image != nil {
		if _, err := v.store.Put(ctx, in.Name, in.Image.Body); err != nil {
			v.logger.Error("upload image failed", slog.String("name", in.Name), slog.String("error", err.Error()))
			return nil, fmt.Errorf("upload image: %w", err)
		}
		input.Image = in.Image.Filename
		if input.Image == "" {
			input.Image = in.Name
		}
	}

	created, err := v.api.CreateNote(ctx, input)
	if err != nil {
		v.logger.Error("create note failed", slog.String("name", in.Name), slog.String("error", err.Error()))
		return nil, fmt.Errorf("create note: %w", err)
	}
	v.emit(EventCreated, in.Name)

	if err := v.Fetch(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// Delete removes the note from the local collection first, then deletes
// its object (keyed by name) and submits the delete mutation. A remote
// failure is returned but the local removal is not rolled back. A name
// that is not a valid storage key skips the object removal.
func (v *View) Delete(ctx context.Context, note models.Note) error {
	if note.ID == "" {
		return fmt.Errorf("delete note: missing id: %w", apperr.ErrInvalid)
	}

	v.mu.Lock()
	kept := make([]models.Note, 0, len(v.notes))
	for _, n := range v.notes {
		if n.ID != note.ID {
			kept = append(kept, n)
		}
	}
	v.notes = kept
	v.mu.Unlock()
	v.emit(EventDeleted, note.Name)

	if err := v.store.Remove(ctx, note.Name); err != nil {
		// A name that is not a valid key never had an object to remove.
		if !errors.Is(err, apperr.ErrInvalid) {
			v.logger.Error("remove image failed", slog.String("name", note.Name), slog.String("error", err.Error()))
			return fmt.Errorf("remove image: %w", err)
		}
		v.logger.Debug("skip image removal", slog.String("name", note.Name), slog.String("error", err.Error()))
	}
	if _, err := v.api.DeleteNote(ctx, models.DeleteNoteInput{ID: note.ID}); err != nil {
		v.logger.Error("delete note failed", slog.String("id", note.ID), slog.String("error", err.Error()))
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// Notes returns a copy of the local collection in backend order.
func (v *View) Notes() []models.Note {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.Note, len(v.notes))
	copy(out, v.notes)
	return out
}

// Find returns the locally held note with id.
func (v *View) Find(id string) (models.Note, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, n := range v.notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

func (v *View) emit(kind, name string) {
	if v.onChange != nil {
		v.onChange(kind, name)
	}
}
