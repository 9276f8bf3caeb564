package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mynotes/internal/apperr"
	"github.com/starford/mynotes/internal/models"
	"github.com/starford/mynotes/internal/storage"
	"github.com/starford/mynotes/internal/testutil"
)

// journal records remote calls across the fake backend and store in order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type fakeAPI struct {
	j         *journal
	mu        sync.Mutex
	notes     []models.Note
	next      int
	createErr error
	deleteErr error
	listErr   error
}

func (f *fakeAPI) ListNotes(context.Context) ([]models.Note, error) {
	f.j.add("listNotes")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note(nil), f.notes...), nil
}

func (f *fakeAPI) CreateNote(_ context.Context, in models.CreateNoteInput) (*models.Note, error) {
	f.j.add("createNote:%s:%s", in.Name, in.Image)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	n := models.Note{ID: fmt.Sprint(f.next), Name: in.Name, Description: in.Description, Image: in.Image}
	f.notes = append(f.notes, n)
	return &n, nil
}

func (f *fakeAPI) DeleteNote(_ context.Context, in models.DeleteNoteInput) (*models.Note, error) {
	f.j.add("deleteNote:%s", in.ID)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notes {
		if n.ID == in.ID {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			return &n, nil
		}
	}
	return nil, apperr.ErrNotFound
}

type fakeStore struct {
	j         *journal
	mu        sync.Mutex
	objects   map[string]string
	removeErr error
}

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader) (*storage.ObjectInfo, error) {
	s.j.add("put:%s", key)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.objects[key] = string(data)
	s.mu.Unlock()
	return &storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *fakeStore) URL(_ context.Context, key string) (string, error) {
	s.j.add("get:%s", key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return "", apperr.ErrNotFound
	}
	return "https://cdn.example/" + key, nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.j.add("remove:%s", key)
	if s.removeErr != nil {
		return s.removeErr
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) Stat(context.Context, string) (*storage.ObjectInfo, error) {
	return nil, apperr.ErrNotFound
}

func newFakes() (*journal, *fakeAPI, *fakeStore) {
	j := &journal{}
	return j, &fakeAPI{j: j}, &fakeStore{j: j, objects: map[string]string{}}
}

func TestCreateThenListContainsNote(t *testing.T) {
	_, api, store := newFakes()
	v := New(api, store)

	_, err := v.Create(context.Background(), CreateInput{Name: "groceries", Description: "milk, eggs"})
	require.NoError(t, err)

	notes := v.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "groceries", notes[0].Name)
	assert.Equal(t, "milk, eggs", notes[0].Description)
}

func TestCreateWithImageUploadsBeforeMutation(t *testing.T) {
	j, api, store := newFakes()
	v := New(api, store)

	_, err := v.Create(context.Background(), CreateInput{
		Name:        "holiday",
		Description: "beach",
		Image:       &Image{Filename: "beach.jpg", Body: strings.NewReader("jpeg-bytes")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"put:holiday",
		"createNote:holiday:beach.jpg",
		"listNotes",
		"get:holiday",
	}, j.list())
	assert.Equal(t, "jpeg-bytes", store.objects["holiday"])

	notes := v.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "https://cdn.example/holiday", notes[0].Image)
}

func TestCreateValidation(t *testing.T) {
	j, api, store := newFakes()
	v := New(api, store)

	for _, in := range []CreateInput{
		{Name: "", Description: "d"},
		{Name: "n", Description: ""},
	} {
		_, err := v.Create(context.Background(), in)
		assert.ErrorIs(t, err, apperr.ErrInvalid)
	}
	assert.Empty(t, j.list(), "invalid input must not reach the backend")
}

func TestCreateMutationFailureOrphansUpload(t *testing.T) {
	_, api, store := newFakes()
	api.createErr = errors.New("backend down")
	v := New(api, store)

	_, err := v.Create(context.Background(), CreateInput{
		Name:        "orphan",
		Description: "d",
		Image:       &Image{Filename: "o.png", Body: strings.NewReader("x")},
	})
	require.Error(t, err)
	_, stored := store.objects["orphan"]
	assert.True(t, stored, "uploaded object is not compensated")
	assert.Empty(t, v.Notes())
}

func TestDeleteIsOptimistic(t *testing.T) {
	j, api, store := newFakes()
	v := New(api, store)
	ctx := context.Background()
	_, _ = v.Create(ctx, CreateInput{Name: "a", Description: "1"})
	_, _ = v.Create(ctx, CreateInput{Name: "b", Description: "2"})
	require.Len(t, v.Notes(), 2)

	api.deleteErr = errors.New("network unreachable")
	target, ok := v.Find("1")
	require.True(t, ok)

	err := v.Delete(ctx, target)
	require.Error(t, err)

	_, still := v.Find("1")
	assert.False(t, still, "local removal must not be rolled back")
	assert.Len(t, v.Notes(), 1)

	calls := j.list()
	assert.Equal(t, []string{"remove:a", "deleteNote:1"}, calls[len(calls)-2:])
}

func TestDeleteStorageFailureSkipsMutation(t *testing.T) {
	j, api, store := newFakes()
	v := New(api, store)
	ctx := context.Background()
	n, _ := v.Create(ctx, CreateInput{Name: "a", Description: "1"})

	store.removeErr = errors.New("denied")
	err := v.Delete(ctx, *n)
	require.Error(t, err)
	assert.Empty(t, v.Notes())
	assert.NotContains(t, j.list(), "deleteNote:1")
}

func TestDeleteRequiresID(t *testing.T) {
	_, api, store := newFakes()
	v := New(api, store)
	err := v.Delete(context.Background(), models.Note{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestFetchErrorKeepsLocalState(t *testing.T) {
	_, api, store := newFakes()
	v := New(api, store)
	ctx := context.Background()
	_, _ = v.Create(ctx, CreateInput{Name: "keep", Description: "me"})

	api.listErr = errors.New("timeout")
	require.Error(t, v.Fetch(ctx))
	assert.Len(t, v.Notes(), 1)
}

func TestMountFetchesOnce(t *testing.T) {
	j, api, store := newFakes()
	v := New(api, store)
	require.NoError(t, v.Mount(context.Background()))
	require.NoError(t, v.Mount(context.Background()))
	assert.Equal(t, []string{"listNotes"}, j.list())
}

func TestMountRetriesAfterFailure(t *testing.T) {
	j, api, store := newFakes()
	api.notes = []models.Note{{ID: "1", Name: "n", Description: "d"}}
	v := New(api, store)
	ctx := context.Background()

	api.listErr = errors.New("transient")
	require.Error(t, v.Mount(ctx))
	assert.Empty(t, v.Notes())

	api.listErr = nil
	require.NoError(t, v.Mount(ctx))
	assert.Len(t, v.Notes(), 1)

	require.NoError(t, v.Mount(ctx))
	assert.Equal(t, []string{"listNotes", "listNotes"}, j.list())
}

func TestStaleFetchRevertsOptimisticDelete(t *testing.T) {
	// A refetch that observes the backend before the delete landed puts
	// the note back. Ordering is not enforced.
	_, api, store := newFakes()
	v := New(api, store)
	ctx := context.Background()
	n, _ := v.Create(ctx, CreateInput{Name: "racy", Description: "d"})

	api.deleteErr = errors.New("not yet")
	_ = v.Delete(ctx, *n)
	require.Empty(t, v.Notes())

	require.NoError(t, v.Fetch(ctx))
	assert.Len(t, v.Notes(), 1)
}

func TestOnChangeHook(t *testing.T) {
	_, api, store := newFakes()
	var events []string
	v := New(api, store, WithOnChange(func(kind, name string) {
		events = append(events, kind+":"+name)
	}))
	ctx := context.Background()
	n, _ := v.Create(ctx, CreateInput{Name: "n", Description: "d"})
	_ = v.Delete(ctx, *n)

	assert.Equal(t, []string{"created:n", "fetched:", "deleted:n"}, events)
}

func TestSameNameSharesObjectKey(t *testing.T) {
	// Known defect: the image key is the note name, so two notes with the
	// same name share one object and the second upload wins.
	db := testutil.TestDB(t)
	_, store := testutil.TestStore(t)
	v := New(db, store)
	ctx := context.Background()

	_, err := v.Create(ctx, CreateInput{Name: "dup", Description: "first", Image: &Image{Filename: "1.png", Body: strings.NewReader("one")}})
	require.NoError(t, err)
	_, err = v.Create(ctx, CreateInput{Name: "dup", Description: "second", Image: &Image{Filename: "2.png", Body: strings.NewReader("two")}})
	require.NoError(t, err)

	notes := v.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, notes[0].Image, notes[1].Image)

	info, err := store.Stat(ctx, "dup")
	require.NoError(t, err)
	assert.EqualValues(t, len("two"), info.Size)

	// Deleting either note removes the shared object.
	require.NoError(t, v.Delete(ctx, notes[0]))
	_, err = store.Stat(ctx, "dup")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The surviving note still lists, and so does everything else.
	_, err = v.Create(ctx, CreateInput{Name: "unrelated", Description: "no image"})
	require.NoError(t, err)
	fresh := New(db, store)
	require.NoError(t, fresh.Mount(ctx))
	notes = fresh.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Description)
	assert.Equal(t, "unrelated", notes[1].Name)
}

func TestFetchKeepsNoteWhenImageUnresolved(t *testing.T) {
	_, api, store := newFakes()
	api.notes = []models.Note{
		{ID: "1", Name: "lost", Description: "d", Image: "gone.png"},
		{ID: "2", Name: "plain", Description: "d"},
	}
	v := New(api, store)

	require.NoError(t, v.Fetch(context.Background()))
	notes := v.Notes()
	require.Len(t, notes, 2)
	assert.Empty(t, notes[0].Image)
	assert.Equal(t, "plain", notes[1].Name)
}

func TestDeleteNameThatIsNotAStorageKey(t *testing.T) {
	db := testutil.TestDB(t)
	_, store := testutil.TestStore(t)
	v := New(db, store)
	ctx := context.Background()

	for _, name := range []string{".", "..", "/etc", "a/../.."} {
		_, err := v.Create(ctx, CreateInput{Name: name, Description: "d"})
		require.NoError(t, err, name)
	}
	require.Len(t, v.Notes(), 4)

	for _, n := range v.Notes() {
		assert.NoError(t, v.Delete(ctx, n), n.Name)
	}
	require.NoError(t, v.Fetch(ctx))
	assert.Empty(t, v.Notes())
}
