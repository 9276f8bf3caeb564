package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mynotes/internal/models"
)

type capturedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
	APIKey    string         `json:"-"`
}

// fakeEndpoint answers every POST with body and records the last request.
func fakeEndpoint(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	var last capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last))
		last.APIKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestListNotes(t *testing.T) {
	srv, last := fakeEndpoint(t, http.StatusOK, `{"data":{"listNotes":{"items":[
		{"id":"1","name":"a","description":"first","image":null},
		{"id":"2","name":"b","description":"second","image":"b.png"}
	],"nextToken":null}}}`)

	c := New(srv.URL, WithAPIKey("da2-key"))
	notes, err := c.ListNotes(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].Name)
	assert.Empty(t, notes[0].Image)
	assert.Equal(t, "b.png", notes[1].Image)

	assert.True(t, strings.Contains(last.Query, "listNotes"))
	assert.Equal(t, "da2-key", last.APIKey)
}

func TestListNotes_NoItems(t *testing.T) {
	srv, _ := fakeEndpoint(t, http.StatusOK, `{"data":{"listNotes":{"items":null}}}`)
	notes, err := New(srv.URL).ListNotes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestCreateNote_SendsInput(t *testing.T) {
	srv, last := fakeEndpoint(t, http.StatusOK, `{"data":{"createNote":{"id":"9","name":"n","description":"d","image":"pic.jpg"}}}`)

	c := New(srv.URL)
	n, err := c.CreateNote(context.Background(), models.CreateNoteInput{Name: "n", Description: "d", Image: "pic.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "9", n.ID)

	input, ok := last.Variables["input"].(map[string]any)
	require.True(t, ok, "input variable missing: %#v", last.Variables)
	assert.Equal(t, "n", input["name"])
	assert.Equal(t, "d", input["description"])
	assert.Equal(t, "pic.jpg", input["image"])
	assert.Empty(t, last.APIKey)
}

func TestCreateNote_OmitsEmptyImage(t *testing.T) {
	srv, last := fakeEndpoint(t, http.StatusOK, `{"data":{"createNote":{"id":"9","name":"n","description":"d"}}}`)
	_, err := New(srv.URL).CreateNote(context.Background(), models.CreateNoteInput{Name: "n", Description: "d"})
	require.NoError(t, err)
	input := last.Variables["input"].(map[string]any)
	_, has := input["image"]
	assert.False(t, has)
}

func TestDeleteNote_SendsID(t *testing.T) {
	srv, last := fakeEndpoint(t, http.StatusOK, `{"data":{"deleteNote":{"id":"7","name":"x","description":""}}}`)
	n, err := New(srv.URL).DeleteNote(context.Background(), models.DeleteNoteInput{ID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "7", n.ID)
	assert.Equal(t, map[string]any{"id": "7"}, last.Variables["input"])
	assert.Contains(t, last.Query, "deleteNote")
}

func TestGraphQLErrors(t *testing.T) {
	srv, _ := fakeEndpoint(t, http.StatusOK, `{"data":null,"errors":[{"message":"Unauthorized"},{"message":"bad input"}]}`)
	_, err := New(srv.URL).ListNotes(context.Background())
	require.Error(t, err)

	var gqlErr *Error
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, []string{"Unauthorized", "bad input"}, gqlErr.Messages)
	assert.Contains(t, err.Error(), "Unauthorized; bad input")
}

func TestHTTPStatusError(t *testing.T) {
	srv, _ := fakeEndpoint(t, http.StatusInternalServerError, `oops`)
	_, err := New(srv.URL).DeleteNote(context.Background(), models.DeleteNoteInput{ID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	var gqlErr *Error
	assert.False(t, errors.As(err, &gqlErr), "transport failures are not server errors")
}

func TestTimeoutOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.ListNotes(context.Background())
	require.Error(t, err)
}
