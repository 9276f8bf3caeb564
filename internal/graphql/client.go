// Package graphql is the client for the hosted note API. It runs the
// operation documents in documents.go and decodes their payloads.
package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gql "github.com/hasura/go-graphql-client"

	"github.com/starford/mynotes/internal/backend"
	"github.com/starford/mynotes/internal/models"
)

// Error collects the messages of a GraphQL "errors" array.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Transport failures reported by the client as error entries; these are
// not errors returned by the server.
var transportCodes = map[string]bool{
	gql.ErrRequestError:  true,
	gql.ErrJsonEncode:    true,
	gql.ErrJsonDecode:    true,
	gql.ErrGraphQLDecode: true,
}

// Client talks to a single GraphQL endpoint.
type Client struct {
	gql    *gql.Client
	apiKey string
	http   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.gql = gql.NewClient(endpoint, c.http)
	if c.apiKey != "" {
		key := c.apiKey
		c.gql = c.gql.WithRequestModifier(func(r *http.Request) {
			r.Header.Set("x-api-key", key)
		})
	}
	return c
}

var _ backend.API = (*Client)(nil)

// Do runs one operation and decodes its data object into out.
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	data, err := c.gql.ExecRaw(ctx, query, vars)
	if err != nil {
		return mapError(err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("graphql: decode data: %w", err)
	}
	return nil
}

func mapError(err error) error {
	var list gql.Errors
	if !errors.As(err, &list) {
		return fmt.Errorf("graphql: %w", err)
	}
	gqlErr := &Error{}
	for _, e := range list {
		if code, _ := e.Extensions["code"].(string); transportCodes[code] {
			return fmt.Errorf("graphql: %s: %w", code, err)
		}
		gqlErr.Messages = append(gqlErr.Messages, e.Message)
	}
	return gqlErr
}

// ListNotes runs the listNotes query.
func (c *Client) ListNotes(ctx context.Context) ([]models.Note, error) {
	var data struct {
		ListNotes struct {
			Items []models.Note `json:"items"`
		} `json:"listNotes"`
	}
	if err := c.Do(ctx, ListNotes, nil, &data); err != nil {
		return nil, err
	}
	if data.ListNotes.Items == nil {
		return []models.Note{}, nil
	}
	return data.ListNotes.Items, nil
}

// CreateNote runs the createNote mutation.
func (c *Client) CreateNote(ctx context.Context, in models.CreateNoteInput) (*models.Note, error) {
	var data struct {
		CreateNote *models.Note `json:"createNote"`
	}
	if err := c.Do(ctx, CreateNote, map[string]any{"input": in}, &data); err != nil {
		return nil, err
	}
	if data.CreateNote == nil {
		return nil, fmt.Errorf("graphql: createNote returned no note")
	}
	return data.CreateNote, nil
}

// DeleteNote runs the deleteNote mutation.
func (c *Client) DeleteNote(ctx context.Context, in models.DeleteNoteInput) (*models.Note, error) {
	var data struct {
		DeleteNote *models.Note `json:"deleteNote"`
	}
	if err := c.Do(ctx, DeleteNote, map[string]any{"input": in}, &data); err != nil {
		return nil, err
	}
	return data.DeleteNote, nil
}
