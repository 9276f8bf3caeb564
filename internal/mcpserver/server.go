// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note collection to LLM clients via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mynotes/internal/notebook"
)

// Server wraps the MCP server with note tools.
type Server struct {
	mcp  *server.MCPServer
	view *notebook.View
}

// New creates a new MCP server with all note tools registered.
func New(view *notebook.View, version string) *Server {
	s := &Server{view: view}

	s.mcp = server.NewMCPServer(
		"mynotes",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes currently loaded, as JSON. Call fetch_notes first to reload from the backend."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("fetch_notes",
		mcp.WithDescription("Reload every note from the backend and return them as JSON."),
	), s.fetchNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The optional image is stored under the note name, "+
			"so a second note with the same name replaces the first note's image."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name, also used as the image key")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Note description")),
		mcp.WithString("image", mcp.Description("Optional image as a base64 data URI (data:image/png;base64,...)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a loaded note by id, together with its stored image."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.deleteNote)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.view.Mount(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(s.view.Notes(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) fetchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.view.Fetch(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.listNotes(ctx, req)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := notebook.CreateInput{Name: name, Description: description}
	if uri := req.GetString("image", ""); uri != "" {
		data, ext, err := decodeDataURI(uri)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(data) > maxImageSize {
			return mcp.NewToolResultError(fmt.Sprintf("image too large: %d bytes (max %d)", len(data), maxImageSize)), nil
		}
		if err := validateMagicBytes(data, ext); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.Image = &notebook.Image{Filename: imageFilename(ext), Body: bytes.NewReader(data)}
	}

	created, err := s.view.Create(ctx, in)
	if err != nil && created == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(created)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok := s.view.Find(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("note not loaded: %s", id)), nil
	}
	if err := s.view.Delete(ctx, note); err != nil {
		return mcp.NewToolResultError(errors.Join(errors.New("removed locally, backend delete failed"), err).Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}
