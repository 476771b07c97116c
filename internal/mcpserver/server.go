// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes noor notes, images and the screenshot pipeline over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/notes"
	"github.com/starford/noor/internal/screenshots"
)

const contractURI = "noor://note-format"

// Server wraps the MCP server with noor tools.
type Server struct {
	mcp      *server.MCPServer
	notes    *notes.Repository
	lib      *media.Library
	pipeline *screenshots.Pipeline
}

// New creates a new MCP server with all tools registered.
func New(repo *notes.Repository, lib *media.Library, pipeline *screenshots.Pipeline) *Server {
	s := &Server{notes: repo, lib: lib, pipeline: pipeline}

	s.mcp = server.NewMCPServer(
		"Noor",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search over note titles, content and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full Markdown content of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes or search_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note. The title becomes the heading and the "+
			"file name; content is the body below the heading. Read the contract first via "+
			"the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body, without the title heading")),
		mcp.WithString("folder", mcp.Description("Optional folder id (relative directory)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the noor note format contract. "+
			"Call this before creating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or the notes directly in a folder, newest first."),
		mcp.WithString("folder", mcp.Description("Optional folder id (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_image_folders",
		mcp.WithDescription("List the image folders of the media library with their image counts."),
	), s.listImageFolders)

	s.mcp.AddTool(mcp.NewTool("scan_screenshots",
		mcp.WithDescription("Look for new screenshots and add them to the pending OCR list."),
	), s.scanScreenshots)

	s.mcp.AddTool(mcp.NewTool("process_pending",
		mcp.WithDescription("Run OCR on every pending screenshot and create one note per image."),
	), s.processPending)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Import an image into the media library inbox from a data URI "+
			"(data:image/png;base64,...) or an http/https URL. Returns the indexed image and a "+
			"markdownImage snippet for note bodies."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Data URI or http/https URL")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL or content otherwise")),
	), s.importImage)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown note format that all notes follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

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

type noteSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	FolderID   *string  `json:"folderId,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	ModifiedAt int64    `json:"modifiedAt"`
}

func summarize(list []models.Note) []noteSummary {
	out := make([]noteSummary, 0, len(list))
	for _, n := range list {
		s := noteSummary{ID: n.ID, Title: n.Title, FolderID: n.FolderID, ModifiedAt: n.ModifiedAt}
		for _, t := range n.Tags {
			s.Tags = append(s.Tags, t.DisplayName())
		}
		out = append(out, s)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optionalString(req mcp.CallToolRequest, name string) string {
	v, err := req.RequireString(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summarize(s.notes.Search(query)))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.ByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(string(notes.Render(n))), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var folder *string
	if f := optionalString(req, "folder"); f != "" {
		folder = &f
	}

	n, err := s.notes.CreateWithContent(ctx, title, folder, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": n.ID, "title": n.Title, "filePath": n.FilePath})
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.notes.All()
	if f := optionalString(req, "folder"); f != "" {
		list = s.notes.ByFolder(&f)
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	lines := make([]string, 0, len(list))
	for _, n := range list {
		lines = append(lines, n.ID+"\t"+n.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

type folderSummary struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Images int    `json:"images"`
}

func (s *Server) listImageFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.lib.Folders(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]folderSummary, 0, len(folders))
	for _, f := range folders {
		out = append(out, folderSummary{Name: f.Name, Path: f.Path, Images: len(f.Images)})
	}
	return jsonResult(out)
}

func (s *Server) scanScreenshots(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.pipeline.Scan(ctx)
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(res)
}

func (s *Server) processPending(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.pipeline.ProcessPending(ctx))
}
