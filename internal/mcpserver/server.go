// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Shelf tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"shelf/internal/models"
	"shelf/internal/query"
	"shelf/internal/vaultservice"
)

// Server wraps the MCP server with Shelf tools.
type Server struct {
	mcp *server.MCPServer
	svc *vaultservice.Service
}

// New creates a new MCP server with all Shelf tools registered.
func New(svc *vaultservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Shelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search the vault. The query is tried as a case-insensitive "+
			"regular expression over title, author, tag, isbn, notes, pages and type; "+
			"an invalid pattern falls back to substring matching."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List records, optionally narrowed by type and tag."),
		mcp.WithString("type", mcp.Description("Optional record type: book or note")),
		mcp.WithString("tag", mcp.Description("Optional exact tag match")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read a single record by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("add_record",
		mcp.WithDescription("Add a book or note record. Fields MUST satisfy the record "+
			"format contract; read it first via the get_record_contract tool or the "+
			"shelf://record-format resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Record type: book or note")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title, no leading/trailing spaces, no repeated words")),
		mcp.WithString("author", mcp.Description("Author, free text")),
		mcp.WithString("pages", mcp.Description("Page count, non-negative, at most 2 decimals")),
		mcp.WithString("tag", mcp.Description("Tag: letters, spaces and hyphens only")),
		mcp.WithString("isbn", mcp.Description("ISBN, free text")),
		mcp.WithString("notes", mcp.Description("Note body, free text")),
	), s.addRecord)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Dashboard statistics: totals, top tag, 7-day trend and page cap status."),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the canonical Shelf record format contract. "+
			"Call this before adding records to ensure fields validate."),
	), s.getRecordContract)

	s.mcp.AddResource(
		mcp.NewResource("shelf://record-format", "Record Format Contract",
			mcp.WithResourceDescription("Canonical record fields and validation rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records := s.svc.Search(ctx, q)
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := query.Options{}
	if t, err := req.RequireString("type"); err == nil {
		opts.Type = t
	}
	if tag, err := req.RequireString("tag"); err == nil {
		opts.Tag = tag
	}
	records := s.svc.List(ctx, opts)
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	form := models.FormInput{Type: typ, Title: title}
	if v, err := req.RequireString("author"); err == nil {
		form.Author = v
	}
	if v, err := req.RequireString("pages"); err == nil {
		form.Pages = v
	}
	if v, err := req.RequireString("tag"); err == nil {
		form.Tag = v
	}
	if v, err := req.RequireString("isbn"); err == nil {
		form.ISBN = v
	}
	if v, err := req.RequireString("notes"); err == nil {
		form.Notes = v
	}

	rec, err := s.svc.Create(ctx, form)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", rec.ID)), nil
}

func (s *Server) getStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Stats(ctx, time.Now()), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "shelf://record-format",
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
