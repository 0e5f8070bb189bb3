package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"shelf/internal/models"
	"shelf/internal/persist"
	"shelf/internal/query"
	"shelf/internal/store"
	"shelf/internal/vaultservice"
)

func testServer(t *testing.T) (*Server, *vaultservice.Service) {
	t.Helper()

	dbFile, err := os.CreateTemp("", "shelf-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := persist.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := vaultservice.NewService(store.New(), db, nil, nil)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no test helper for dispatch, so the handler functions
	// are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_records":
		result, err = srv.searchRecords(ctx, req)
	case "list_records":
		result, err = srv.listRecords(ctx, req)
	case "get_record":
		result, err = srv.getRecord(ctx, req)
	case "add_record":
		result, err = srv.addRecord(ctx, req)
	case "get_stats":
		result, err = srv.getStats(ctx, req)
	case "get_record_contract":
		result, err = srv.getRecordContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddRecordTool(t *testing.T) {
	srv, svc := testServer(t)

	res := callTool(t, srv, "add_record", map[string]interface{}{
		"type":   "book",
		"title":  "Dune",
		"author": "Herbert",
		"pages":  "412",
		"tag":    "scifi",
	})
	if res.IsError {
		t.Fatalf("add_record failed: %s", resultText(res))
	}
	if !strings.HasPrefix(resultText(res), "created: ") {
		t.Errorf("result = %q", resultText(res))
	}

	records := svc.List(context.Background(), query.Options{})
	if len(records) != 1 || records[0].Title != "Dune" {
		t.Fatalf("records = %+v", records)
	}
}

func TestAddRecordTool_RejectsBadForm(t *testing.T) {
	srv, svc := testServer(t)

	res := callTool(t, srv, "add_record", map[string]interface{}{
		"type":  "book",
		"title": "The The Hobbit",
	})
	if !res.IsError {
		t.Fatal("duplicate-word title should be rejected")
	}
	if len(svc.List(context.Background(), query.Options{})) != 0 {
		t.Error("rejected record must not be stored")
	}
}

func TestSearchRecordsTool(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, models.FormInput{Type: models.TypeBook, Title: "Dune", Author: "Herbert"})
	_, _ = svc.Create(ctx, models.FormInput{Type: models.TypeBook, Title: "The Hobbit"})

	res := callTool(t, srv, "search_records", map[string]interface{}{"query": "herbert"})
	text := resultText(res)
	if !strings.Contains(text, "Dune") || strings.Contains(text, "Hobbit") {
		t.Errorf("search result = %s", text)
	}
}

func TestListRecordsTool_FilterByType(t *testing.T) {
	srv, svc := testServer(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, models.FormInput{Type: models.TypeBook, Title: "Dune"})
	_, _ = svc.Create(ctx, models.FormInput{Type: models.TypeNote, Title: "Reading list"})

	res := callTool(t, srv, "list_records", map[string]interface{}{"type": "note"})
	text := resultText(res)
	if !strings.Contains(text, "Reading list") || strings.Contains(text, "Dune") {
		t.Errorf("list result = %s", text)
	}
}

func TestGetRecordTool(t *testing.T) {
	srv, svc := testServer(t)
	rec, _ := svc.Create(context.Background(), models.FormInput{Type: models.TypeBook, Title: "Dune"})

	res := callTool(t, srv, "get_record", map[string]interface{}{"id": rec.ID})
	if res.IsError {
		t.Fatalf("get_record failed: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "Dune") {
		t.Errorf("result = %s", resultText(res))
	}

	res = callTool(t, srv, "get_record", map[string]interface{}{"id": "ghost"})
	if !res.IsError {
		t.Error("missing id should report an error result")
	}
}

func TestGetStatsTool(t *testing.T) {
	srv, svc := testServer(t)
	_, _ = svc.Create(context.Background(), models.FormInput{Type: models.TypeBook, Title: "Dune", Pages: "412", Tag: "scifi"})

	res := callTool(t, srv, "get_stats", nil)
	text := resultText(res)
	if !strings.Contains(text, `"count": 1`) || !strings.Contains(text, "scifi") {
		t.Errorf("stats = %s", text)
	}
}

func TestGetRecordContractTool(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "get_record_contract", nil)
	if resultText(res) != RecordFormatContract {
		t.Error("contract tool should return the canonical contract text")
	}
}
