package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"shelf/internal/models"
	"shelf/internal/testutil"
	"shelf/internal/vaultservice"
)

func testEnv(t *testing.T, authToken string) (*vaultservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestService(t)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createRecord(t *testing.T, router http.Handler, form RecordForm) models.Record {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/records", form)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var rec models.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestCreateAndGetRecord(t *testing.T) {
	_, router := testEnv(t, "")

	rec := createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Author: "Herbert", Pages: "412", Tag: "scifi"})

	w := doJSON(t, router, http.MethodGet, "/records/"+rec.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got models.Record
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Dune" || got.Pages == nil || *got.Pages != 412 {
		t.Errorf("record = %+v", got)
	}
}

func TestCreate_ValidationErrors(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/records", RecordForm{Type: "book", Title: "The The Hobbit", Pages: "12.345"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp fieldErrResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Errors["title"] == "" || resp.Errors["pages"] == "" {
		t.Errorf("errors = %+v", resp.Errors)
	}
}

func TestListRecords_Filtering(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Tag: "scifi"})
	createRecord(t, router, RecordForm{Type: "note", Title: "Reading list", Tag: "scifi"})
	createRecord(t, router, RecordForm{Type: "book", Title: "The Hobbit", Tag: "fantasy"})

	w := doJSON(t, router, http.MethodGet, "/records?type=book&tag=scifi", nil)
	var resp RecordListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Records[0].Title != "Dune" {
		t.Fatalf("filtered = %+v", resp)
	}
}

func TestUpdateRecord(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createRecord(t, router, RecordForm{Type: "book", Title: "Dune"})

	w := doJSON(t, router, http.MethodPut, "/records/"+rec.ID, RecordForm{Type: "book", Title: "Dune Messiah", Author: "Herbert"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var got models.Record
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Dune Messiah" || got.ID != rec.ID {
		t.Errorf("updated = %+v", got)
	}
}

func TestUpdateRecord_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := doJSON(t, router, http.MethodPut, "/records/ghost", RecordForm{Type: "book", Title: "Dune"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteRecord_Idempotent(t *testing.T) {
	_, router := testEnv(t, "")
	rec := createRecord(t, router, RecordForm{Type: "note", Title: "Scratch"})

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodDelete, "/records/"+rec.ID, nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("delete #%d status = %d", i+1, w.Code)
		}
	}
}

func TestDeleteAllRecords(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune"})
	createRecord(t, router, RecordForm{Type: "book", Title: "The Hobbit"})

	if w := doJSON(t, router, http.MethodDelete, "/records", nil); w.Code != http.StatusNoContent {
		t.Fatalf("bulk delete status = %d", w.Code)
	}
	w := doJSON(t, router, http.MethodGet, "/records", nil)
	var resp RecordListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 {
		t.Fatalf("total = %d after bulk delete", resp.Total)
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Author: "Herbert"})
	createRecord(t, router, RecordForm{Type: "book", Title: "The Hobbit"})

	w := doJSON(t, router, http.MethodGet, "/search?q=dune", nil)
	var resp RecordListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Records[0].Title != "Dune" {
		t.Fatalf("search = %+v", resp)
	}
}

func TestTags(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Tag: "scifi"})
	createRecord(t, router, RecordForm{Type: "book", Title: "Foundation", Tag: "scifi"})

	w := doJSON(t, router, http.MethodGet, "/tags", nil)
	var resp TagListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 1 || resp.Tags[0].Count != 2 {
		t.Fatalf("tags = %+v", resp)
	}
}

func TestValidateEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/validate", RecordForm{Type: "book", Title: " Dune"})
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d", w.Code)
	}
	var resp ValidateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Valid || resp.Errors["title"] == "" {
		t.Fatalf("resp = %+v", resp)
	}

	w = doJSON(t, router, http.MethodPost, "/validate", RecordForm{Type: "book", Title: "Dune"})
	resp = ValidateResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Valid || len(resp.Errors) != 0 {
		t.Fatalf("resp = %+v, want valid", resp)
	}
}

func TestExportDownload(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune"})

	w := doJSON(t, router, http.MethodGet, "/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="shelf-export.json"` {
		t.Errorf("content-disposition = %q", cd)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("export body: %v", err)
	}
	if len(snap.Records) != 1 || snap.ExportedAt.IsZero() {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestImport_RawJSONBody(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Author: "Herbert"})

	payload := `{"records":[{"title":"DUNE","author":"herbert"},{"title":"New Book","author":"X"}]}`
	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader([]byte(payload)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accepted != 1 || resp.Skipped != 1 {
		t.Fatalf("summary = %+v", resp)
	}
}

func TestImport_MultipartUpload(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "backup.json")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(`[{"title":"Dune"}]`))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accepted != 1 {
		t.Fatalf("summary = %+v", resp)
	}
}

func TestImport_BadPayload(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader([]byte(`{"foo":1}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/settings/theme", ThemeRequest{Theme: "dark"})
	if w.Code != http.StatusOK {
		t.Fatalf("set theme status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPut, "/settings/cap", CapRequest{Cap: 1500})
	if w.Code != http.StatusOK {
		t.Fatalf("set cap status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/settings", nil)
	var s models.Settings
	_ = json.Unmarshal(w.Body.Bytes(), &s)
	if s.Theme != "dark" || s.PageCap != 1500 {
		t.Fatalf("settings = %+v", s)
	}

	if w := doJSON(t, router, http.MethodPut, "/settings/theme", ThemeRequest{Theme: "sepia"}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid theme status = %d, want 422", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createRecord(t, router, RecordForm{Type: "book", Title: "Dune", Pages: "412", Tag: "scifi"})

	w := doJSON(t, router, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var d vaultservice.Dashboard
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Totals.Count != 1 || d.Totals.TotalPages != 412 {
		t.Errorf("totals = %+v", d.Totals)
	}
	if len(d.Trend) != 7 {
		t.Errorf("trend buckets = %d", len(d.Trend))
	}
}

func TestConcurrentCreateRequests(t *testing.T) {
	_, router := testEnv(t, "")

	const n = 30
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			_ = json.NewEncoder(&buf).Encode(RecordForm{Type: "book", Title: fmt.Sprintf("Book %d", i)})
			req := httptest.NewRequest(http.MethodPost, "/records", &buf)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes <- w.Code
		}(i)
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		if code != http.StatusCreated {
			t.Fatalf("create status = %d", code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/records", nil)
	var resp RecordListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != n {
		t.Fatalf("total = %d, want %d", resp.Total, n)
	}
}

func TestAuth(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", w.Code)
	}
}
