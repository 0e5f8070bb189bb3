package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shelf/internal/persist"
	"shelf/internal/query"
	"shelf/internal/vaultservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *vaultservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *vaultservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListRecords handles GET /api/records with optional type, tag and q
// narrowing.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records := h.svc.List(r.Context(), query.Options{
		Type:  q.Get("type"),
		Tag:   q.Get("tag"),
		Query: q.Get("q"),
	})
	writeJSON(w, http.StatusOK, RecordListResponse{Records: records, Total: len(records)})
}

// GetRecord handles GET /api/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateRecord handles POST /api/records.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	form, ok := decodeForm(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Create(r.Context(), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateRecord handles PUT /api/records/{id}. All mutable fields are
// replaced; a missing id is 404.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	form, ok := decodeForm(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/{id}. Delete is idempotent:
// an unknown id still returns 204.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllRecords handles DELETE /api/records.
func (h *Handler) DeleteAllRecords(w http.ResponseWriter, r *http.Request) {
	h.svc.DeleteAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	records := h.svc.Search(r.Context(), q)
	writeJSON(w, http.StatusOK, RecordListResponse{Records: records, Total: len(records)})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags := h.svc.Tags(r.Context())
	if tags == nil {
		tags = []query.TagCount{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context(), time.Now()))
}

// Validate handles POST /api/validate: runs form validation without
// committing anything.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	form, ok := decodeForm(w, r)
	if !ok {
		return
	}
	resp := ValidateResponse{Valid: true, Errors: map[string]string{}}
	if verr := h.svc.Validate(r.Context(), form); verr != nil {
		resp.Valid = false
		resp.Errors = verr.Fields
	}
	writeJSON(w, http.StatusOK, resp)
}

// Export handles GET /api/export: the pretty-printed snapshot offered
// as a download under its fixed base name.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Export(r.Context(), time.Now())
	data, err := persist.MarshalSnapshot(snap)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+persist.ExportBaseName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportToFile handles POST /api/export: writes the snapshot artifact
// into the configured export directory.
func (h *Handler) ExportToFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.ExportToFile(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ExportFileResponse{Path: path})
}

// Import handles POST /api/import. The payload is either a multipart
// upload under the "file" field or a raw JSON body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	data, err := importPayload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read import payload"))
		return
	}

	summary, err := h.svc.Import(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Settings handles GET /api/settings.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// SetTheme handles PUT /api/settings/theme.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetTheme(r.Context(), req.Theme); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// SetCap handles PUT /api/settings/cap.
func (h *Handler) SetCap(w http.ResponseWriter, r *http.Request) {
	var req CapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetPageCap(r.Context(), req.Cap); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

func decodeForm(w http.ResponseWriter, r *http.Request) (RecordForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var form RecordForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return RecordForm{}, false
	}
	return form, true
}

// importPayload extracts the import bytes from either a multipart
// "file" field or the raw request body.
func importPayload(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(r.Body)
}
