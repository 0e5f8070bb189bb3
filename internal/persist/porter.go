package persist

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"shelf/internal/apperr"
	"shelf/internal/models"
)

// ExportBaseName is the fixed base name of the export artifact.
const ExportBaseName = "shelf-export.json"

// ImportResult is the outcome of an import-merge: the records to
// commit and the number of incoming records skipped as duplicates.
type ImportResult struct {
	Accepted []models.Record
	Skipped  int
}

// ExportSnapshot builds a serializable snapshot of the collection.
func ExportSnapshot(records []models.Record, now time.Time) models.Snapshot {
	if records == nil {
		records = []models.Record{}
	}
	return models.Snapshot{Records: records, ExportedAt: now}
}

// MarshalSnapshot renders a snapshot pretty-printed, the shape offered
// as a downloadable artifact.
func MarshalSnapshot(s models.Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ImportMerge parses an import payload and reconciles it against the
// existing collection.
//
// The payload may be either `{"records": [...]}` or a bare array of
// record-like objects; anything else is a FormatError and nothing is
// merged. Each incoming item is normalized (fresh id, defaulted type,
// title and timestamps) and then rejected as a duplicate when its id
// or its lowercase title|author composite key matches an existing
// record. The duplicate check only looks at the existing collection:
// two fresh duplicates inside the same batch are both accepted.
func ImportMerge(data []byte, existing []models.Record, now time.Time) (ImportResult, error) {
	items, err := decodeImportItems(data)
	if err != nil {
		return ImportResult{}, err
	}

	ids := make(map[string]struct{}, len(existing))
	keys := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		ids[r.ID] = struct{}{}
		keys[compositeKey(r.Title, r.Author)] = struct{}{}
	}

	var accepted []models.Record
	for _, item := range items {
		rec := normalizeImported(item, now)
		if _, dup := ids[rec.ID]; dup {
			continue
		}
		if _, dup := keys[compositeKey(rec.Title, rec.Author)]; dup {
			continue
		}
		accepted = append(accepted, rec)
	}

	return ImportResult{Accepted: accepted, Skipped: len(items) - len(accepted)}, nil
}

// decodeImportItems accepts the two supported payload shapes and
// returns the raw record-like objects.
func decodeImportItems(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, apperr.Formatf("Failed to import: %v", err)
	}

	var rawItems []any
	switch v := parsed.(type) {
	case map[string]any:
		arr, ok := v["records"].([]any)
		if !ok {
			return nil, apperr.Formatf("Invalid file format. Expected { records: [...] } or an array.")
		}
		rawItems = arr
	case []any:
		rawItems = v
	default:
		return nil, apperr.Formatf("Invalid file format. Expected { records: [...] } or an array.")
	}

	items := make([]map[string]any, 0, len(rawItems))
	for _, it := range rawItems {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, apperr.Formatf("Invalid file format. Expected { records: [...] } or an array.")
		}
		items = append(items, obj)
	}
	return items, nil
}

// normalizeImported fills every missing field with its default: fresh
// id, type "book", title "Untitled", empty strings, absent pages, and
// the current time for missing timestamps.
func normalizeImported(item map[string]any, now time.Time) models.Record {
	id := asString(item["id"])
	if id == "" {
		id = uuid.NewString()
	}
	typ := asString(item["type"])
	if typ == "" {
		typ = models.TypeBook
	}
	title := asString(item["title"])
	if title == "" {
		title = "Untitled"
	}
	return models.Record{
		ID:        id,
		Type:      typ,
		Title:     title,
		Author:    asString(item["author"]),
		Pages:     asPages(item["pages"]),
		Tag:       asString(item["tag"]),
		ISBN:      asString(item["isbn"]),
		Notes:     asString(item["notes"]),
		DateAdded: asTime(item["dateAdded"], now),
		CreatedAt: asTime(item["createdAt"], now),
		UpdatedAt: asTime(item["updatedAt"], now),
	}
}

func compositeKey(title, author string) string {
	return strings.ToLower(title) + "|" + strings.ToLower(author)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func asPages(v any) *float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func asTime(v any, fallback time.Time) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t
}
