// Package vaultservice coordinates the record store, the durable
// substrate and change events. It is the surface a presentation layer
// (REST, MCP) calls into.
package vaultservice

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"shelf/internal/apperr"
	"shelf/internal/models"
	"shelf/internal/persist"
	"shelf/internal/query"
	"shelf/internal/stats"
	"shelf/internal/storage"
	"shelf/internal/store"
	"shelf/internal/validate"
)

// EventFunc is called after each committed mutation with the event
// kind and the affected record id (empty for bulk operations).
type EventFunc func(kind, id string)

// Dashboard aggregates everything the stats view needs.
type Dashboard struct {
	Totals stats.Totals        `json:"totals"`
	TopTag *stats.TopTag       `json:"topTag,omitempty"`
	Trend  []stats.TrendBucket `json:"trend"`
	Cap    *stats.CapStatus    `json:"cap,omitempty"`
}

// ImportSummary is the user-facing outcome of an import.
type ImportSummary struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// Service owns the write path: every mutation goes through the store
// and is then written through to the durable substrate. A failed
// write-through is logged and otherwise ignored; the in-memory state
// stays authoritative for the session.
//
// Mutations are serialized by mu so that mutate, persist and publish
// form one unit, and so Import's duplicate check runs against a
// collection no other goroutine is changing.
type Service struct {
	mu      sync.Mutex
	store   *store.Store
	db      *persist.DB
	exports *storage.Dir // nil disables file export
	events  EventFunc    // nil disables events
}

// NewService creates a service. exports and events may be nil.
func NewService(st *store.Store, db *persist.DB, exports *storage.Dir, events EventFunc) *Service {
	return &Service{store: st, db: db, exports: exports, events: events}
}

// Load reads the persisted collection into the store. A failed read
// leaves the store empty; the error is returned for logging only.
func (s *Service) Load(_ context.Context) (int, error) {
	records, err := s.db.LoadRecords()
	if err != nil {
		s.store.ReplaceAll(nil)
		return 0, err
	}
	s.store.ReplaceAll(records)
	return len(records), nil
}

// List returns records narrowed by the given options, in insertion
// order.
func (s *Service) List(_ context.Context, opts query.Options) []models.Record {
	return query.Filter(s.store.List(), opts)
}

// Get returns one record by id.
func (s *Service) Get(_ context.Context, id string) (models.Record, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return models.Record{}, apperr.ErrNotFound
	}
	return rec, nil
}

// Validate runs form validation without committing anything. A nil
// return means the form is valid.
func (s *Service) Validate(_ context.Context, form models.FormInput) *apperr.ValidationError {
	return validate.Form(form)
}

// Create validates the form, inserts a record, persists and publishes.
func (s *Service) Create(_ context.Context, form models.FormInput) (models.Record, error) {
	if verr := validate.Form(form); verr != nil {
		return models.Record{}, verr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.store.Create(fieldsFromForm(form))
	if err != nil {
		return models.Record{}, err
	}
	s.persistRecords()
	s.publish("created", rec.ID)
	return rec, nil
}

// Update validates the form and replaces all mutable fields on the
// matching record. A missing id is an explicit error.
func (s *Service) Update(_ context.Context, id string, form models.FormInput) (models.Record, error) {
	if verr := validate.Form(form); verr != nil {
		return models.Record{}, verr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.store.Update(id, fieldsFromForm(form))
	if err != nil {
		return models.Record{}, err
	}
	s.persistRecords()
	s.publish("updated", rec.ID)
	return rec, nil
}

// Delete removes a record. Deleting a nonexistent id is a no-op.
func (s *Service) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Delete(id)
	s.persistRecords()
	s.publish("deleted", id)
}

// DeleteAll clears the whole collection.
func (s *Service) DeleteAll(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ReplaceAll(nil)
	s.persistRecords()
	s.publish("cleared", "")
}

// Search runs the query engine over the full collection.
func (s *Service) Search(_ context.Context, q string) []models.Record {
	return query.Search(q, s.store.List())
}

// Tags returns tag counts in first-seen order.
func (s *Service) Tags(_ context.Context) []query.TagCount {
	return query.TagCounts(s.store.List())
}

// Stats builds the dashboard aggregates for the given reference time.
func (s *Service) Stats(_ context.Context, now time.Time) Dashboard {
	records := s.store.List()
	d := Dashboard{
		Totals: stats.ComputeTotals(records),
		Trend:  stats.Trend(records, now),
	}
	if top, ok := stats.ComputeTopTag(records); ok {
		d.TopTag = &top
	}
	pageCap, err := s.db.PageCap()
	if err != nil {
		slog.Warn("read page cap failed", slog.String("error", err.Error()))
	}
	if pageCap > 0 {
		cs := stats.ComputeCapStatus(pageCap, d.Totals.TotalPages)
		d.Cap = &cs
	}
	return d
}

// Export builds a snapshot of the current collection.
func (s *Service) Export(_ context.Context, now time.Time) models.Snapshot {
	return persist.ExportSnapshot(s.store.List(), now)
}

// ExportToFile writes the snapshot artifact into the export directory
// and returns its absolute path.
func (s *Service) ExportToFile(ctx context.Context, now time.Time) (string, error) {
	if s.exports == nil {
		return "", apperr.Formatf("export directory is not configured")
	}
	data, err := persist.MarshalSnapshot(s.Export(ctx, now))
	if err != nil {
		return "", err
	}
	if err := s.exports.Write(persist.ExportBaseName, data); err != nil {
		return "", err
	}
	return s.exports.Root() + "/" + persist.ExportBaseName, nil
}

// Import merges an import payload into the collection. Either the
// whole payload parses and the accepted records are committed, or a
// FormatError is returned and nothing changes.
func (s *Service) Import(_ context.Context, data []byte) (ImportSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := persist.ImportMerge(data, s.store.List(), time.Now())
	if err != nil {
		return ImportSummary{}, err
	}
	if len(res.Accepted) > 0 {
		s.store.Append(res.Accepted...)
		s.persistRecords()
		s.publish("imported", "")
	}
	return ImportSummary{Accepted: len(res.Accepted), Skipped: res.Skipped}, nil
}

// Settings returns the current theme and page cap, with defaults for
// anything unreadable.
func (s *Service) Settings(_ context.Context) models.Settings {
	out := models.DefaultSettings()
	if theme, err := s.db.Theme(); err == nil {
		out.Theme = theme
	} else {
		slog.Warn("read theme failed", slog.String("error", err.Error()))
	}
	if pageCap, err := s.db.PageCap(); err == nil {
		out.PageCap = pageCap
	} else {
		slog.Warn("read page cap failed", slog.String("error", err.Error()))
	}
	return out
}

// SetTheme stores the theme after checking the enum.
func (s *Service) SetTheme(_ context.Context, theme string) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return &apperr.ValidationError{Fields: map[string]string{
			"theme": "Theme must be 'light' or 'dark'.",
		}}
	}
	return s.db.SetTheme(theme)
}

// SetPageCap stores the page cap after checking it is non-negative.
func (s *Service) SetPageCap(_ context.Context, pageCap int) error {
	if pageCap < 0 {
		return &apperr.ValidationError{Fields: map[string]string{
			"cap": "Page cap must be a non-negative integer.",
		}}
	}
	return s.db.SetPageCap(pageCap)
}

func (s *Service) persistRecords() {
	if err := s.db.SaveRecords(s.store.List()); err != nil {
		slog.Warn("write-through persist failed", slog.String("error", err.Error()))
	}
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events(kind, id)
	}
}

func fieldsFromForm(f models.FormInput) store.Fields {
	return store.Fields{
		Type:   f.Type,
		Title:  f.Title,
		Author: f.Author,
		Pages:  parsePages(f.Pages),
		Tag:    f.Tag,
		ISBN:   f.ISBN,
		Notes:  f.Notes,
	}
}

// parsePages converts a validated pages string to a number; empty
// means absent.
func parsePages(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
