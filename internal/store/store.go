// Package store implements the in-memory record collection, the single
// source of truth for the process lifetime.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shelf/internal/apperr"
	"shelf/internal/models"
)

// Store owns the ordered record collection. It is explicitly
// constructed and passed to the components that need it; load-on-start
// happens through ReplaceAll, write-through persistence is the
// caller's responsibility.
//
// Safe for concurrent use: HTTP handlers and the drop-folder importer
// reach the store from separate goroutines, so every method takes the
// collection lock.
type Store struct {
	mu      sync.RWMutex
	records []models.Record
	now     func() time.Time
}

// New returns an empty store using wall-clock time.
func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock returns an empty store with an injectable clock, used
// by tests that assert on timestamp behavior.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// Mutable record fields applied by Update; id, createdAt and dateAdded
// never change after insert.
type Fields struct {
	Type   string
	Title  string
	Author string
	Pages  *float64
	Tag    string
	ISBN   string
	Notes  string
}

// Create inserts a new record with a fresh unique id and timestamps.
// Input is expected to be pre-validated; the title check here is a
// defensive backstop.
func (s *Store) Create(f Fields) (models.Record, error) {
	if strings.TrimSpace(f.Title) == "" {
		return models.Record{}, &apperr.ValidationError{
			Fields: map[string]string{"title": "Title is required."},
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := models.Record{
		ID:        uuid.NewString(),
		Type:      f.Type,
		Title:     strings.TrimSpace(f.Title),
		Author:    strings.TrimSpace(f.Author),
		Pages:     f.Pages,
		Tag:       strings.TrimSpace(f.Tag),
		ISBN:      strings.TrimSpace(f.ISBN),
		Notes:     f.Notes,
		DateAdded: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records = append(s.records, rec)
	return rec, nil
}

// Update replaces all mutable fields on the matching record and
// refreshes updatedAt. Referencing a missing id is an explicit error,
// not a silent no-op.
func (s *Store) Update(id string, f Fields) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Record{}, apperr.ErrNotFound
	}
	r := &s.records[i]
	r.Type = f.Type
	r.Title = strings.TrimSpace(f.Title)
	r.Author = strings.TrimSpace(f.Author)
	r.Pages = f.Pages
	r.Tag = strings.TrimSpace(f.Tag)
	r.ISBN = strings.TrimSpace(f.ISBN)
	r.Notes = f.Notes
	r.UpdatedAt = s.now()
	return *r, nil
}

// Delete removes the record with the given id. Deleting a nonexistent
// id is a no-op: delete is idempotent.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Record{}, false
	}
	return s.records[i], true
}

// List returns the records in stable insertion order. The returned
// slice is a copy; mutating it does not affect the store.
func (s *Store) List() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ReplaceAll swaps in a new collection wholesale. Used by the initial
// load, bulk delete, and the import-merge commit.
func (s *Store) ReplaceAll(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make([]models.Record, len(records))
	copy(s.records, records)
}

// Append inserts already-normalized records (from an import batch)
// preserving their ids and timestamps.
func (s *Store) Append(records ...models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}
