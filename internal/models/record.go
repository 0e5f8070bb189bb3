// Package models defines the domain types for Shelf.
package models

import "time"

// Record types.
const (
	TypeBook = "book"
	TypeNote = "note"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Record is a single book or note entry in the vault.
//
// Pages is a pointer so that "no page count" survives round-trips
// distinctly from zero pages. DateAdded and CreatedAt are fixed at
// insert; UpdatedAt is refreshed on every mutation.
type Record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Pages     *float64  `json:"pages"`
	Tag       string    `json:"tag"`
	ISBN      string    `json:"isbn"`
	Notes     string    `json:"notes,omitempty"`
	DateAdded time.Time `json:"dateAdded"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormInput carries raw form fields as entered by the user, before
// trimming. Validation runs against these raw values; Pages stays a
// string so the two-decimal rule can inspect the literal text.
type FormInput struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  string `json:"pages"`
	Tag    string `json:"tag"`
	ISBN   string `json:"isbn"`
	Notes  string `json:"notes"`
}

// Snapshot is the export document shape.
type Snapshot struct {
	Records    []Record  `json:"records"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Settings holds the user preferences kept alongside the records.
type Settings struct {
	Theme   string `json:"theme"`
	PageCap int    `json:"pageCap"`
}

// DefaultSettings returns the documented defaults used when the
// durable substrate has no stored value.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight, PageCap: 0}
}
