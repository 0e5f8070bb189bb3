package api

import (
	"shelf/internal/models"
	"shelf/internal/query"
	"shelf/internal/vaultservice"
)

// RecordForm is the request body for creating, updating or validating
// a record. Fields arrive raw (untrimmed); pages stays a string so the
// decimal rule can inspect the literal input.
type RecordForm = models.FormInput

// RecordListResponse wraps record listings.
type RecordListResponse struct {
	Records []models.Record `json:"records"`
	Total   int             `json:"total"`
}

// TagListResponse wraps tag counts in first-seen order.
type TagListResponse struct {
	Tags []query.TagCount `json:"tags"`
}

// ImportResponse reports the import-merge outcome.
type ImportResponse = vaultservice.ImportSummary

// ValidateResponse reports form validity; Errors is empty when valid.
type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// ThemeRequest sets the UI theme.
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// CapRequest sets the page cap; 0 disables it.
type CapRequest struct {
	Cap int `json:"cap"`
}

// ExportFileResponse reports where an export artifact was written.
type ExportFileResponse struct {
	Path string `json:"path"`
}
