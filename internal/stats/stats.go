// Package stats derives dashboard aggregates from the record
// collection: totals, top tag, page-cap status and the 7-day trend.
package stats

import (
	"time"

	"shelf/internal/models"
	"shelf/internal/query"
)

// Totals are the headline counters.
type Totals struct {
	Count      int     `json:"count"`
	TotalPages float64 `json:"totalPages"`
}

// TopTag is the most frequent tag. Ties go to the tag seen first in
// insertion order.
type TopTag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TrendBucket is one calendar day in the trailing-week trend.
type TrendBucket struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

// CapStatus reports the page cap against the current page total.
type CapStatus struct {
	Cap       int     `json:"cap"`
	Remaining float64 `json:"remaining"`
	Exceeded  bool    `json:"exceeded"`
}

// ComputeTotals sums the collection, treating absent pages as zero.
func ComputeTotals(records []models.Record) Totals {
	t := Totals{Count: len(records)}
	for _, r := range records {
		if r.Pages != nil {
			t.TotalPages += *r.Pages
		}
	}
	return t
}

// ComputeTopTag returns the tag with the highest count, or ok=false
// when no record carries a tag. Tag aggregation preserves first-seen
// order, so a strict ">" comparison yields first-seen-wins on ties.
func ComputeTopTag(records []models.Record) (TopTag, bool) {
	counts := query.TagCounts(records)
	if len(counts) == 0 {
		return TopTag{}, false
	}
	best := counts[0]
	for _, tc := range counts[1:] {
		if tc.Count > best.Count {
			best = tc
		}
	}
	return TopTag{Tag: best.Tag, Count: best.Count}, true
}

// Trend buckets records by the local calendar day of DateAdded over
// the 7 days ending at today, oldest bucket first. Records outside the
// window are excluded, not clamped.
func Trend(records []models.Record, today time.Time) []TrendBucket {
	buckets := make([]TrendBucket, 7)
	start := midnight(today).AddDate(0, 0, -6)
	for i := range buckets {
		d := start.AddDate(0, 0, i)
		buckets[i] = TrendBucket{Date: d, Label: d.Format("Jan 2")}
	}
	for _, r := range records {
		if r.DateAdded.IsZero() {
			continue
		}
		day := midnight(r.DateAdded.In(today.Location()))
		for i := range buckets {
			if day.Equal(buckets[i].Date) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// ComputeCapStatus compares a configured page cap against the current
// page total. A cap of 0 means disabled; callers should omit the
// status entirely in that case.
func ComputeCapStatus(cap int, totalPages float64) CapStatus {
	remaining := float64(cap) - totalPages
	return CapStatus{
		Cap:       cap,
		Remaining: remaining,
		Exceeded:  remaining < 0,
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
