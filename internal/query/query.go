// Package query implements read-only transformations over the record
// collection: search, cumulative filtering, and tag aggregation.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"shelf/internal/models"
)

// Options narrows a record listing. Zero-value fields are skipped;
// Type and Tag are exact matches, Query goes through Search.
type Options struct {
	Type  string
	Tag   string
	Query string
}

// TagCount is one tag with its number of occurrences. Aggregation is
// case-sensitive and preserves first-seen order, which the statistics
// layer relies on for tie-breaking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Search returns the records matching query. An empty or
// whitespace-only query returns the input unchanged. The query is
// first tried as a case-insensitive regular expression over a joined
// per-record haystack; if it does not compile, it degrades to a
// literal case-insensitive substring match.
func Search(q string, records []models.Record) []models.Record {
	if strings.TrimSpace(q) == "" {
		return records
	}

	match := func(hay string) bool {
		return strings.Contains(hay, strings.ToLower(q))
	}
	if re, err := regexp.Compile("(?i)" + q); err == nil {
		match = re.MatchString
	}

	var out []models.Record
	for _, r := range records {
		if match(Haystack(r)) {
			out = append(out, r)
		}
	}
	return out
}

// Filter applies type, tag and query narrowing cumulatively, each only
// when the corresponding option is set.
func Filter(records []models.Record, opts Options) []models.Record {
	filtered := records
	if opts.Type != "" {
		filtered = keep(filtered, func(r models.Record) bool { return r.Type == opts.Type })
	}
	if opts.Tag != "" {
		filtered = keep(filtered, func(r models.Record) bool { return r.Tag == opts.Tag })
	}
	if opts.Query != "" {
		filtered = Search(opts.Query, filtered)
	}
	return filtered
}

// TagCounts counts non-empty tags in first-seen order, without any
// case normalization.
func TagCounts(records []models.Record) []TagCount {
	index := map[string]int{}
	var out []TagCount
	for _, r := range records {
		if r.Tag == "" {
			continue
		}
		if i, ok := index[r.Tag]; ok {
			out[i].Count++
			continue
		}
		index[r.Tag] = len(out)
		out = append(out, TagCount{Tag: r.Tag, Count: 1})
	}
	return out
}

// Haystack builds the lower-cased searchable text for one record:
// title, author, tag, isbn, notes, pages and type joined by single
// spaces. Zero pages contribute nothing, matching the display form.
func Haystack(r models.Record) string {
	pages := ""
	if r.Pages != nil && *r.Pages != 0 {
		pages = strconv.FormatFloat(*r.Pages, 'f', -1, 64)
	}
	parts := []string{r.Title, r.Author, r.Tag, r.ISBN, r.Notes, pages, r.Type}
	return strings.ToLower(strings.Join(parts, " "))
}

func keep(records []models.Record, pred func(models.Record) bool) []models.Record {
	var out []models.Record
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
