// Package validate implements the form validation rules for records.
//
// All checks are pure functions over the raw (pre-trim) form input so
// they can run both before commit and in isolation under test.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"shelf/internal/apperr"
	"shelf/internal/models"
)

var (
	// A title must start and end on a non-space character. An empty or
	// whitespace-only title fails this too.
	reTitle = regexp.MustCompile(`^\S(?:.*\S)?$`)

	// Non-negative integer or decimal with at most two fractional
	// digits. No leading zeros, no sign, no scientific notation.
	rePages = regexp.MustCompile(`^(0|[1-9]\d*)(\.\d{1,2})?$`)

	// One or more alphabetic groups separated by single spaces or
	// hyphens. No digits, no doubled or dangling separators.
	reTag = regexp.MustCompile(`^[A-Za-z]+(?:[ -][A-Za-z]+)*$`)
)

// Title checks the raw title string: no leading/trailing whitespace
// and no immediately-adjacent case-insensitive duplicate word.
func Title(raw string) error {
	if !reTitle.MatchString(raw) {
		return errors.New("Title cannot have leading/trailing spaces.")
	}
	if hasAdjacentDuplicateWord(raw) {
		return errors.New("Title contains duplicate words.")
	}
	return nil
}

// Pages checks an optional page-count string. Empty means absent and
// is accepted.
func Pages(raw string) error {
	if raw == "" {
		return nil
	}
	return validation.Validate(raw,
		validation.Match(rePages).Error("Pages must be a non-negative number (max 2 decimals)."),
	)
}

// Tag checks an optional tag string. Empty means absent and is
// accepted.
func Tag(raw string) error {
	if raw == "" {
		return nil
	}
	return validation.Validate(raw,
		validation.Match(reTag).Error("Tag should use letters, spaces or hyphens only."),
	)
}

// Form validates a whole form and aggregates the first failing message
// per field. A nil return means the form is valid.
func Form(f models.FormInput) *apperr.ValidationError {
	fields := map[string]string{}
	if err := Title(f.Title); err != nil {
		fields["title"] = err.Error()
	}
	if err := Pages(f.Pages); err != nil {
		fields["pages"] = err.Error()
	}
	if err := Tag(f.Tag); err != nil {
		fields["tag"] = err.Error()
	}
	if len(fields) == 0 {
		return nil
	}
	return &apperr.ValidationError{Fields: fields}
}

// hasAdjacentDuplicateWord reports whether s contains two identical
// words (case-insensitive) separated only by whitespace, e.g.
// "The The Hobbit". Word characters are letters, digits and
// underscore; anything else in the gap (a hyphen, punctuation) breaks
// adjacency.
func hasAdjacentDuplicateWord(s string) bool {
	var prev string
	prevEnd := -1

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		word := string(runes[start:i])
		if prev != "" && strings.EqualFold(prev, word) && gapIsSpace(runes[prevEnd:start]) {
			return true
		}
		prev = word
		prevEnd = i
	}
	return false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func gapIsSpace(gap []rune) bool {
	if len(gap) == 0 {
		return false
	}
	for _, r := range gap {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
