package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Candidate is one normalized, not-yet-persisted title produced by the
// normalizer and consolidated by the merger.
type Candidate struct {
	ImdbID          string
	Title           string
	Year            *int
	Directors       []string
	Countries       []string
	TmdbID          *int
	SourceUpdatedAt *time.Time
}

// RejectReason classifies why a raw row produced no candidate.
type RejectReason int

const (
	// RejectNone means the row normalized cleanly.
	RejectNone RejectReason = iota
	// RejectNoIdentifier means no IMDb id could be resolved from the row.
	RejectNoIdentifier
	// RejectBadTitle means the title field is empty, a bare numeric entity
	// code, or a link back to the source dataset.
	RejectBadTitle
)

// Year bounds: nothing predates the first films, and announced titles rarely
// carry dates more than a few years out.
const (
	minYear       = 1880
	maxYearsAhead = 5
	imdbPadDigits = 7
)

var (
	imdbIDPattern = regexp.MustCompile(`tt(\d+)`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// Normalize converts one raw row into a candidate. Pure: no I/O, same input
// always yields the same output. A nil candidate is returned with the reject
// reason; an unparseable year degrades to absent rather than rejecting the
// row.
func Normalize(row RawRow) (*Candidate, RejectReason) {
	id := NormalizeImdbID(row.ImdbID)
	if id == "" {
		id = NormalizeImdbID(row.URL)
	}
	if id == "" {
		return nil, RejectNoIdentifier
	}

	title := strings.TrimSpace(row.Title)
	if !validTitle(title) {
		return nil, RejectBadTitle
	}

	c := &Candidate{
		ImdbID:    id,
		Title:     title,
		Year:      normalizeYear(row.Year, row.Date),
		Directors: splitMulti(row.Directors),
		Countries: splitMulti(row.Countries),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(row.TmdbID)); err == nil && n > 0 {
		c.TmdbID = &n
	}
	if ts := parseTimestamp(row.UpdatedAt); ts != nil {
		c.SourceUpdatedAt = ts
	}
	return c, RejectNone
}

// NormalizeImdbID canonicalizes an identifier into "tt" + digits zero-padded
// to at least 7. Accepts a full IMDb URL, a tt-prefixed id, or bare digits.
// Returns "" when no identifier shape matches.
func NormalizeImdbID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var digits string
	if m := imdbIDPattern.FindStringSubmatch(s); m != nil {
		digits = m[1]
	} else if digitsPattern.MatchString(s) {
		digits = s
	} else {
		return ""
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return ""
	}
	if len(digits) < imdbPadDigits {
		digits = strings.Repeat("0", imdbPadDigits-len(digits)) + digits
	}
	return "tt" + digits
}

// validTitle rejects placeholders: empty strings, numeric-only entity codes,
// and rows whose "title" is really a link to the source dataset.
func validTitle(title string) bool {
	if title == "" {
		return false
	}
	if digitsPattern.MatchString(title) {
		return false
	}
	lower := strings.ToLower(title)
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") || strings.Contains(lower, "www.") {
		return false
	}
	return true
}

// normalizeYear extracts a release year from a bare 4-digit field or the
// leading 4 digits of an ISO date. Out-of-range years yield absent.
func normalizeYear(yearField, dateField string) *int {
	for _, s := range []string{yearField, dateField} {
		s = strings.TrimSpace(s)
		if len(s) < 4 {
			continue
		}
		n, err := strconv.Atoi(s[:4])
		if err != nil {
			continue
		}
		if validYear(n) {
			return &n
		}
	}
	return nil
}

func validYear(y int) bool {
	return y >= minYear && y <= time.Now().Year()+maxYearsAhead
}

// splitMulti splits a multi-valued dump field on the separators the known
// export shapes use.
func splitMulti(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// timestampLayouts are the formats seen across export sources.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
