// Package ingest implements the title import pipeline: raw dump rows are
// normalized into candidates, deduplicated, checked against the store, and
// inserted in batches. Normalization and merging are pure; all I/O happens
// in the runner.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// RawRow is one dump row after header-alias resolution, all fields still in
// their raw string form. Export sources differ in column naming only, not in
// semantics; the reader maps every known alias onto this one shape.
type RawRow struct {
	ImdbID    string
	URL       string
	Title     string
	Year      string
	Date      string
	Countries string
	Directors string
	TmdbID    string
	UpdatedAt string
}

// headerAliases maps lowercased column names from the known export shapes
// onto RawRow fields.
var headerAliases = map[string]func(*RawRow, string){
	"imdb_id": func(r *RawRow, v string) { r.ImdbID = v },
	"imdbid":  func(r *RawRow, v string) { r.ImdbID = v },
	"const":   func(r *RawRow, v string) { r.ImdbID = v },
	"tconst":  func(r *RawRow, v string) { r.ImdbID = v },

	"url":      func(r *RawRow, v string) { r.URL = v },
	"link":     func(r *RawRow, v string) { r.URL = v },
	"imdb_url": func(r *RawRow, v string) { r.URL = v },

	"title":          func(r *RawRow, v string) { r.Title = v },
	"name":           func(r *RawRow, v string) { r.Title = v },
	"primarytitle":   func(r *RawRow, v string) { r.Title = v },
	"original_title": func(r *RawRow, v string) { r.Title = v },

	"year":         func(r *RawRow, v string) { r.Year = v },
	"release_year": func(r *RawRow, v string) { r.Year = v },
	"startyear":    func(r *RawRow, v string) { r.Year = v },

	"date":         func(r *RawRow, v string) { r.Date = v },
	"release_date": func(r *RawRow, v string) { r.Date = v },
	"released":     func(r *RawRow, v string) { r.Date = v },

	"country":              func(r *RawRow, v string) { r.Countries = v },
	"countries":            func(r *RawRow, v string) { r.Countries = v },
	"production_countries": func(r *RawRow, v string) { r.Countries = v },

	"director":  func(r *RawRow, v string) { r.Directors = v },
	"directors": func(r *RawRow, v string) { r.Directors = v },

	"tmdb_id": func(r *RawRow, v string) { r.TmdbID = v },
	"tmdbid":  func(r *RawRow, v string) { r.TmdbID = v },

	"updated":      func(r *RawRow, v string) { r.UpdatedAt = v },
	"updated_at":   func(r *RawRow, v string) { r.UpdatedAt = v },
	"last_updated": func(r *RawRow, v string) { r.UpdatedAt = v },
	"modified":     func(r *RawRow, v string) { r.UpdatedAt = v },
}

// ReadDump reads a CSV or TSV export file into raw rows.
func ReadDump(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}

// ReadAll parses a delimited export stream. The delimiter (comma or tab) is
// sniffed from the header line; unknown columns are ignored.
func ReadAll(r io.Reader) ([]RawRow, error) {
	br := bufio.NewReader(r)
	delim, err := sniffDelimiter(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	setters := make([]func(*RawRow, string), len(header))
	known := 0
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")))
		if set, ok := headerAliases[name]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("no recognized columns in header: %v", header)
	}

	var rows []RawRow
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		var row RawRow
		for i, v := range fields {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, strings.TrimSpace(v))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter inspects the header line: tab-separated exports win when a
// tab appears before any comma.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("peek header: %w", err)
	}
	if len(peek) == 0 {
		return 0, fmt.Errorf("empty dump")
	}
	line := peek
	if i := strings.IndexByte(string(peek), '\n'); i >= 0 {
		line = peek[:i]
	}
	if strings.ContainsRune(string(line), '\t') {
		return '\t', nil
	}
	return ',', nil
}
