package ingest

import "strings"

// maxListValues caps multi-valued fields during merging; noisy exports can
// carry one row per country or listing and the lists grow without bound
// otherwise.
const maxListValues = 3

// Merge collapses candidates sharing an IMDb id into one candidate each.
//
// Precedence: scalars are first-non-empty-wins, except the year, which is
// the earliest valid year across the group (the earliest release date is
// definitionally the more accurate one for catalog purposes). Multi-valued
// fields append and deduplicate, capped at maxListValues. The source
// timestamp is latest-wins. Output preserves first-seen id order.
func Merge(candidates []Candidate) []Candidate {
	byID := make(map[string]*Candidate, len(candidates))
	order := make([]string, 0, len(candidates))

	for i := range candidates {
		c := candidates[i]
		existing, ok := byID[c.ImdbID]
		if !ok {
			c.Directors = dedupeCap(nil, c.Directors)
			c.Countries = dedupeCap(nil, c.Countries)
			byID[c.ImdbID] = &c
			order = append(order, c.ImdbID)
			continue
		}

		if existing.Title == "" {
			existing.Title = c.Title
		}
		if c.Year != nil && (existing.Year == nil || *c.Year < *existing.Year) {
			existing.Year = c.Year
		}
		if existing.TmdbID == nil {
			existing.TmdbID = c.TmdbID
		}
		existing.Directors = dedupeCap(existing.Directors, c.Directors)
		existing.Countries = dedupeCap(existing.Countries, c.Countries)
		if c.SourceUpdatedAt != nil &&
			(existing.SourceUpdatedAt == nil || c.SourceUpdatedAt.After(*existing.SourceUpdatedAt)) {
			existing.SourceUpdatedAt = c.SourceUpdatedAt
		}
	}

	merged := make([]Candidate, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}
	return merged
}

// dedupeCap appends values not already present (case-insensitive) until the
// cap is reached.
func dedupeCap(existing, incoming []string) []string {
	for _, v := range incoming {
		if len(existing) >= maxListValues {
			break
		}
		found := false
		for _, e := range existing {
			if strings.EqualFold(e, v) {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, v)
		}
	}
	return existing
}
