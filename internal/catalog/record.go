// Package catalog is the only component that talks to the titles tables.
// It provides existence checks, conflict-tolerant batched inserts, partial
// field updates, and the tiered eligibility queries the enrichment runner
// draws candidates from.
package catalog

import (
	"time"

	"github.com/bingeguide/catalog-data/internal/provider"
)

// Record is the canonical catalog entry for one title.
//
// ImdbID is the stable cross-system key and is immutable once inserted; the
// titles table enforces its uniqueness. Every other field is independently
// optional. Availability distinguishes "checked and empty" (empty slice with
// AvailabilityCheckedAt set) from "never checked" (AvailabilityCheckedAt
// nil).
type Record struct {
	ImdbID         string
	Title          string
	Year           *int
	PosterURL      string
	Synopsis       string
	Directors      []string
	Countries      []string
	Genres         []string
	RuntimeMinutes *int
	ContentRating  string
	CriticRating   *float64
	TmdbID         *int
	Featured       bool

	Availability          []provider.Source
	AvailabilityCheckedAt *time.Time

	SourceUpdatedAt *time.Time
	LastEnrichedAt  *time.Time
}

// Delta is a partial update: column name → new value. It is applied as one
// UPDATE so a candidate's enrichment lands atomically. Columns outside the
// updatable whitelist are rejected by UpdateFields.
type Delta map[string]any

// Tier is a priority bucket for enrichment candidate selection.
type Tier int

const (
	// TierFeatured selects titles flagged for the featured shelf.
	TierFeatured Tier = iota
	// TierRecent selects non-featured titles within the rolling recent
	// release window.
	TierRecent
	// TierRemainder selects everything else, newest first.
	TierRemainder
)

// RecentWindowYears is the rolling window that defines TierRecent.
const RecentWindowYears = 6

// String returns the tier name for logs.
func (t Tier) String() string {
	switch t {
	case TierFeatured:
		return "featured"
	case TierRecent:
		return "recent"
	case TierRemainder:
		return "remainder"
	default:
		return "unknown"
	}
}

// Needs selects which "needs enrichment" predicates apply to an eligibility
// query. At least one must be set.
type Needs struct {
	Metadata     bool // poster_url is absent
	Availability bool // availability has never been checked
}
