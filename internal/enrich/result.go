package enrich

import (
	"fmt"
	"time"
)

// EnrichResult tracks counts and errors from one enrichment run.
type EnrichResult struct {
	Considered int

	MetadataData    int
	MetadataNoMatch int
	MetadataFailed  int

	AvailabilityData    int
	AvailabilityNoMatch int
	AvailabilityFailed  int

	UpdatesOK     int
	UpdatesFailed int

	CreditsUsed   int
	SkippedBudget int

	Duration time.Duration
	Errors   []string
}

// AddErrorf records a formatted error message.
func (r *EnrichResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the enrichment run.
func (r *EnrichResult) Summary() string {
	return fmt.Sprintf(
		"considered=%d meta=%d/%d/%d avail=%d/%d/%d updates=%d/%d credits=%d skipped_budget=%d errors=%d dur=%s",
		r.Considered,
		r.MetadataData, r.MetadataNoMatch, r.MetadataFailed,
		r.AvailabilityData, r.AvailabilityNoMatch, r.AvailabilityFailed,
		r.UpdatesOK, r.UpdatesFailed,
		r.CreditsUsed, r.SkippedBudget, len(r.Errors),
		r.Duration.Round(time.Millisecond),
	)
}

// Stats returns the statistics block persisted to the run history log.
func (r *EnrichResult) Stats() map[string]any {
	return map[string]any{
		"considered":            r.Considered,
		"metadata_data":         r.MetadataData,
		"metadata_no_match":     r.MetadataNoMatch,
		"metadata_failed":       r.MetadataFailed,
		"availability_data":     r.AvailabilityData,
		"availability_no_match": r.AvailabilityNoMatch,
		"availability_failed":   r.AvailabilityFailed,
		"updates_ok":            r.UpdatesOK,
		"updates_failed":        r.UpdatesFailed,
		"credits_used":          r.CreditsUsed,
		"skipped_budget":        r.SkippedBudget,
		"errors":                len(r.Errors),
		"duration_ms":           r.Duration.Milliseconds(),
	}
}
