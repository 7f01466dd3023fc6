package ingest

import (
	"fmt"
	"time"
)

// ImportResult tracks counts and errors from one import run. These numbers
// are the run's audit trail and are emitted even on a zero-insert run.
type ImportResult struct {
	RawRows        int
	Rejected       int
	Duplicates     int // rows merged away into an earlier candidate
	AlreadyPresent int
	Inserted       int
	Conflicts      int
	Updated        int
	DryRun         bool
	Duration       time.Duration
	Errors         []string
}

// AddError records an error message.
func (r *ImportResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *ImportResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Throughput returns inserted rows per second.
func (r *ImportResult) Throughput() float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Inserted) / secs
}

// Summary returns a human-readable summary of the import run.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf(
		"raw=%d rejected=%d duplicates=%d existing=%d inserted=%d conflicts=%d updated=%d errors=%d dry_run=%v dur=%s rate=%.1f/s",
		r.RawRows, r.Rejected, r.Duplicates, r.AlreadyPresent,
		r.Inserted, r.Conflicts, r.Updated, len(r.Errors),
		r.DryRun, r.Duration.Round(time.Millisecond), r.Throughput(),
	)
}

// Stats returns the statistics block persisted to the run history log.
func (r *ImportResult) Stats() map[string]any {
	return map[string]any{
		"raw_rows":        r.RawRows,
		"rejected":        r.Rejected,
		"duplicates":      r.Duplicates,
		"already_present": r.AlreadyPresent,
		"inserted":        r.Inserted,
		"conflicts":       r.Conflicts,
		"updated":         r.Updated,
		"errors":          len(r.Errors),
		"duration_ms":     r.Duration.Milliseconds(),
		"rate_per_sec":    r.Throughput(),
	}
}
