package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bingeguide/catalog-data/internal/catalog"
)

// Store is the slice of the catalog gateway the import pipeline needs.
type Store interface {
	Exists(ctx context.Context, ids []string) (map[string]bool, error)
	InsertBatch(ctx context.Context, recs []catalog.Record) catalog.BatchResult
	SourceUpdated(ctx context.Context, ids []string) (map[string]time.Time, error)
	UpdateFields(ctx context.Context, imdbID string, delta catalog.Delta) error
}

// Options are the recognized import run parameters.
type Options struct {
	FilePath       string
	MaxRows        int  // cap on rows inserted this run; 0 = unlimited
	DryRun         bool // full pipeline, zero writes
	UpdateExisting bool // re-check rows whose upstream timestamp is newer
}

// Run executes one import: read → normalize → merge → existence check →
// batched insert. Per-row failures are counted in the result; the returned
// error is non-nil only for configuration-level failures (unreadable input,
// store unreachable) that abort the run.
func Run(ctx context.Context, store Store, opts Options, logger *slog.Logger) (ImportResult, error) {
	start := time.Now()
	var result ImportResult
	result.DryRun = opts.DryRun

	rows, err := ReadDump(opts.FilePath)
	if err != nil {
		return result, err
	}
	result.RawRows = len(rows)
	logger.Info("Read dump", "file", opts.FilePath, "rows", len(rows))

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		c, reject := Normalize(row)
		if reject != RejectNone {
			result.Rejected++
			continue
		}
		candidates = append(candidates, *c)
	}

	merged := Merge(candidates)
	result.Duplicates = len(candidates) - len(merged)
	logger.Info("Normalized dump", "candidates", len(merged),
		"rejected", result.Rejected, "duplicates", result.Duplicates)

	ids := make([]string, len(merged))
	for i, c := range merged {
		ids[i] = c.ImdbID
	}
	present, err := store.Exists(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("existence check: %w", err)
	}

	var fresh, existing []Candidate
	for _, c := range merged {
		if present[c.ImdbID] {
			result.AlreadyPresent++
			existing = append(existing, c)
		} else {
			fresh = append(fresh, c)
		}
	}

	if opts.UpdateExisting && len(existing) > 0 {
		result.Updated = refreshExisting(ctx, store, existing, opts.DryRun, &result, logger)
	}

	if opts.MaxRows > 0 && len(fresh) > opts.MaxRows {
		logger.Info("Capping insert count", "cap", opts.MaxRows, "eligible", len(fresh))
		fresh = fresh[:opts.MaxRows]
	}

	if opts.DryRun {
		// Identical counts to a real run over the same store state, zero
		// writes.
		result.Inserted = len(fresh)
		result.Duration = time.Since(start)
		logger.Info("Import preview complete", "summary", result.Summary())
		return result, nil
	}

	records := make([]catalog.Record, len(fresh))
	for i, c := range fresh {
		records[i] = toRecord(c)
	}
	batch := store.InsertBatch(ctx, records)
	result.Inserted = batch.Inserted
	result.Conflicts = batch.Conflicts
	result.Errors = append(result.Errors, batch.Errors...)

	result.Duration = time.Since(start)
	logger.Info("Import complete", "summary", result.Summary())
	return result, nil
}

// refreshExisting updates already-present rows whose upstream source
// timestamp is newer than the stored one. Returns the update count.
func refreshExisting(ctx context.Context, store Store, existing []Candidate, dryRun bool, result *ImportResult, logger *slog.Logger) int {
	ids := make([]string, len(existing))
	for i, c := range existing {
		ids[i] = c.ImdbID
	}
	stored, err := store.SourceUpdated(ctx, ids)
	if err != nil {
		result.AddErrorf("source_updated lookup: %v", err)
		return 0
	}

	updated := 0
	for _, c := range existing {
		if c.SourceUpdatedAt == nil {
			continue
		}
		if prev, ok := stored[c.ImdbID]; ok && !c.SourceUpdatedAt.After(prev) {
			continue
		}
		if dryRun {
			updated++
			continue
		}
		if err := store.UpdateFields(ctx, c.ImdbID, refreshDelta(c)); err != nil {
			result.AddErrorf("refresh %s: %v", c.ImdbID, err)
			continue
		}
		updated++
	}
	if updated > 0 {
		logger.Info("Refreshed existing titles", "count", updated, "dry_run", dryRun)
	}
	return updated
}

// refreshDelta carries only the source-derived fields; enriched fields are
// never clobbered by an import refresh.
func refreshDelta(c Candidate) catalog.Delta {
	delta := catalog.Delta{
		"title":             c.Title,
		"source_updated_at": c.SourceUpdatedAt,
	}
	if c.Year != nil {
		delta["year"] = c.Year
	}
	if len(c.Directors) > 0 {
		delta["directors"] = c.Directors
	}
	if len(c.Countries) > 0 {
		delta["countries"] = c.Countries
	}
	return delta
}

func toRecord(c Candidate) catalog.Record {
	return catalog.Record{
		ImdbID:          c.ImdbID,
		Title:           c.Title,
		Year:            c.Year,
		Directors:       c.Directors,
		Countries:       c.Countries,
		TmdbID:          c.TmdbID,
		SourceUpdatedAt: c.SourceUpdatedAt,
	}
}
