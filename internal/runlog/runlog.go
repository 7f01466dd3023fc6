// Package runlog persists one record per pipeline run to the append-only
// ingest_runs table. The history supports later analysis of provider credit
// consumption; entries are never overwritten.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run kinds.
const (
	KindImport = "import"
	KindEnrich = "enrich"
)

// Entry is one run-history record.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Kind      string         `json:"kind"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"-"`
	Params    map[string]any `json:"params"`
	Stats     map[string]any `json:"stats"`
}

// NewEntry builds an entry with a fresh id.
func NewEntry(kind string, startedAt time.Time, duration time.Duration, params, stats map[string]any) Entry {
	return Entry{
		ID:        uuid.New(),
		Kind:      kind,
		StartedAt: startedAt.UTC(),
		Duration:  duration,
		Params:    params,
		Stats:     stats,
	}
}

// Append inserts one entry. Always an INSERT, never an update.
func Append(ctx context.Context, pool *pgxpool.Pool, e Entry) error {
	params, err := json.Marshal(nonNil(e.Params))
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}
	stats, err := json.Marshal(nonNil(e.Stats))
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = pool.Exec(ctx, "run_insert",
		e.ID, e.Kind, e.StartedAt, e.Duration.Milliseconds(), params, stats)
	if err != nil {
		return fmt.Errorf("append run history: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func List(ctx context.Context, pool *pgxpool.Pool, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := pool.Query(ctx, "run_list", limit)
	if err != nil {
		return nil, fmt.Errorf("list run history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		var params, stats []byte
		if err := rows.Scan(&e.ID, &e.Kind, &e.StartedAt, &durationMS, &params, &stats); err != nil {
			return nil, fmt.Errorf("scan run history row: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal(params, &e.Params); err != nil {
			return nil, fmt.Errorf("decode run params: %w", err)
		}
		if err := json.Unmarshal(stats, &e.Stats); err != nil {
			return nil, fmt.Errorf("decode run stats: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
