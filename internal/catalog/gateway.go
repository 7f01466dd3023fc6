package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// existsChunkSize bounds the id array per existence query; the hosted
	// store limits query predicate size.
	existsChunkSize = 500
	// insertChunkSize bounds one multi-row INSERT.
	insertChunkSize = 100
)

// Querier is the subset of pgxpool.Pool the Gateway issues statements
// through.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Gateway mediates all access to the titles tables.
type Gateway struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Gateway.
func New(db Querier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{db: db, logger: logger}
}

// --------------------------------------------------------------------------
// Existence checks
// --------------------------------------------------------------------------

// Exists returns the subset of ids already present in the store. Lookups are
// chunked and the chunk results merged transparently.
func (g *Gateway) Exists(ctx context.Context, ids []string) (map[string]bool, error) {
	present := make(map[string]bool)
	for _, chunk := range chunkStrings(ids, existsChunkSize) {
		rows, err := g.db.Query(ctx, "titles_exists", chunk)
		if err != nil {
			return nil, fmt.Errorf("existence check: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan existence row: %w", err)
			}
			present[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("existence rows: %w", err)
		}
	}
	return present, nil
}

// SourceUpdated returns the stored source_updated_at per id, for rows that
// have one. Used by --update-existing to compare upstream freshness.
func (g *Gateway) SourceUpdated(ctx context.Context, ids []string) (map[string]time.Time, error) {
	result := make(map[string]time.Time)
	for _, chunk := range chunkStrings(ids, existsChunkSize) {
		rows, err := g.db.Query(ctx, "titles_source_updated", chunk)
		if err != nil {
			return nil, fmt.Errorf("source_updated lookup: %w", err)
		}
		for rows.Next() {
			var id string
			var ts *time.Time
			if err := rows.Scan(&id, &ts); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan source_updated row: %w", err)
			}
			if ts != nil {
				result[id] = *ts
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("source_updated rows: %w", err)
		}
	}
	return result, nil
}

// --------------------------------------------------------------------------
// Inserts
// --------------------------------------------------------------------------

// BatchResult reports the outcome of InsertBatch.
type BatchResult struct {
	Inserted  int
	Conflicts int
	Errors    []string
}

// InsertBatch inserts records in fixed-size chunks. A uniqueness violation
// inside a chunk does not sink the chunk: the Gateway retries that chunk one
// record at a time so valid records are never lost to one duplicate, and the
// duplicate itself is a counted no-op rather than an error.
func (g *Gateway) InsertBatch(ctx context.Context, recs []Record) BatchResult {
	var result BatchResult
	for _, chunk := range chunkRecords(recs, insertChunkSize) {
		err := g.insertChunk(ctx, chunk)
		if err == nil {
			result.Inserted += len(chunk)
			continue
		}
		if !isUniqueViolation(err) {
			result.Errors = append(result.Errors, fmt.Sprintf("insert chunk of %d: %v", len(chunk), err))
			continue
		}
		g.logger.Warn("Batch insert conflict, falling back to per-record inserts", "chunk_size", len(chunk))
		for _, rec := range chunk {
			inserted, err := g.insertOne(ctx, rec)
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("insert %s: %v", rec.ImdbID, err))
			case inserted:
				result.Inserted++
			default:
				result.Conflicts++
			}
		}
	}
	return result
}

const insertColumns = "imdb_id, title, year, directors, countries, tmdb_id, source_updated_at"

func insertArgs(rec Record) []any {
	return []any{
		rec.ImdbID, rec.Title, rec.Year,
		rec.Directors, rec.Countries, rec.TmdbID, rec.SourceUpdatedAt,
	}
}

func (g *Gateway) insertChunk(ctx context.Context, chunk []Record) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO titles (" + insertColumns + ") VALUES ")
	args := make([]any, 0, len(chunk)*7)
	for i, rec := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, insertArgs(rec)...)
	}
	_, err := g.db.Exec(ctx, sb.String(), args...)
	return err
}

// insertOne inserts a single record; a duplicate id is a no-op success.
// Returns whether a row was actually inserted.
func (g *Gateway) insertOne(ctx context.Context, rec Record) (bool, error) {
	tag, err := g.db.Exec(ctx, `
		INSERT INTO titles (`+insertColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (imdb_id) DO NOTHING`,
		insertArgs(rec)...,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// --------------------------------------------------------------------------
// Partial updates
// --------------------------------------------------------------------------

// updatableColumns is the whitelist of columns a Delta may touch.
var updatableColumns = map[string]bool{
	"title":                   true,
	"year":                    true,
	"poster_url":              true,
	"synopsis":                true,
	"directors":               true,
	"countries":               true,
	"genres":                  true,
	"runtime_minutes":         true,
	"content_rating":          true,
	"critic_rating":           true,
	"tmdb_id":                 true,
	"featured":                true,
	"availability":            true,
	"availability_checked_at": true,
	"source_updated_at":       true,
	"last_enriched_at":        true,
}

// UpdateFields applies a partial update to one title. Columns absent from
// the delta are never touched. Slice values destined for jsonb columns are
// marshaled here so callers work with typed values.
func (g *Gateway) UpdateFields(ctx context.Context, imdbID string, delta Delta) error {
	if len(delta) == 0 {
		return nil
	}

	cols := make([]string, 0, len(delta))
	for col := range delta {
		if !updatableColumns[col] {
			return fmt.Errorf("column %q is not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var sb strings.Builder
	sb.WriteString("UPDATE titles SET ")
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		val := delta[col]
		if col == "availability" {
			b, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("marshal availability: %w", err)
			}
			val = b
		}
		fmt.Fprintf(&sb, "%s = $%d", col, i+1)
		args = append(args, val)
	}
	fmt.Fprintf(&sb, ", updated_at = NOW() WHERE imdb_id = $%d", len(cols)+1)
	args = append(args, imdbID)

	if _, err := g.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("update %s: %w", imdbID, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Enrichment eligibility
// --------------------------------------------------------------------------

// SelectEligible returns up to limit records from one priority tier that
// still need enrichment from at least one enabled provider, optionally
// restricted to a membership filter of imdb ids.
func (g *Gateway) SelectEligible(ctx context.Context, tier Tier, limit int, needs Needs, filter []string) ([]Record, error) {
	if !needs.Metadata && !needs.Availability {
		return nil, fmt.Errorf("at least one needs predicate must be enabled")
	}

	var preds []string
	if needs.Metadata {
		preds = append(preds, "poster_url IS NULL")
	}
	if needs.Availability {
		preds = append(preds, "availability_checked_at IS NULL")
	}
	needsClause := "(" + strings.Join(preds, " OR ") + ")"

	cutoff := time.Now().Year() - RecentWindowYears
	var tierClause string
	args := []any{}
	switch tier {
	case TierFeatured:
		tierClause = "featured"
	case TierRecent:
		tierClause = fmt.Sprintf("NOT featured AND year >= $%d", len(args)+1)
		args = append(args, cutoff)
	case TierRemainder:
		tierClause = fmt.Sprintf("NOT featured AND (year < $%d OR year IS NULL)", len(args)+1)
		args = append(args, cutoff)
	default:
		return nil, fmt.Errorf("unknown tier %d", tier)
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT imdb_id, title, year, poster_url, availability_checked_at, featured
		FROM titles
		WHERE ` + tierClause + " AND " + needsClause)
	if filter != nil {
		fmt.Fprintf(&sb, " AND imdb_id = ANY($%d)", len(args)+1)
		args = append(args, filter)
	}
	fmt.Fprintf(&sb, " ORDER BY year DESC NULLS LAST, imdb_id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := g.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select eligible (%s): %w", tier, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var poster *string
		if err := rows.Scan(&rec.ImdbID, &rec.Title, &rec.Year, &poster, &rec.AvailabilityCheckedAt, &rec.Featured); err != nil {
			return nil, fmt.Errorf("scan eligible row: %w", err)
		}
		if poster != nil {
			rec.PosterURL = *poster
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PublishedListMembers returns the union of imdb ids referenced by currently
// published curated lists.
func (g *Gateway) PublishedListMembers(ctx context.Context) ([]string, error) {
	rows, err := g.db.Query(ctx, "published_list_members")
	if err != nil {
		return nil, fmt.Errorf("published list members: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan list member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

func chunkRecords(items []Record, size int) [][]Record {
	var chunks [][]Record
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
