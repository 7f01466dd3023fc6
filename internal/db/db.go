// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bingeguide/catalog-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and ingestion
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Ingestion: existence checks (chunked, ids passed as text[])
		"titles_exists": "SELECT imdb_id FROM titles WHERE imdb_id = ANY($1)",

		// Ingestion: upstream freshness for --update-existing
		"titles_source_updated": "SELECT imdb_id, source_updated_at FROM titles WHERE imdb_id = ANY($1)",

		// Enrichment: membership filter over published curated lists
		"published_list_members": `
			SELECT DISTINCT li.imdb_id
			FROM binge_list_items li
			JOIN binge_lists l ON l.id = li.list_id
			WHERE l.published = true`,

		// Run history (append-only audit log)
		"run_insert": `
			INSERT INTO ingest_runs (id, kind, started_at, duration_ms, params, stats)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		"run_list": `
			SELECT id, kind, started_at, duration_ms, params, stats
			FROM ingest_runs
			ORDER BY started_at DESC
			LIMIT $1`,

		// Ops API: compact title index for frontend search/autofill
		"titles_index": `
			SELECT COALESCE(jsonb_agg(
				jsonb_build_object('imdb_id', imdb_id, 'title', title, 'year', year)
				ORDER BY title, imdb_id
			), '[]'::jsonb)
			FROM titles`,

		// Ops API: catalog summary
		"catalog_summary": `
			SELECT count(*),
			       count(*) FILTER (WHERE poster_url IS NOT NULL),
			       count(*) FILTER (WHERE availability_checked_at IS NOT NULL),
			       count(*) FILTER (WHERE featured)
			FROM titles`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
