// Package handler provides HTTP handlers for the pipeline ops API.
// Handlers query Postgres directly via pgxpool — no service layer.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bingeguide/catalog-data/internal/api/respond"
	"github.com/bingeguide/catalog-data/internal/cache"
	"github.com/bingeguide/catalog-data/internal/config"
	"github.com/bingeguide/catalog-data/internal/runlog"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool  *pgxpool.Pool
	cache *cache.Cache
	cfg   *config.Config
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{pool: pool, cache: c, cfg: cfg}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Bingeguide Pipeline API",
		"version": "1.0.0",
		"status":  "running",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetRuns returns the recent run-history entries, newest first.
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	key := "runs:" + strconv.Itoa(limit)

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLRuns, true)
		return
	}

	entries, err := runlog.List(r.Context(), h.pool, limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "RUNS_QUERY_FAILED", "Failed to load run history")
		return
	}
	data, err := json.Marshal(map[string]interface{}{"runs": entries})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode run history")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLRuns)
	respond.WriteJSON(w, data, etag, cache.TTLRuns, false)
}

// GetCatalogSummary returns catalog size and enrichment coverage counts.
func (h *Handler) GetCatalogSummary(w http.ResponseWriter, r *http.Request) {
	const key = "catalog:summary"

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLSummary, true)
		return
	}

	var total, withPoster, availChecked, featured int
	err := h.pool.QueryRow(r.Context(), "catalog_summary").
		Scan(&total, &withPoster, &availChecked, &featured)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "SUMMARY_QUERY_FAILED", "Failed to load catalog summary")
		return
	}
	data, err := json.Marshal(map[string]interface{}{
		"titles":               total,
		"with_poster":          withPoster,
		"availability_checked": availChecked,
		"featured":             featured,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode catalog summary")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLSummary)
	respond.WriteJSON(w, data, etag, cache.TTLSummary, false)
}
