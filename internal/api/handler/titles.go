package handler

import (
	"net/http"

	"github.com/bingeguide/catalog-data/internal/api/respond"
	"github.com/bingeguide/catalog-data/internal/cache"
)

// GetTitlesIndex returns the compact title index (imdb_id, title, year) the
// frontend uses for search and autofill. The index is aggregated to JSON in
// Postgres and served verbatim from cache.
func (h *Handler) GetTitlesIndex(w http.ResponseWriter, r *http.Request) {
	const key = "titles:index"

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLTitlesIndex, true)
		return
	}

	var raw []byte
	if err := h.pool.QueryRow(r.Context(), "titles_index").Scan(&raw); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INDEX_QUERY_FAILED", "Failed to load title index")
		return
	}

	etag := h.cache.Set(key, raw, cache.TTLTitlesIndex)
	respond.WriteJSON(w, raw, etag, cache.TTLTitlesIndex, false)
}
