package watchmode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingeguide/catalog-data/internal/provider"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(Config{APIKey: "test-key", Delay: time.Millisecond, BaseURL: srv.URL}, logger)
	require.NoError(t, err)
	return c, &calls
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestFetchFullCheck(t *testing.T) {
	client, calls := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/"):
			assert.Equal(t, "imdb_id", r.URL.Query().Get("search_field"))
			assert.Equal(t, "tt0111161", r.URL.Query().Get("search_value"))
			w.Write([]byte(`{"title_results": [{"id": 1409874, "name": "The Shawshank Redemption"}]}`))
		case strings.HasPrefix(r.URL.Path, "/title/1409874/sources/"):
			assert.Equal(t, "US", r.URL.Query().Get("regions"))
			w.Write([]byte(`[
				{"source_id": 203, "name": "Netflix", "type": "sub", "region": "US", "web_url": "https://netflix.example/watch"},
				{"source_id": 203, "name": "Netflix", "type": "sub", "region": "US", "web_url": "https://netflix.example/watch", "format": "4K"},
				{"source_id": 24, "name": "Amazon", "type": "rent", "region": "US", "price": 3.99}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	sources, outcome, credits, err := client.Fetch(context.Background(), "tt0111161")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeData, outcome)
	assert.Equal(t, CostPerCheck, credits)
	assert.Equal(t, 2, *calls)

	// The duplicate Netflix variant collapses; distinct offer types survive.
	require.Len(t, sources, 2)
	assert.Equal(t, "Netflix", sources[0].Name)
	assert.Equal(t, provider.OfferSubscription, sources[0].Type)
	assert.Equal(t, "Amazon", sources[1].Name)
	require.NotNil(t, sources[1].Price)
	assert.InDelta(t, 3.99, *sources[1].Price, 0.001)
}

func TestFetchNoMatchSkipsSourcesCall(t *testing.T) {
	client, calls := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/search/"))
		w.Write([]byte(`{"title_results": []}`))
	})

	sources, outcome, credits, err := client.Fetch(context.Background(), "tt9999999")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeNoMatch, outcome)
	assert.Equal(t, 1, credits)
	assert.Equal(t, 1, *calls)
	assert.Nil(t, sources)
}

func TestFetchEmptySourcesIsData(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search/") {
			w.Write([]byte(`{"title_results": [{"id": 77, "name": "Festival Only"}]}`))
			return
		}
		w.Write([]byte(`[]`))
	})

	sources, outcome, credits, err := client.Fetch(context.Background(), "tt7777777")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeData, outcome)
	assert.Equal(t, 2, credits)
	assert.Empty(t, sources)
}

func TestFetchSearchFailure(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, outcome, credits, err := client.Fetch(context.Background(), "tt0111161")
	assert.Equal(t, provider.OutcomeTransient, outcome)
	assert.Zero(t, credits)
	assert.Error(t, err)
}

func TestFetchSourcesFailureStillCostsSearchCredit(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search/") {
			w.Write([]byte(`{"title_results": [{"id": 1, "name": "x"}]}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, outcome, credits, err := client.Fetch(context.Background(), "tt0111161")
	assert.Equal(t, provider.OutcomeTransient, outcome)
	assert.Equal(t, 1, credits)
	assert.Error(t, err)
}
