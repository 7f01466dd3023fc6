package omdb

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingeguide/catalog-data/internal/provider"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(Config{APIKey: "test-key", Delay: time.Millisecond, BaseURL: srv.URL}, logger)
	require.NoError(t, err)
	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestFetchFullRecord(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "tt0111161", r.URL.Query().Get("i"))
		w.Write([]byte(`{
			"Title": "The Shawshank Redemption",
			"Year": "1994",
			"Rated": "R",
			"Runtime": "142 min",
			"Genre": "Drama",
			"Director": "Frank Darabont",
			"Country": "USA",
			"Plot": "Two imprisoned men bond over a number of years.",
			"Poster": "https://img.example/shawshank.jpg",
			"imdbRating": "9.3",
			"Response": "True"
		}`))
	})

	md, outcome, err := client.Fetch(context.Background(), "tt0111161")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeData, outcome)
	require.NotNil(t, md)

	assert.Equal(t, "The Shawshank Redemption", md.Title)
	require.NotNil(t, md.Year)
	assert.Equal(t, 1994, *md.Year)
	assert.Equal(t, "https://img.example/shawshank.jpg", md.PosterURL)
	assert.Equal(t, []string{"Frank Darabont"}, md.Directors)
	assert.Equal(t, []string{"Drama"}, md.Genres)
	require.NotNil(t, md.RuntimeMinutes)
	assert.Equal(t, 142, *md.RuntimeMinutes)
	assert.Equal(t, "R", md.ContentRating)
	require.NotNil(t, md.CriticRating)
	assert.InDelta(t, 9.3, *md.CriticRating, 0.001)
}

func TestFetchNASentinels(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Title": "Obscure Short",
			"Year": "N/A",
			"Rated": "N/A",
			"Runtime": "N/A",
			"Genre": "N/A",
			"Director": "N/A",
			"Country": "N/A",
			"Plot": "N/A",
			"Poster": "N/A",
			"imdbRating": "N/A",
			"Response": "True"
		}`))
	})

	md, outcome, err := client.Fetch(context.Background(), "tt9999999")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeData, outcome)

	assert.Nil(t, md.Year)
	assert.Empty(t, md.PosterURL)
	assert.Empty(t, md.Plot)
	assert.Nil(t, md.Directors)
	assert.Nil(t, md.RuntimeMinutes)
	assert.Nil(t, md.CriticRating)
}

func TestFetchNoMatch(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response": "False", "Error": "Incorrect IMDb ID."}`))
	})

	md, outcome, err := client.Fetch(context.Background(), "tt0000000")
	require.NoError(t, err)
	assert.Equal(t, provider.OutcomeNoMatch, outcome)
	assert.Nil(t, md)
}

func TestFetchServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusInternalServerError)
	})

	_, outcome, err := client.Fetch(context.Background(), "tt0111161")
	assert.Equal(t, provider.OutcomeTransient, outcome)
	assert.Error(t, err)
}

func TestFetchMalformedBody(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Title": `))
	})

	_, outcome, err := client.Fetch(context.Background(), "tt0111161")
	assert.Equal(t, provider.OutcomeTransient, outcome)
	assert.Error(t, err)
}
