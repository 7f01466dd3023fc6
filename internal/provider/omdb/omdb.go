// Package omdb provides the HTTP client for the OMDb metadata API.
//
// OMDb is queried by IMDb id with key-in-query auth. A missing title is
// signalled in-band ("Response":"False"), absent fields use the literal
// "N/A". Rate limiting is a fixed inter-call delay enforced here, not by
// callers, so the client is inherently serializing.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bingeguide/catalog-data/internal/provider"
)

const defaultBaseURL = "https://www.omdbapi.com/"

// Config holds the client configuration. BaseURL is overridable for tests.
type Config struct {
	APIKey  string
	Delay   time.Duration
	BaseURL string
}

// Client is the OMDb HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates an OMDb client. Returns an error when the API key is missing —
// provider credentials are a configuration concern, checked before any run
// starts.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OMDb API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger,
	}, nil
}

// response is the OMDb title payload, limited to the fields this pipeline
// consumes. Extra fields are ignored by construction.
type response struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Country    string `json:"Country"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Fetch looks up one title by IMDb id.
//
// Outcomes: (metadata, OutcomeData, nil) on a match;
// (nil, OutcomeNoMatch, nil) when OMDb reports the title as unknown;
// (nil, OutcomeTransient, err) on network, HTTP, or parse failures.
func (c *Client) Fetch(ctx context.Context, imdbID string) (*provider.Metadata, provider.Outcome, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, provider.OutcomeTransient, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)
	params.Set("plot", "short")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, provider.OutcomeTransient, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.OutcomeTransient, fmt.Errorf("http request %s: %w", imdbID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.OutcomeTransient, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, provider.OutcomeTransient, fmt.Errorf("OMDb %s returned %d: %s", imdbID, resp.StatusCode, truncate(body, 200))
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, provider.OutcomeTransient, fmt.Errorf("decode response: %w", err)
	}

	if r.Response != "True" {
		c.logger.Debug("OMDb no match", "imdb_id", imdbID, "error", r.Error)
		return nil, provider.OutcomeNoMatch, nil
	}

	return &provider.Metadata{
		Title:          provider.CleanField(r.Title),
		Year:           provider.ParseYearLoose(r.Year),
		PosterURL:      provider.CleanField(r.Poster),
		Plot:           provider.CleanField(r.Plot),
		Directors:      provider.SplitList(r.Director),
		Countries:      provider.SplitList(r.Country),
		RuntimeMinutes: provider.ParseRuntime(r.Runtime),
		ContentRating:  provider.CleanField(r.Rated),
		CriticRating:   provider.ParseRating(r.IMDbRating),
		Genres:         provider.SplitList(r.Genre),
	}, provider.OutcomeData, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
