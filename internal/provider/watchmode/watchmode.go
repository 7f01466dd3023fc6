// Package watchmode provides the HTTP client for the Watchmode streaming
// availability API.
//
// Watchmode uses a two-call protocol: a search by IMDb id resolves the
// Watchmode-internal title id, then a sources call fetches availability for
// that id in one region. Every HTTP call consumes one API credit, so a full
// availability check costs 2. The sources call is only made when the search
// resolves an id. The fixed inter-call delay is enforced here, shared by
// both steps.
package watchmode

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

const defaultBaseURL = "https://api.watchmode.com/v1"

// Config holds the client configuration. BaseURL is overridable for tests.
type Config struct {
	APIKey  string
	Delay   time.Duration
	Region  string
	BaseURL string
}

// Client is the Watchmode HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	region     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Watchmode client. Returns an error when the API key is
// missing.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Watchmode API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	region := cfg.Region
	if region == "" {
		region = "US"
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		region:     region,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger,
	}, nil
}

// CostPerCheck is the credit cost of a complete availability check
// (search + sources). Callers budget against this before invoking Fetch.
const CostPerCheck = 2

type searchResponse struct {
	TitleResults []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"title_results"`
}

type sourceRow struct {
	SourceID   int      `json:"source_id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Region     string   `json:"region"`
	WebURL     string   `json:"web_url"`
	IOSURL     string   `json:"ios_url"`
	AndroidURL string   `json:"android_url"`
	Price      *float64 `json:"price"`
	Format     string   `json:"format"`
}

// Fetch resolves availability sources for one IMDb id.
//
// Returns the sources, the outcome classification, and the number of credits
// consumed (1 when the search found nothing, 2 when the sources call ran, 0
// when the search itself failed transiently).
func (c *Client) Fetch(ctx context.Context, imdbID string) ([]provider.Source, provider.Outcome, int, error) {
	params := url.Values{}
	params.Set("search_field", "imdb_id")
	params.Set("search_value", imdbID)

	body, err := c.get(ctx, "/search/", params)
	if err != nil {
		return nil, provider.OutcomeTransient, 0, err
	}
	credits := 1

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, provider.OutcomeTransient, credits, fmt.Errorf("decode search response: %w", err)
	}

	if len(search.TitleResults) == 0 {
		c.logger.Debug("Watchmode no match", "imdb_id", imdbID)
		return nil, provider.OutcomeNoMatch, credits, nil
	}
	titleID := search.TitleResults[0].ID

	params = url.Values{}
	params.Set("regions", c.region)
	body, err = c.get(ctx, fmt.Sprintf("/title/%d/sources/", titleID), params)
	if err != nil {
		return nil, provider.OutcomeTransient, credits, err
	}
	credits++

	var rows []sourceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, provider.OutcomeTransient, credits, fmt.Errorf("decode sources response: %w", err)
	}

	// Watchmode repeats a service per format/price variant; keep the first
	// entry per (name, type).
	type key struct {
		Name string
		Type string
	}
	seen := make(map[key]bool, len(rows))
	sources := make([]provider.Source, 0, len(rows))
	for _, row := range rows {
		k := key{row.Name, row.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		sources = append(sources, provider.Source{
			Name:       row.Name,
			SourceID:   row.SourceID,
			Type:       row.Type,
			Region:     row.Region,
			WebURL:     row.WebURL,
			IOSURL:     row.IOSURL,
			AndroidURL: row.AndroidURL,
			Price:      row.Price,
			Format:     row.Format,
		})
	}

	return sources, provider.OutcomeData, credits, nil
}

// get performs a rate-limited GET request to a Watchmode endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Watchmode %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

// truncate returns a truncated string for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
