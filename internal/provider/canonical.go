// Package provider defines canonical data types that all providers normalize
// into. These structs are the contract between provider clients and the
// enrichment runner — providers output these, the runner writes them to
// Postgres.
//
// Adding a new provider means implementing a client that returns these types.
// The enrichment runner and Postgres schema never change.
package provider

// Outcome classifies the result of one provider lookup.
//
// The distinction between NoMatch and Transient matters: NoMatch is a
// definitive answer from the provider ("this title does not exist here") and
// must not be retried within a run, while Transient failures (network, parse,
// non-200) leave the record eligible for a future run.
type Outcome int

const (
	// OutcomeData means the provider returned usable data.
	OutcomeData Outcome = iota
	// OutcomeNoMatch means the provider confirmed the title is unknown to it.
	OutcomeNoMatch
	// OutcomeTransient means the lookup failed for a retryable reason.
	OutcomeTransient
)

// String returns the outcome name for logs and stats.
func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "data"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Metadata is the canonical shape of a metadata provider response. Every
// field is optional; empty string / nil means the provider had nothing.
type Metadata struct {
	Title          string   `json:"title,omitempty"`
	Year           *int     `json:"year,omitempty"`
	PosterURL      string   `json:"poster_url,omitempty"`
	Plot           string   `json:"plot,omitempty"`
	Directors      []string `json:"directors,omitempty"`
	Countries      []string `json:"countries,omitempty"`
	RuntimeMinutes *int     `json:"runtime_minutes,omitempty"`
	ContentRating  string   `json:"content_rating,omitempty"`
	CriticRating   *float64 `json:"critic_rating,omitempty"`
	Genres         []string `json:"genres,omitempty"`
}

// Offer types for availability sources.
const (
	OfferSubscription = "sub"
	OfferFree         = "free"
	OfferRent         = "rent"
	OfferBuy          = "buy"
)

// Source is one canonical streaming availability entry: where a title can be
// watched, on what terms, and where the deep links point.
type Source struct {
	Name       string   `json:"name"`
	SourceID   int      `json:"source_id"`
	Type       string   `json:"type"` // sub, free, rent, buy
	Region     string   `json:"region"`
	WebURL     string   `json:"web_url,omitempty"`
	IOSURL     string   `json:"ios_url,omitempty"`
	AndroidURL string   `json:"android_url,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	Format     string   `json:"format,omitempty"` // SD, HD, 4K
}
