// Package enrich selects catalog records that still miss provider data and
// drives the per-title enrichment pass: metadata and availability lookups,
// merged into one field update per title, under a caller-supplied credit
// budget.
package enrich

import (
	"context"
	"log/slog"

	"github.com/bingeguide/catalog-data/internal/catalog"
	"github.com/bingeguide/catalog-data/internal/provider"
)

// Store is the slice of the catalog gateway the enrichment pass needs.
type Store interface {
	SelectEligible(ctx context.Context, tier catalog.Tier, limit int, needs catalog.Needs, filter []string) ([]catalog.Record, error)
	PublishedListMembers(ctx context.Context) ([]string, error)
	UpdateFields(ctx context.Context, imdbID string, delta catalog.Delta) error
}

// MetadataClient is the metadata provider contract.
type MetadataClient interface {
	Fetch(ctx context.Context, imdbID string) (*provider.Metadata, provider.Outcome, error)
}

// AvailabilityClient is the availability provider contract. The int return
// is the number of provider credits the call consumed.
type AvailabilityClient interface {
	Fetch(ctx context.Context, imdbID string) ([]provider.Source, provider.Outcome, int, error)
}

// Options are the recognized enrichment run parameters.
type Options struct {
	Limit         int  // max candidates this run
	CreditLimit   int  // availability credit ceiling; 0 = uncapped
	MetadataLimit int  // metadata call ceiling; 0 = uncapped
	MetadataOnly  bool // skip the availability provider entirely
	PublishedOnly bool // restrict to titles on published curated lists
}

const defaultLimit = 50

// selectionTiers is the fixed priority order candidates are drawn in. A
// tier is only consulted once the previous tiers left budget unspent.
var selectionTiers = []catalog.Tier{
	catalog.TierFeatured,
	catalog.TierRecent,
	catalog.TierRemainder,
}

// SelectCandidates pulls this run's candidates tier by tier until the limit
// is filled. With PublishedOnly set, an empty membership filter yields zero
// candidates — falling back to the unfiltered set would burn provider budget
// on titles nobody can currently see.
func SelectCandidates(ctx context.Context, store Store, opts Options, logger *slog.Logger) ([]catalog.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	needs := catalog.Needs{
		Metadata:     true,
		Availability: !opts.MetadataOnly,
	}

	var filter []string
	if opts.PublishedOnly {
		members, err := store.PublishedListMembers(ctx)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			logger.Info("No published list members; selecting nothing")
			return nil, nil
		}
		filter = members
	}

	var candidates []catalog.Record
	for _, tier := range selectionTiers {
		remaining := limit - len(candidates)
		if remaining <= 0 {
			break
		}
		recs, err := store.SelectEligible(ctx, tier, remaining, needs, filter)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			logger.Info("Selected tier candidates", "tier", tier.String(), "count", len(recs))
		}
		candidates = append(candidates, recs...)
	}
	return candidates, nil
}
