package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bingeguide/catalog-data/internal/catalog"
	"github.com/bingeguide/catalog-data/internal/provider"
	"github.com/bingeguide/catalog-data/internal/provider/watchmode"
)

// Run executes one enrichment pass: select candidates, enrich each in
// priority order, report. One candidate at a time, one in-flight provider
// call at a time — both providers are quota-constrained, and the clients'
// inter-call delay is the rate limit.
//
// Per-candidate failures are counted and the pass continues; the returned
// error is non-nil only for configuration-level failures that abort the run
// before it starts.
func Run(ctx context.Context, store Store, metadata MetadataClient, availability AvailabilityClient, opts Options, logger *slog.Logger) (EnrichResult, error) {
	start := time.Now()
	var result EnrichResult

	if metadata == nil {
		return result, fmt.Errorf("metadata provider is not configured")
	}
	if availability == nil && !opts.MetadataOnly {
		return result, fmt.Errorf("availability provider is not configured (use --metadata-only to skip it)")
	}

	candidates, err := SelectCandidates(ctx, store, opts, logger)
	if err != nil {
		return result, fmt.Errorf("select candidates: %w", err)
	}
	logger.Info("Enrichment candidates selected", "count", len(candidates))

	for i, rec := range candidates {
		// A run may be interrupted between candidates; each candidate's
		// read-enrich-write cycle completes fully before the next begins.
		if ctx.Err() != nil {
			result.AddErrorf("run interrupted after %d candidates: %v", i, ctx.Err())
			break
		}
		result.Considered++

		delta := catalog.Delta{}
		enrichMetadata(ctx, metadata, rec, delta, opts, &result)
		enrichAvailability(ctx, availability, rec, delta, opts, &result)

		if len(delta) == 0 {
			continue
		}
		// One write per candidate, never one per provider: keeps the
		// partial-failure window small and avoids timestamp churn.
		delta["last_enriched_at"] = time.Now().UTC()
		if err := store.UpdateFields(ctx, rec.ImdbID, delta); err != nil {
			result.UpdatesFailed++
			result.AddErrorf("update %s: %v", rec.ImdbID, err)
			continue
		}
		result.UpdatesOK++

		if (i+1)%25 == 0 {
			logger.Info("Enrichment progress", "processed", i+1, "of", len(candidates),
				"credits_used", result.CreditsUsed)
		}
	}

	result.Duration = time.Since(start)
	logger.Info("Enrichment complete", "summary", result.Summary())
	return result, nil
}

func enrichMetadata(ctx context.Context, client MetadataClient, rec catalog.Record, delta catalog.Delta, opts Options, result *EnrichResult) {
	if rec.PosterURL != "" {
		return
	}
	metaCalls := result.MetadataData + result.MetadataNoMatch + result.MetadataFailed
	if opts.MetadataLimit > 0 && metaCalls >= opts.MetadataLimit {
		result.SkippedBudget++
		return
	}

	md, outcome, err := client.Fetch(ctx, rec.ImdbID)
	switch outcome {
	case provider.OutcomeData:
		result.MetadataData++
		applyMetadata(rec, md, delta)
	case provider.OutcomeNoMatch:
		result.MetadataNoMatch++
	default:
		result.MetadataFailed++
		result.AddErrorf("metadata %s: %v", rec.ImdbID, err)
	}
}

func enrichAvailability(ctx context.Context, client AvailabilityClient, rec catalog.Record, delta catalog.Delta, opts Options, result *EnrichResult) {
	if opts.MetadataOnly || rec.AvailabilityCheckedAt != nil {
		return
	}
	if opts.CreditLimit > 0 && result.CreditsUsed+watchmode.CostPerCheck > opts.CreditLimit {
		result.SkippedBudget++
		return
	}

	sources, outcome, credits, err := client.Fetch(ctx, rec.ImdbID)
	result.CreditsUsed += credits
	switch outcome {
	case provider.OutcomeData:
		// An empty source list here is a completed check: the provider knows
		// the title and confirms nothing carries it. The checked marker is
		// what distinguishes it from "never looked".
		result.AvailabilityData++
		delta["availability"] = sources
		delta["availability_checked_at"] = time.Now().UTC()
	case provider.OutcomeNoMatch:
		// The provider has no record of the title at all. No marker: the
		// title stays eligible for a future run once the provider indexes
		// it.
		result.AvailabilityNoMatch++
	default:
		result.AvailabilityFailed++
		result.AddErrorf("availability %s: %v", rec.ImdbID, err)
	}
}

// applyMetadata copies provider fields into the delta. Empty provider values
// never overwrite stored data, and the import-owned title is left alone; the
// year is only filled when the store has none.
func applyMetadata(rec catalog.Record, md *provider.Metadata, delta catalog.Delta) {
	if md.PosterURL != "" {
		delta["poster_url"] = md.PosterURL
	}
	if md.Plot != "" {
		delta["synopsis"] = md.Plot
	}
	if len(md.Directors) > 0 {
		delta["directors"] = md.Directors
	}
	if len(md.Countries) > 0 {
		delta["countries"] = md.Countries
	}
	if len(md.Genres) > 0 {
		delta["genres"] = md.Genres
	}
	if md.RuntimeMinutes != nil {
		delta["runtime_minutes"] = md.RuntimeMinutes
	}
	if md.ContentRating != "" {
		delta["content_rating"] = md.ContentRating
	}
	if md.CriticRating != nil {
		delta["critic_rating"] = md.CriticRating
	}
	if rec.Year == nil && md.Year != nil {
		delta["year"] = md.Year
	}
}
