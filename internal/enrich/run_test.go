package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingeguide/catalog-data/internal/catalog"
	"github.com/bingeguide/catalog-data/internal/provider"
)

// runStore hands every candidate out of the first tier consulted and records
// the field updates applied.
type runStore struct {
	candidates []catalog.Record
	updates    map[string][]catalog.Delta
	served     bool
}

func newRunStore(recs ...catalog.Record) *runStore {
	return &runStore{candidates: recs, updates: map[string][]catalog.Delta{}}
}

func (s *runStore) SelectEligible(_ context.Context, _ catalog.Tier, limit int, _ catalog.Needs, _ []string) ([]catalog.Record, error) {
	if s.served {
		return nil, nil
	}
	s.served = true
	recs := s.candidates
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *runStore) PublishedListMembers(_ context.Context) ([]string, error) { return nil, nil }

func (s *runStore) UpdateFields(_ context.Context, imdbID string, delta catalog.Delta) error {
	s.updates[imdbID] = append(s.updates[imdbID], delta)
	return nil
}

type fakeMetadata struct {
	outcome provider.Outcome
	meta    *provider.Metadata
	calls   int
}

func (c *fakeMetadata) Fetch(_ context.Context, _ string) (*provider.Metadata, provider.Outcome, error) {
	c.calls++
	return c.meta, c.outcome, nil
}

type fakeAvailability struct {
	outcome provider.Outcome
	sources []provider.Source
	credits int
	calls   int
}

func (c *fakeAvailability) Fetch(_ context.Context, _ string) ([]provider.Source, provider.Outcome, int, error) {
	c.calls++
	return c.sources, c.outcome, c.credits, nil
}

func candidateRecords(n int) []catalog.Record {
	recs := make([]catalog.Record, n)
	for i := range recs {
		recs[i] = catalog.Record{ImdbID: fmt.Sprintf("tt%07d", i+1)}
	}
	return recs
}

func TestRunSingleUpdatePerCandidate(t *testing.T) {
	store := newRunStore(catalog.Record{ImdbID: "tt0111161"})
	meta := &fakeMetadata{
		outcome: provider.OutcomeData,
		meta:    &provider.Metadata{PosterURL: "https://img.example/p.jpg", Plot: "Two imprisoned men bond."},
	}
	avail := &fakeAvailability{
		outcome: provider.OutcomeData,
		sources: []provider.Source{{Name: "Netflix", Type: provider.OfferSubscription}},
		credits: 2,
	}

	result, err := Run(context.Background(), store, meta, avail, Options{Limit: 5}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Considered)
	assert.Equal(t, 1, result.UpdatesOK)
	assert.Equal(t, 2, result.CreditsUsed)
	require.Len(t, store.updates["tt0111161"], 1)

	delta := store.updates["tt0111161"][0]
	assert.Equal(t, "https://img.example/p.jpg", delta["poster_url"])
	assert.Contains(t, delta, "availability")
	assert.Contains(t, delta, "availability_checked_at")
	assert.Contains(t, delta, "last_enriched_at")
}

func TestRunCreditBudgetCeiling(t *testing.T) {
	store := newRunStore(candidateRecords(10)...)
	meta := &fakeMetadata{outcome: provider.OutcomeNoMatch}
	avail := &fakeAvailability{outcome: provider.OutcomeData, credits: 2}

	result, err := Run(context.Background(), store, meta, avail, Options{Limit: 10, CreditLimit: 7}, testLogger())
	require.NoError(t, err)

	// 2 credits per completed check: a ceiling of 7 funds exactly 3 checks.
	assert.Equal(t, 3, avail.calls)
	assert.Equal(t, 6, result.CreditsUsed)
	assert.Equal(t, 7, result.SkippedBudget)
	assert.Equal(t, 10, result.Considered)
}

func TestRunAvailabilityNoMatchLeavesNoMarker(t *testing.T) {
	store := newRunStore(catalog.Record{ImdbID: "tt0111161", PosterURL: "have"})
	meta := &fakeMetadata{outcome: provider.OutcomeData}
	avail := &fakeAvailability{outcome: provider.OutcomeNoMatch, credits: 1}

	result, err := Run(context.Background(), store, meta, avail, Options{Limit: 5}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, result.AvailabilityNoMatch)
	assert.Equal(t, 1, result.CreditsUsed)
	// No availability fields and no other delta either, so no write at all.
	assert.Empty(t, store.updates)
	assert.Zero(t, result.UpdatesOK)
}

func TestRunEmptySourcesStillWritesMarker(t *testing.T) {
	store := newRunStore(catalog.Record{ImdbID: "tt0111161", PosterURL: "have"})
	meta := &fakeMetadata{outcome: provider.OutcomeData}
	avail := &fakeAvailability{outcome: provider.OutcomeData, sources: nil, credits: 2}

	_, err := Run(context.Background(), store, meta, avail, Options{Limit: 5}, testLogger())
	require.NoError(t, err)

	require.Len(t, store.updates["tt0111161"], 1)
	delta := store.updates["tt0111161"][0]
	assert.Contains(t, delta, "availability_checked_at")
}

func TestRunMetadataOnly(t *testing.T) {
	store := newRunStore(catalog.Record{ImdbID: "tt0111161"})
	meta := &fakeMetadata{outcome: provider.OutcomeData, meta: &provider.Metadata{PosterURL: "p"}}

	result, err := Run(context.Background(), store, meta, nil, Options{Limit: 5, MetadataOnly: true}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MetadataData)
	assert.Zero(t, result.CreditsUsed)
	require.Len(t, store.updates["tt0111161"], 1)
	assert.NotContains(t, store.updates["tt0111161"][0], "availability_checked_at")
}

func TestRunMissingAvailabilityClient(t *testing.T) {
	store := newRunStore()
	meta := &fakeMetadata{}

	_, err := Run(context.Background(), store, meta, nil, Options{Limit: 5}, testLogger())
	assert.Error(t, err)
}

func TestRunSkipsAlreadyCheckedAvailability(t *testing.T) {
	checked := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newRunStore(catalog.Record{ImdbID: "tt0111161", PosterURL: "have", AvailabilityCheckedAt: &checked})
	meta := &fakeMetadata{outcome: provider.OutcomeData}
	avail := &fakeAvailability{outcome: provider.OutcomeData, credits: 2}

	result, err := Run(context.Background(), store, meta, avail, Options{Limit: 5}, testLogger())
	require.NoError(t, err)
	assert.Zero(t, avail.calls)
	assert.Zero(t, result.CreditsUsed)
}

func TestRunMetadataNeverOverwritesTitleOrYear(t *testing.T) {
	year := 1994
	mdYear := 1995
	store := newRunStore(catalog.Record{ImdbID: "tt0111161", Title: "Stored Title", Year: &year})
	meta := &fakeMetadata{
		outcome: provider.OutcomeData,
		meta:    &provider.Metadata{Title: "Provider Title", Year: &mdYear, PosterURL: "p"},
	}
	avail := &fakeAvailability{outcome: provider.OutcomeNoMatch, credits: 1}

	_, err := Run(context.Background(), store, meta, avail, Options{Limit: 5}, testLogger())
	require.NoError(t, err)

	require.Len(t, store.updates["tt0111161"], 1)
	delta := store.updates["tt0111161"][0]
	assert.NotContains(t, delta, "title")
	assert.NotContains(t, delta, "year")
}
