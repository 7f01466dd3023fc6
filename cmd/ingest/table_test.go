package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bingeguide/catalog-data/internal/runlog"
)

func TestRenderRunsTable(t *testing.T) {
	entries := []runlog.Entry{
		{
			Kind:      runlog.KindImport,
			StartedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
			Duration:  1500 * time.Millisecond,
			Stats:     map[string]any{"inserted": float64(42), "duration_ms": float64(1500)},
		},
	}

	out := renderRunsTable(entries)
	assert.Contains(t, out, "STARTED")
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "2026-08-01 10:30:00")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "inserted=42")
}

func TestStatsSummary(t *testing.T) {
	out := statsSummary(map[string]any{
		"rejected":     float64(3),
		"inserted":     float64(10),
		"rate_per_sec": 12.5,
		"duration_ms":  float64(900),
	})

	// Sorted keys, floats collapsed to ints where exact, duration dropped.
	assert.Equal(t, "inserted=10 rate_per_sec=12.5 rejected=3", out)
}
