//go:build census

package census

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Census API. CENSUS_API_KEY is optional; keyless
// requests are rate limited but work for a handful of calls.
// Run with: go test -tags=census ./internal/adapter/census/ -v -count=1

func smokeClient() *Client {
	return &Client{
		apiKey:     os.Getenv("CENSUS_API_KEY"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		registry:   domain.DefaultRegistry(),
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_TotalPopulation(t *testing.T) {
	c := smokeClient()

	tables, err := c.Fetch(context.Background(), "Delaware", "totalPopulation")
	require.NoError(t, err)

	records, err := domain.Normalize(tables, mustSpec(t, "totalPopulation"))
	require.NoError(t, err)
	require.Len(t, records, 3, "Delaware has three counties")
	assert.Equal(t, "10001", records[0].FIPS)
	assert.Equal(t, "Kent County", records[0].County)
	assert.Greater(t, records[0].Value, 100000.0)
}

func TestSmoke_PopPctChange(t *testing.T) {
	c := smokeClient()

	tables, err := c.Fetch(context.Background(), "Rhode Island", "popPctChange")
	require.NoError(t, err)

	records, err := domain.Normalize(tables, mustSpec(t, "popPctChange"))
	require.NoError(t, err)
	assert.Len(t, records, 5)
	for _, r := range records {
		assert.Len(t, r.FIPS, 5)
		assert.True(t, r.Value > -100 && r.Value < 100, "%s: %f", r.County, r.Value)
	}
}
