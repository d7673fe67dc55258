package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
)

// DefaultBaseURL is the root of the Census Bureau data API.
const DefaultBaseURL = "https://api.census.gov/data"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client fetches county tables from the Census data API.
// It implements pipeline.Fetcher.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	registry   *domain.Registry
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Census API client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, registry *domain.Registry, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Fetch resolves the variable and state, then issues one GET per request
// template in order. Each returned table is labeled with its template's
// column map. Unknown variables and states fail before any request is made.
func (c *Client) Fetch(ctx context.Context, state, variable string) ([]domain.Table, error) {
	spec, err := c.registry.Lookup(variable)
	if err != nil {
		return nil, err
	}
	st, err := domain.LookupState(state)
	if err != nil {
		return nil, err
	}

	tables := make([]domain.Table, 0, len(spec.Requests))
	for i, req := range spec.Requests {
		tbl, err := c.doRequest(ctx, req.Expand(c.baseURL, st.FIPS, c.apiKey))
		if err != nil {
			return nil, fmt.Errorf("%s request %d for %s: %w", spec.Key, i+1, st.Name, err)
		}
		c.logger.Debug("census response received",
			"variable", spec.Key,
			"state", st.Name,
			"request", i+1,
			"rows", tbl.Len(),
		)
		tables = append(tables, tbl.Rename(req.Columns))
	}
	return tables, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Table{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues("error").Inc()
		// *url.Error repeats the full URL, credential included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.Table{}, fmt.Errorf("census request %s: %w", redactKey(fullURL), err)
	}
	defer resp.Body.Close()

	c.metrics.UpstreamRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("census API error",
			"status", resp.StatusCode,
			"url", redactKey(fullURL),
		)
		return domain.Table{}, &domain.UpstreamError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	var rows [][]string
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.Table{}, fmt.Errorf("%w: decode response: %v", domain.ErrMalformedResponse, err)
	}
	return domain.NewTable(rows)
}

// redactKey hides the API credential in URLs that end up in logs and errors.
func redactKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Get("key") != "" {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
