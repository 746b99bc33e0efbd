// Package fr24 reads live flights from the flightradar24 public endpoints.
package fr24

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/internal/domain/normalize"
	"github.com/okian/skyguess/pkg/metrics"
)

// Config controls how the client reaches the upstream endpoints.
type Config struct {
	ListURL     string
	DetailsURL  string
	AirportsURL string
	UserAgent   string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client implements the resolver feed and the airport source. Every failure
// it returns wraps model.ErrUpstreamFailure.
type Client struct {
	listURL     string
	detailsURL  string
	airportsURL string
	userAgent   string
	httpClient  httpDoer
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		listURL:     orDefault(cfg.ListURL, defaultListURL),
		detailsURL:  orDefault(cfg.DetailsURL, defaultDetailsURL),
		airportsURL: orDefault(cfg.AirportsURL, defaultAirportsURL),
		userAgent:   orDefault(cfg.UserAgent, defaultUserAgent),
		httpClient:  resolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
	}
}

// ListFlightsNear returns the raw feed.js object for box. Flight entries are
// positional arrays; the other keys are metadata.
func (c *Client) ListFlightsNear(ctx context.Context, box geo.BoundingBox) (map[string]any, error) {
	q := url.Values{}
	for _, s := range listSources {
		q.Set(s, "1")
	}
	q.Set("maxage", strconv.Itoa(listMaxAge))
	q.Set("limit", strconv.Itoa(listLimit))
	q.Set("bounds", box.String())

	raw, err := c.getJSON(ctx, "list", c.listURL, q)
	if err != nil {
		return nil, err
	}
	entries, ok := raw.(map[string]any)
	if !ok {
		return nil, c.fail("list", fmt.Errorf("unexpected payload %T", raw))
	}
	return entries, nil
}

// FetchFlightDetails returns the raw details payload of key.
func (c *Client) FetchFlightDetails(ctx context.Context, key string) (any, error) {
	q := url.Values{}
	q.Set("flight", key)
	return c.getJSON(ctx, "details", c.detailsURL, q)
}

// FetchAirports returns the airport directory.
func (c *Client) FetchAirports(ctx context.Context) ([]model.Airport, error) {
	raw, err := c.getJSON(ctx, "airports", c.airportsURL, nil)
	if err != nil {
		return nil, err
	}
	return normalize.Airports(raw), nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, q url.Values) (any, error) {
	start := time.Now()
	out, err := c.doGetJSON(ctx, endpoint, q)
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordFeedRequestDuration(op, "error", ms)
		return nil, c.fail(op, err)
	}
	metrics.RecordFeedRequestDuration(op, "ok", ms)
	return out, nil
}

func (c *Client) doGetJSON(ctx context.Context, endpoint string, q url.Values) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

func (c *Client) fail(op string, err error) error {
	metrics.RecordUpstreamFailure(op)
	return fmt.Errorf("%w: fr24 %s: %w", model.ErrUpstreamFailure, op, err)
}
