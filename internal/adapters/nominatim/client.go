// Package nominatim resolves place names through the Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Config for the Nominatim client.
type Config struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds a single request. Zero means no client-side limit.
	Timeout time.Duration
}

// Client is a ports.Geocoder backed by Nominatim.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// place is one entry of a search response. Coordinates arrive as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewClient creates a Nominatim client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "nominatim"),
	}
}

// Geocode returns the best match for query, or nil when nothing matches.
// An empty query returns nil without a request.
func (c *Client) Geocode(ctx context.Context, query, language string) (*domain.GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGeocode, trace.WithAttributes(
		telemetry.AttrQuery.String(query),
		telemetry.AttrLanguage.String(language),
	))
	defer span.End()

	start := time.Now()
	res, err := c.search(ctx, query, language)
	metrics.ObserveUpstream("nominatim", start)

	outcome := metrics.OutcomeMatch
	switch {
	case err != nil && domain.IsCancelled(err):
		outcome = metrics.OutcomeCancelled
	case err != nil:
		outcome = metrics.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res == nil:
		outcome = metrics.OutcomeNoMatch
	}
	metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(telemetry.AttrOutcome.String(outcome))

	return res, err
}

func (c *Client) search(ctx context.Context, query, language string) (*domain.GeocodeResult, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrGeocodeFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if language != "" {
		req.Header.Set("Accept-Language", language)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrap(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: nominatim returned status %d", domain.ErrGeocodeFailed, resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, c.wrap(ctx, fmt.Errorf("decode response: %w", err))
	}
	if len(places) == 0 {
		c.logger.Debug("no location found", "query", query)
		return nil, nil
	}

	lat, err := parseDegrees(places[0].Lat)
	if err != nil {
		return nil, fmt.Errorf("%w: lat: %w", domain.ErrGeocodeFailed, err)
	}
	lon, err := parseDegrees(places[0].Lon)
	if err != nil {
		return nil, fmt.Errorf("%w: lon: %w", domain.ErrGeocodeFailed, err)
	}

	return &domain.GeocodeResult{
		Location:    domain.Coordinate{Lat: lat, Lon: lon},
		DisplayName: places[0].DisplayName,
	}, nil
}

// wrap classifies err as a cancellation when the caller's context ended,
// and as a geocoding failure otherwise.
func (c *Client) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
	return fmt.Errorf("%w: %w", domain.ErrGeocodeFailed, err)
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
