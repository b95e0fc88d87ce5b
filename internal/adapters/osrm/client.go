// Package osrm computes driving routes with the OSRM HTTP API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/pkg/geospatial"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

const DefaultBaseURL = "https://router.project-osrm.org"

// OSRM response codes that mean "no route" rather than failure.
const (
	codeOK        = "Ok"
	codeNoRoute   = "NoRoute"
	codeNoSegment = "NoSegment"
)

// Config for the OSRM client.
type Config struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

// Client is a ports.Router backed by OSRM.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
	logger     *slog.Logger
}

// routeResponse is the subset of /route/v1 used here.
type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64           `json:"distance"` // meters
		Duration float64           `json:"duration"` // seconds
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// NewClient creates an OSRM client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = "driving"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		profile:    cfg.Profile,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "osrm"),
	}
}

// Route returns the first route from origin to destination, or nil if
// OSRM finds none.
func (c *Client) Route(ctx context.Context, origin, destination domain.Coordinate) (*domain.RouteResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRoute)
	defer span.End()

	start := time.Now()
	res, err := c.route(ctx, origin, destination)
	metrics.ObserveUpstream("osrm", start)

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
	metrics.RouteRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(telemetry.AttrOutcome.String(outcome))
	if res != nil {
		span.SetAttributes(telemetry.AttrRoutePoints.Int(len(res.Geometry)))
	}

	return res, err
}

func (c *Client) route(ctx context.Context, origin, destination domain.Coordinate) (*domain.RouteResult, error) {
	// OSRM takes lon,lat pairs.
	url := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=geojson",
		c.baseURL, c.profile,
		formatDegrees(origin.Lon), formatDegrees(origin.Lat),
		formatDegrees(destination.Lon), formatDegrees(destination.Lat),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrRouteFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrap(ctx, err)
	}
	defer resp.Body.Close()

	// OSRM answers NoRoute with 400 and a JSON body, so decode first.
	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: osrm returned status %d", domain.ErrRouteFailed, resp.StatusCode)
		}
		return nil, c.wrap(ctx, fmt.Errorf("decode response: %w", err))
	}

	switch body.Code {
	case codeOK:
	case codeNoRoute, codeNoSegment:
		c.logger.Debug("no route found", "code", body.Code, "message", body.Message)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: osrm %s (status %d): %s", domain.ErrRouteFailed, body.Code, resp.StatusCode, body.Message)
	}
	if len(body.Routes) == 0 || body.Routes[0].Geometry == nil {
		return nil, nil
	}

	first := body.Routes[0]
	line, ok := first.Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected geometry type %q", domain.ErrRouteFailed, first.Geometry.Type)
	}
	if len(line) == 0 {
		return nil, nil
	}

	geometry := make(domain.RouteGeometry, len(line))
	for i, p := range line {
		geometry[i] = domain.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
	}

	distance := first.Distance
	if distance == 0 {
		distance = geospatial.PathLength(geometry)
	}

	return &domain.RouteResult{
		Geometry:        geometry,
		DistanceMeters:  distance,
		DurationSeconds: first.Duration,
	}, nil
}

func (c *Client) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
	return fmt.Errorf("%w: %w", domain.ErrRouteFailed, err)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
