package nominatim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mapview/internal/adapters/nominatim"
	"github.com/samirrijal/mapview/internal/core/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) (*nominatim.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return nominatim.NewClient(nominatim.Config{BaseURL: srv.URL, UserAgent: "mapview-test"}, nil), &hits
}

func TestGeocode_Match(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "Playa Delfines", r.URL.Query().Get("q"))
		assert.Equal(t, "es", r.Header.Get("Accept-Language"))
		assert.Equal(t, "mapview-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"21.0596","lon":"-86.7797","display_name":"Playa Delfines, Cancún"}]`))
	})

	res, err := c.Geocode(context.Background(), "  Playa Delfines ", "es")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.Coordinate{Lat: 21.0596, Lon: -86.7797}, res.Location)
	assert.Equal(t, "Playa Delfines, Cancún", res.DisplayName)
}

func TestGeocode_NoMatch(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	res, err := c.Geocode(context.Background(), "Nonexistent Place XYZ", "es")
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestGeocode_EmptyQuerySkipsRequest(t *testing.T) {
	c, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {})

	res, err := c.Geocode(context.Background(), "   ", "es")
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, hits.Load())
}

func TestGeocode_ServerError(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Geocode(context.Background(), "Cancún", "es")
	assert.ErrorIs(t, err, domain.ErrGeocodeFailed)
	assert.False(t, domain.IsCancelled(err))
}

func TestGeocode_BadJSON(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":`))
	})

	_, err := c.Geocode(context.Background(), "Cancún", "es")
	assert.ErrorIs(t, err, domain.ErrGeocodeFailed)
}

func TestGeocode_NonNumericCoordinates(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"-86.7"}]`))
	})

	_, err := c.Geocode(context.Background(), "Cancún", "es")
	assert.ErrorIs(t, err, domain.ErrGeocodeFailed)
}

func TestGeocode_Cancelled(t *testing.T) {
	release := make(chan struct{})
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Geocode(ctx, "Cancún", "es")
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrGeocodeFailed)
}

func TestGeocode_ClientTimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := nominatim.NewClient(nominatim.Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)
	_, err := c.Geocode(context.Background(), "Cancún", "es")
	assert.ErrorIs(t, err, domain.ErrGeocodeFailed)
	assert.False(t, domain.IsCancelled(err))
}
