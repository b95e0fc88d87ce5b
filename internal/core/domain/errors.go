package domain

import "errors"

var (
	// ErrGeocodeFailed wraps transport and parse failures of the geocoding service.
	ErrGeocodeFailed = errors.New("geocode failed")
	// ErrRouteFailed wraps transport and parse failures of the routing service.
	ErrRouteFailed = errors.New("route failed")
	// ErrCancelled marks work abandoned because its sequence was superseded.
	ErrCancelled = errors.New("cancelled")
	// ErrSurfaceUnavailable is returned when there is no widget library or container.
	ErrSurfaceUnavailable = errors.New("map surface unavailable")
	// ErrAlreadyInitialized is returned by a second initialize on the same mount.
	ErrAlreadyInitialized = errors.New("map surface already initialized")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnsupportedLang    = errors.New("unsupported language")
)

// IsCancelled reports whether err is a cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
