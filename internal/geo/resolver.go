package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/pkg/models"
)

// ErrResolutionFailed marks a lookup that degraded to fallback coordinates.
var ErrResolutionFailed = errors.New("geo resolution failed")

// Service looks up the representative coordinates of a country code.
type Service interface {
	Lookup(ctx context.Context, countryCode string) (models.Coordinates, error)
}

// Resolution is the outcome of Resolve. Err is nil on success and wraps
// ErrResolutionFailed otherwise, in which case Coordinates is the fallback.
type Resolution struct {
	Coordinates models.Coordinates
	Cached      bool
	Err         error
}

// OK reports whether the lookup succeeded.
func (r Resolution) OK() bool {
	return r.Err == nil
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each service lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithoutCache disables the per-country result cache.
func WithoutCache() Option {
	return func(r *Resolver) {
		r.cacheEnabled = false
	}
}

// Resolver isolates the best-effort geocoding lookup. It never returns an
// error to callers.
type Resolver struct {
	service      Service
	timeout      time.Duration
	cacheEnabled bool

	mu    sync.RWMutex
	cache map[string]models.Coordinates
}

// NewResolver wraps service. A nil service makes every lookup fail.
func NewResolver(service Service, opts ...Option) *Resolver {
	r := &Resolver{
		service:      service,
		timeout:      5 * time.Second,
		cacheEnabled: true,
		cache:        make(map[string]models.Coordinates),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the coordinates of countryCode, or the fallback (0, 0)
// with Err set when the lookup fails for any reason.
func (r *Resolver) Resolve(ctx context.Context, countryCode string) Resolution {
	code := strings.ToUpper(strings.TrimSpace(countryCode))

	if r.cacheEnabled {
		r.mu.RLock()
		c, ok := r.cache[code]
		r.mu.RUnlock()
		if ok {
			return Resolution{Coordinates: c, Cached: true}
		}
	}

	coords, err := r.lookup(ctx, code)
	if err != nil {
		metrics.GeoResolutionFailures.Inc()
		logger.Warnf("Geo resolution failed for %q, using fallback coordinates: %v", code, err)
		return Resolution{
			Coordinates: models.FallbackCoordinates,
			Err:         fmt.Errorf("%w: %s: %v", ErrResolutionFailed, code, err),
		}
	}

	if r.cacheEnabled {
		r.mu.Lock()
		r.cache[code] = coords
		r.mu.Unlock()
	}
	return Resolution{Coordinates: coords}
}

func (r *Resolver) lookup(ctx context.Context, code string) (coords models.Coordinates, err error) {
	if r.service == nil {
		return coords, errors.New("no geocoding service configured")
	}
	if code == "" {
		return coords, errors.New("empty country code")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("geocoding service panic: %v", p)
		}
	}()

	start := time.Now()
	coords, err = r.service.Lookup(ctx, code)
	metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return models.Coordinates{}, err
	}
	if ctx.Err() != nil {
		return models.Coordinates{}, ctx.Err()
	}
	if !validCoordinates(coords) {
		return models.Coordinates{}, fmt.Errorf("malformed coordinates %v,%v", coords.Lat, coords.Lon)
	}
	return coords, nil
}

func validCoordinates(c models.Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
