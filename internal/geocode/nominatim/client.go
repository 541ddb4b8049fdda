package nominatim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/pkg/models"
)

// Config configures the Nominatim client.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond caps outgoing requests. The public instance allows 1/s.
	RatePerSecond float64
}

// Client looks up country coordinates through a Nominatim search endpoint.
type Client struct {
	endpoint  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[models.Coordinates]
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

var errNoResult = errors.New("nominatim returned no result")

// NewClient creates a client. The breaker opens after 5 consecutive failures
// and probes again after 30 seconds.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "https://nominatim.openstreetmap.org"
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid nominatim URL: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "incidentsim"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}

	name := "nominatim"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[models.Coordinates](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// An empty result means the endpoint is healthy.
			return err == nil || errors.Is(err, errNoResult)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Client{
		endpoint:  strings.TrimRight(cfg.URL, "/") + "/search",
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		cb:        cb,
	}, nil
}

// Lookup implements geo.Service.
func (c *Client) Lookup(ctx context.Context, countryCode string) (models.Coordinates, error) {
	return c.cb.Execute(func() (models.Coordinates, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Coordinates{}, fmt.Errorf("rate limit wait: %w", err)
		}
		return c.fetch(ctx, countryCode)
	})
}

func (c *Client) fetch(ctx context.Context, countryCode string) (models.Coordinates, error) {
	q := url.Values{}
	q.Set("country", countryCode)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return models.Coordinates{}, fmt.Errorf("http request failed with status %s", resp.Status)
	}

	var places []place
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places); err != nil {
		return models.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return models.Coordinates{}, errNoResult
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lon %q: %w", places[0].Lon, err)
	}
	return models.Coordinates{Lat: lat, Lon: lon}, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
