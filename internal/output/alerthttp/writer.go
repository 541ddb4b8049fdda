package alerthttp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"incidentsim/internal/logger"
	"incidentsim/pkg/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Incidentsim-Signature"

// Config configures the webhook channel.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
	// Secret signs each body with HMAC-SHA256.
	Secret string
	// Retries is the number of extra attempts after a network error or a 5xx.
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// Writer posts alerts to a remote webhook.
type Writer struct {
	url     string
	headers map[string]string
	secret  []byte
	retries int
	backoff time.Duration
	client  *http.Client
}

type statusError struct {
	status string
	code   int
}

func (e *statusError) Error() string {
	return "webhook responded " + e.status
}

// NewWriter creates a webhook writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http alert URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		secret:  []byte(cfg.Secret),
		retries: cfg.Retries,
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Send posts one alert as JSON, retrying transient failures until ctx ends.
func (w *Writer) Send(ctx context.Context, payload models.AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	delay := w.backoff
	for attempt := 0; ; attempt++ {
		err = w.post(ctx, payload.IncidentID, body)
		if err == nil || attempt >= w.retries || !retryable(err) {
			return err
		}
		logger.Debugf("Webhook attempt %d for incident %d failed: %v", attempt+1, payload.IncidentID, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (w *Writer) post(ctx context.Context, incidentID int64, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Incident-ID", strconv.FormatInt(incidentID, 10))
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	if len(w.secret) > 0 {
		req.Header.Set(SignatureHeader, "sha256="+Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &statusError{status: resp.Status, code: resp.StatusCode}
	}
	return nil
}

func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
