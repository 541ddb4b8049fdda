package alertclickhouse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
	// BatchSize buffers rows until this many are pending. 1 inserts every
	// alert immediately; Close flushes the remainder. With a batch, Send
	// succeeds once the row is queued and delivery is settled at flush time.
	BatchSize int
}

// Writer inserts alert rows into ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint  string
	headers   map[string]string
	client    *http.Client
	batchSize int

	mu      sync.Mutex
	pending []row
}

// row is the flattened table layout of one alert.
type row struct {
	IncidentID   int64   `json:"incident_id"`
	Timestamp    string  `json:"timestamp"`
	AttackType   string  `json:"attack_type"`
	Severity     string  `json:"severity"`
	SeverityRank int     `json:"severity_score"`
	Region       string  `json:"region"`
	CountryCode  string  `json:"country_code"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	ResponsePlan string  `json:"response_plan"`
	Subject      string  `json:"subject"`
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "security_incidents"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	endpoint := strings.TrimRight(cfg.URL, "/") + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint:  endpoint,
		headers:   headers,
		client:    &http.Client{Timeout: timeout},
		batchSize: cfg.BatchSize,
	}, nil
}

// Send queues one alert row and inserts the batch once it is full.
func (w *Writer) Send(ctx context.Context, payload models.AlertPayload) error {
	inc := payload.Incident
	r := row{
		IncidentID:   inc.ID,
		Timestamp:    inc.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		AttackType:   inc.AttackType,
		Severity:     inc.Severity.String(),
		SeverityRank: inc.Severity.Score(),
		Region:       inc.Region,
		CountryCode:  inc.CountryCode,
		Lat:          inc.Coordinates.Lat,
		Lon:          inc.Coordinates.Lon,
		ResponsePlan: inc.ResponsePlan,
		Subject:      payload.Subject,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, r)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

func (w *Writer) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, r := range w.pending {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal alert row: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	w.pending = w.pending[:0]
	return nil
}

// Close flushes queued rows and releases resources. Rows still queued when
// that flush fails are logged and counted as failed alerts, since Send
// already reported them as accepted.
func (w *Writer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.client.Timeout)
	defer cancel()

	w.mu.Lock()
	err := w.flushLocked(ctx)
	lost := len(w.pending)
	w.pending = nil
	w.mu.Unlock()

	w.client.CloseIdleConnections()
	if err != nil {
		metrics.Alerts.WithLabelValues("failed").Add(float64(lost))
		logger.Errorf("ClickHouse final flush failed, %d queued alerts lost: %v", lost, err)
		return err
	}
	return nil
}

func quoteIdent(v string) string {
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
