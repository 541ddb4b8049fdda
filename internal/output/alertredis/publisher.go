package alertredis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	redis "github.com/redis/go-redis/v9"

	"incidentsim/pkg/models"
)

// ErrTrimmed is returned when the list no longer starts at the first alert of
// the run, so the run cannot be replayed.
var ErrTrimmed = errors.New("alert list was trimmed")

// Config configures the Redis alert publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// MaxLen trims the list to the newest MaxLen alerts when positive. A run
	// longer than MaxLen can no longer be replayed with LoadIncidents.
	MaxLen int64
}

type listClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Publisher pushes alerts onto a Redis list for downstream consumers.
type Publisher struct {
	client listClient
	key    string
	maxLen int64
}

// NewPublisher creates a Redis list publisher. The list is emptied first so
// it holds exactly one run, like the file journal.
func NewPublisher(cfg Config) (*Publisher, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	p := newPublisher(client, cfg.Key, cfg.MaxLen)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Reset(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func newClient(cfg Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

func newPublisher(client listClient, key string, maxLen int64) *Publisher {
	return &Publisher{client: client, key: key, maxLen: maxLen}
}

// Reset deletes the list.
func (p *Publisher) Reset(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", p.key, err)
	}
	return nil
}

// Send appends one alert to the list.
func (p *Publisher) Send(ctx context.Context, payload models.AlertPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := p.client.RPush(ctx, p.key, data).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", p.key, err)
	}
	if p.maxLen > 0 {
		if err := p.client.LTrim(ctx, p.key, -p.maxLen, -1).Err(); err != nil {
			return fmt.Errorf("redis ltrim %s: %w", p.key, err)
		}
	}
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// LoadIncidents reads every alert currently on the list without consuming it
// and returns the incidents they carry, oldest first. A list whose lowest id
// is not 1 was trimmed by MaxLen and fails with ErrTrimmed.
func LoadIncidents(ctx context.Context, cfg Config) ([]models.Incident, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return loadIncidents(ctx, client, cfg.Key)
}

func loadIncidents(ctx context.Context, client listClient, key string) ([]models.Incident, error) {
	items, err := client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}

	out := make([]models.Incident, 0, len(items))
	for i, item := range items {
		var p models.AlertPayload
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("%s[%d]: decode alert: %w", key, i, err)
		}
		out = append(out, p.Incident)
	}

	if len(out) > 0 {
		lowest := out[0].ID
		for _, inc := range out[1:] {
			if inc.ID < lowest {
				lowest = inc.ID
			}
		}
		if lowest != 1 {
			return nil, fmt.Errorf("%w: %s starts at incident %d", ErrTrimmed, key, lowest)
		}
	}
	return out, nil
}
