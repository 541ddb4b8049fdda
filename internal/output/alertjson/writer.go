package alertjson

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"incidentsim/internal/logger"
	"incidentsim/pkg/models"
)

// Writer journals alerts to a JSON lines file, one payload per line.
type Writer struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer for alerts. An existing file is truncated;
// a journal covers exactly one session.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	logger.Infof("Alert JSON writer initialized: %s", path)
	return &Writer{
		path:    path,
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Send appends one alert to the journal.
func (w *Writer) Send(ctx context.Context, payload models.AlertPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("alert journal %s is closed", w.path)
	}
	if err := w.encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// LoadIncidents reads the incidents recorded in an alert journal, in file
// order. Blank lines are skipped.
func LoadIncidents(path string) ([]models.Incident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []models.Incident
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var p models.AlertPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%s:%d: decode alert: %w", path, line, err)
		}
		out = append(out, p.Incident)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
