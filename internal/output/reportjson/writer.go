package reportjson

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"incidentsim/internal/output/atomicfile"
	"incidentsim/pkg/models"
)

// Writer renders reports as indented JSON documents.
type Writer struct {
	path string
}

// NewWriter creates a JSON report writer for path.
func NewWriter(path string) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("report path is empty")
	}
	return &Writer{path: path}, nil
}

// Render writes payload to the target path atomically.
func (w *Writer) Render(ctx context.Context, payload models.ReportPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if payload.Recent == nil {
		payload.Recent = []models.Incident{}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return atomicfile.Write(w.path, append(data, '\n'), 0644)
}

// Target returns the output path.
func (w *Writer) Target() string {
	return w.path
}
