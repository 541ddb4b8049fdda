package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/internal/stats"
	"incidentsim/pkg/models"
)

// RecentLimit is the number of incidents listed in a report.
const RecentLimit = 5

// DefaultTitle heads every report.
const DefaultTitle = "Security Incident Report"

// ErrRenderFailed wraps any failure of a renderer.
var ErrRenderFailed = errors.New("report render failed")

// Renderer writes a report payload to its output target. Implementations must
// leave no partial artifact behind on failure.
type Renderer interface {
	Render(ctx context.Context, payload models.ReportPayload) error
	Target() string
}

// Source is the incident history a report is built from.
type Source interface {
	stats.Source
	Recent(n int) []models.Incident
}

// Summarizer computes summary statistics over a history.
type Summarizer interface {
	Summarize(src stats.Source) (*models.SummaryStatistics, bool)
}

// Exporter builds reports from a history and hands them to a renderer.
type Exporter struct {
	summarizer Summarizer
	sessionID  string
	now        func() time.Time
}

// NewExporter creates an exporter. sessionID is stamped on every report.
func NewExporter(summarizer Summarizer, sessionID string) *Exporter {
	return &Exporter{summarizer: summarizer, sessionID: sessionID, now: time.Now}
}

// Build assembles the summary (nil when the history is empty) and the most
// recent incidents, newest first.
func (e *Exporter) Build(src Source) models.ReportPayload {
	summary, _ := e.summarizer.Summarize(src)

	recent := src.Recent(RecentLimit)
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	return models.ReportPayload{
		Title:       DefaultTitle,
		SessionID:   e.sessionID,
		GeneratedAt: e.now().UTC(),
		Summary:     summary,
		Recent:      recent,
	}
}

// Export builds a report and renders it. Render failures are returned wrapped
// in ErrRenderFailed.
func (e *Exporter) Export(ctx context.Context, src Source, r Renderer) (models.ReportPayload, error) {
	payload := e.Build(src)
	if err := r.Render(ctx, payload); err != nil {
		metrics.Reports.WithLabelValues("failed").Inc()
		logger.Errorf("Failed to render report to %s: %v", r.Target(), err)
		return payload, fmt.Errorf("%w: %s: %v", ErrRenderFailed, r.Target(), err)
	}
	metrics.Reports.WithLabelValues("rendered").Inc()
	logger.Infof("Report written: %s (incidents=%d)", r.Target(), summaryCount(payload))
	return payload, nil
}

func summaryCount(p models.ReportPayload) int {
	if p.Summary == nil {
		return 0
	}
	return p.Summary.TotalCount
}
