package reportjson

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"incidentsim/pkg/models"
)

func TestRenderWritesPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	payload := models.ReportPayload{
		Title:       "Security Incident Report",
		GeneratedAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Summary:     &models.SummaryStatistics{TotalCount: 1, MostCommonAttackType: "DDoS Attack", AverageSeverityScore: 3},
		Recent:      []models.Incident{{ID: 1, AttackType: "DDoS Attack", Severity: models.High}},
	}
	if err := w.Render(context.Background(), payload); err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.ReportPayload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Summary == nil || got.Summary.MostCommonAttackType != "DDoS Attack" {
		t.Fatalf("unexpected summary: %+v", got.Summary)
	}
	if len(got.Recent) != 1 || got.Recent[0].Severity != models.High {
		t.Fatalf("unexpected recent: %+v", got.Recent)
	}
}

func TestRenderNoDataOmitsSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	w, _ := NewWriter(path)
	if err := w.Render(context.Background(), models.ReportPayload{Title: "x"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	var raw map[string]any
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["summary"]; ok {
		t.Fatalf("summary must be absent when there is no data")
	}
}
