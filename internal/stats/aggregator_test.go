package stats

import (
	"math"
	"testing"
	"time"

	"incidentsim/internal/catalog"
	"incidentsim/internal/incident"
	"incidentsim/pkg/models"
)

type sliceSource []models.Incident

func (s sliceSource) All() []models.Incident { return s }

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func inc(id int64, attack string, sev models.Severity, ts time.Time) models.Incident {
	return models.Incident{ID: id, AttackType: attack, Severity: sev, Timestamp: ts}
}

func TestSummarizeEmptyStoreReturnsEmptyMarker(t *testing.T) {
	a := NewAggregator(catalog.Default())
	got, ok := a.Summarize(incident.NewStore())
	if ok || got != nil {
		t.Fatalf("expected empty marker, got %+v", got)
	}
}

func TestSummarizeComputesAllMetrics(t *testing.T) {
	store := incident.NewStore()
	for _, i := range []models.Incident{
		inc(1, "SQL Injection", models.Critical, base),
		inc(2, "Malware Infection", models.Medium, base),
		inc(3, "SQL Injection", models.Critical, base.Add(-30*time.Hour)),
		inc(4, "Phishing Attack", models.High, base),
	} {
		if err := store.Append(i); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	a := NewAggregator(catalog.Default(), WithClock(func() time.Time { return base }))
	got, ok := a.Summarize(store)
	if !ok {
		t.Fatalf("expected statistics")
	}
	if got.TotalCount != store.Size() {
		t.Fatalf("expected total %d, got %d", store.Size(), got.TotalCount)
	}
	if got.MostCommonAttackType != "SQL Injection" {
		t.Fatalf("unexpected mode %q", got.MostCommonAttackType)
	}
	if math.Abs(got.AverageSeverityScore-3.25) > 1e-9 {
		t.Fatalf("expected average 3.25, got %v", got.AverageSeverityScore)
	}
	if got.CriticalCount != 2 {
		t.Fatalf("expected 2 critical, got %d", got.CriticalCount)
	}
	if got.Last24hCount != 3 {
		t.Fatalf("expected 3 in last 24h, got %d", got.Last24hCount)
	}
	if !got.ComputedAt.Equal(base) {
		t.Fatalf("unexpected computed_at %v", got.ComputedAt)
	}
}

func TestMostCommonTieBreaksOnCatalogOrder(t *testing.T) {
	// DDoS Attack is declared after Phishing Attack; Data Breach appears once.
	src := sliceSource{
		inc(1, "DDoS Attack", models.High, base),
		inc(2, "Phishing Attack", models.High, base),
		inc(3, "DDoS Attack", models.High, base),
		inc(4, "Data Breach", models.Critical, base),
		inc(5, "Phishing Attack", models.High, base),
	}
	a := NewAggregator(catalog.Default(), WithClock(func() time.Time { return base }))

	for i := 0; i < 50; i++ {
		got, _ := a.Summarize(src)
		if got.MostCommonAttackType != "Phishing Attack" {
			t.Fatalf("run %d: expected Phishing Attack, got %q", i, got.MostCommonAttackType)
		}
	}
}

func TestMostCommonRanksUndeclaredTypesLast(t *testing.T) {
	src := sliceSource{
		inc(1, "Zeta", models.Low, base),
		inc(2, "Alpha", models.Low, base),
		inc(3, "Brute Force Attack", models.Medium, base),
	}
	got, _ := NewAggregator(catalog.Default()).Summarize(src)
	if got.MostCommonAttackType != "Brute Force Attack" {
		t.Fatalf("expected declared type to win tie, got %q", got.MostCommonAttackType)
	}

	got, _ = NewAggregator(catalog.Default()).Summarize(src[:2])
	if got.MostCommonAttackType != "Alpha" {
		t.Fatalf("expected name order among undeclared types, got %q", got.MostCommonAttackType)
	}
}

func TestLast24hCountMovesWithClock(t *testing.T) {
	src := sliceSource{
		inc(1, "DDoS Attack", models.High, base),
		inc(2, "DDoS Attack", models.High, base),
		inc(3, "DDoS Attack", models.High, base),
	}

	now := base
	a := NewAggregator(catalog.Default(), WithClock(func() time.Time { return now }))
	got, _ := a.Summarize(src)
	if got.Last24hCount != 3 {
		t.Fatalf("expected 3, got %d", got.Last24hCount)
	}

	now = base.Add(25 * time.Hour)
	got, _ = a.Summarize(src)
	if got.Last24hCount != 0 {
		t.Fatalf("expected 0 after 25h, got %d", got.Last24hCount)
	}
	if got.TotalCount != 3 {
		t.Fatalf("total must not depend on the window, got %d", got.TotalCount)
	}
}

func TestSummarizeReadsClockOnce(t *testing.T) {
	calls := 0
	a := NewAggregator(catalog.Default(), WithClock(func() time.Time {
		calls++
		return base
	}))
	a.Summarize(sliceSource{inc(1, "DDoS Attack", models.High, base), inc(2, "DDoS Attack", models.High, base)})
	if calls != 1 {
		t.Fatalf("expected a single clock read, got %d", calls)
	}
}
