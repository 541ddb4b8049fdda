package stats

import (
	"time"

	"incidentsim/internal/catalog"
	"incidentsim/pkg/models"
)

// Window is the lookback of SummaryStatistics.Last24hCount.
const Window = 24 * time.Hour

// Source provides a point-in-time copy of an incident history.
type Source interface {
	All() []models.Incident
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator computes summary statistics over an incident history. Results are
// never cached.
type Aggregator struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewAggregator creates an aggregator. The catalog fixes the tie-break order of
// the most common attack type.
func NewAggregator(cat *catalog.Catalog, opts ...Option) *Aggregator {
	a := &Aggregator{catalog: cat, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize computes statistics over src. It returns (nil, false) when the
// history is empty; callers must treat that as "no data", not as zeros.
func (a *Aggregator) Summarize(src Source) (*models.SummaryStatistics, bool) {
	now := a.now()
	incidents := src.All()
	if len(incidents) == 0 {
		return nil, false
	}

	cutoff := now.Add(-Window)
	counts := make(map[string]int)
	scoreSum := 0
	critical := 0
	recent := 0

	for _, inc := range incidents {
		counts[inc.AttackType]++
		scoreSum += inc.Severity.Score()
		if inc.Severity == models.Critical {
			critical++
		}
		if inc.Timestamp.After(cutoff) && !inc.Timestamp.After(now) {
			recent++
		}
	}

	return &models.SummaryStatistics{
		TotalCount:           len(incidents),
		MostCommonAttackType: a.mode(counts),
		AverageSeverityScore: float64(scoreSum) / float64(len(incidents)),
		CriticalCount:        critical,
		Last24hCount:         recent,
		ComputedAt:           now,
	}, true
}

// mode picks the highest count; ties go to the attack type declared first in
// the catalog, then to undeclared types by name.
func (a *Aggregator) mode(counts map[string]int) string {
	best := ""
	bestCount := -1
	for name, n := range counts {
		if n > bestCount || (n == bestCount && a.before(name, best)) {
			best, bestCount = name, n
		}
	}
	return best
}

func (a *Aggregator) before(x, y string) bool {
	rx, ry := -1, -1
	if a.catalog != nil {
		rx, ry = a.catalog.Rank(x), a.catalog.Rank(y)
	}
	switch {
	case rx >= 0 && ry >= 0:
		return rx < ry
	case rx >= 0:
		return true
	case ry >= 0:
		return false
	default:
		return x < y
	}
}
