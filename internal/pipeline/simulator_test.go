package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"incidentsim/internal/alerts"
	"incidentsim/internal/catalog"
	"incidentsim/internal/geo"
	"incidentsim/internal/incident"
	"incidentsim/internal/report"
	"incidentsim/internal/stats"
	"incidentsim/pkg/models"
)

type refusingGeocoder struct{}

func (refusingGeocoder) Lookup(context.Context, string) (models.Coordinates, error) {
	return models.Coordinates{}, errors.New("geocoder offline")
}

type memoryChannel struct {
	mu       sync.Mutex
	payloads []models.AlertPayload
	fail     bool
	closed   bool
}

func (c *memoryChannel) Send(ctx context.Context, p models.AlertPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("mail relay down")
	}
	c.payloads = append(c.payloads, p)
	return nil
}

func (c *memoryChannel) Close() error {
	c.closed = true
	return nil
}

type capturingRenderer struct {
	got *models.ReportPayload
	err error
}

func (r *capturingRenderer) Render(ctx context.Context, p models.ReportPayload) error {
	if r.err != nil {
		return r.err
	}
	r.got = &p
	return nil
}

func (r *capturingRenderer) Target() string { return "memory" }

func stubCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.AttackType{
			{Name: "Phishing", Severity: models.Medium},
			{Name: "Ransomware Attack", Severity: models.Critical},
		},
		[]catalog.Region{{Name: "Europe", Countries: []string{"DE", "FR"}}},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func newSimulator(t *testing.T, ch alerts.Channel, workers int) *Simulator {
	t.Helper()
	cat := stubCatalog(t)
	store := incident.NewStore()
	resolver := geo.NewResolver(refusingGeocoder{}, geo.WithTimeout(time.Second))
	factory := incident.NewFactory(cat, resolver, store, incident.WithSeed(7))
	exporter := report.NewExporter(stats.NewAggregator(cat), "session-1")
	return NewSimulator(factory, store, alerts.NewDispatcher(time.Second), ch, exporter, workers)
}

func TestRunEndToEndWithFailingGeocoder(t *testing.T) {
	ch := &memoryChannel{}
	sim := newSimulator(t, ch, 1)

	res, err := sim.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Incidents) != 3 {
		t.Fatalf("expected 3 incidents, got %d", len(res.Incidents))
	}
	for i, inc := range res.Incidents {
		if inc.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, inc.ID)
		}
		if !inc.Coordinates.IsFallback() {
			t.Fatalf("expected fallback coordinates, got %+v", inc.Coordinates)
		}
	}
	if res.GeoFailures != 3 {
		t.Fatalf("expected 3 geo failures, got %d", res.GeoFailures)
	}
	if len(ch.payloads) != 3 || res.AlertFailures != 0 {
		t.Fatalf("expected 3 delivered alerts, got %d (failures %d)", len(ch.payloads), res.AlertFailures)
	}

	r := &capturingRenderer{}
	payload, err := sim.Report(context.Background(), r)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if payload.Summary == nil || payload.Summary.TotalCount != 3 {
		t.Fatalf("expected total_count 3, got %+v", payload.Summary)
	}
	if r.got == nil || len(r.got.Recent) != 3 || r.got.Recent[0].ID != 3 {
		t.Fatalf("expected recent incidents newest first, got %+v", r.got)
	}
	if payload.SessionID != "session-1" {
		t.Fatalf("expected session id, got %q", payload.SessionID)
	}

	sim.Close()
	if !ch.closed {
		t.Fatalf("expected channel to be closed")
	}
}

func TestRunCountsAlertFailuresWithoutAborting(t *testing.T) {
	sim := newSimulator(t, &memoryChannel{fail: true}, 2)

	res, err := sim.Run(context.Background(), 4)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Incidents) != 4 || res.AlertFailures != 4 {
		t.Fatalf("expected 4 incidents and 4 alert failures, got %d and %d", len(res.Incidents), res.AlertFailures)
	}
	if sim.Store().Size() != 4 {
		t.Fatalf("expected store size 4, got %d", sim.Store().Size())
	}
}

func TestRunConcurrentWorkersKeepIDsGapless(t *testing.T) {
	sim := newSimulator(t, nil, 8)

	res, err := sim.Run(context.Background(), 200)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, inc := range res.Incidents {
		if inc.ID != int64(i+1) {
			t.Fatalf("expected id %d at position %d, got %d", i+1, i, inc.ID)
		}
	}
	if len(res.Incidents) != 200 {
		t.Fatalf("expected 200 incidents, got %d", len(res.Incidents))
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	sim := newSimulator(t, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := sim.Run(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.Incidents) >= 10 {
		t.Fatalf("expected a partial run, got %d incidents", len(res.Incidents))
	}
}

func TestReportOnEmptyHistoryHasNoSummary(t *testing.T) {
	sim := newSimulator(t, nil, 1)
	r := &capturingRenderer{}
	payload, err := sim.Report(context.Background(), r)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if payload.Summary != nil || len(payload.Recent) != 0 {
		t.Fatalf("expected no-data report, got %+v", payload)
	}
}

func TestReportRenderFailureIsWrapped(t *testing.T) {
	sim := newSimulator(t, nil, 1)
	_, err := sim.Report(context.Background(), &capturingRenderer{err: errors.New("disk full")})
	if !errors.Is(err, report.ErrRenderFailed) {
		t.Fatalf("expected ErrRenderFailed, got %v", err)
	}
}

// cancellingChannel interrupts the run from inside the first send, the way a
// signal arriving mid-delivery would.
type cancellingChannel struct {
	memoryChannel
	cancel context.CancelFunc
	errs   []error
}

func (c *cancellingChannel) Send(ctx context.Context, p models.AlertPayload) error {
	c.cancel()
	c.mu.Lock()
	c.errs = append(c.errs, ctx.Err())
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memoryChannel.Send(ctx, p)
}

func TestInterruptDoesNotDropAlertOfStoredIncident(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := &cancellingChannel{cancel: cancel}
	sim := newSimulator(t, ch, 4)

	res, err := sim.Run(ctx, 50)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.AlertFailures != 0 {
		t.Fatalf("expected no alert failures after interrupt, got %d", res.AlertFailures)
	}
	if len(ch.payloads) != sim.Store().Size() {
		t.Fatalf("expected one alert per stored incident, got %d alerts for %d incidents", len(ch.payloads), sim.Store().Size())
	}
	for _, e := range ch.errs {
		if e != nil {
			t.Fatalf("send saw a cancelled context: %v", e)
		}
	}
}
