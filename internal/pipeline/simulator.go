package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"incidentsim/internal/alerts"
	"incidentsim/internal/incident"
	"incidentsim/internal/logger"
	"incidentsim/internal/report"
	"incidentsim/pkg/models"
)

// Simulator runs a session: it creates incidents, alerts on each one and
// exports reports over the accumulated history.
type Simulator struct {
	factory    *incident.Factory
	store      *incident.Store
	dispatcher *alerts.Dispatcher
	channel    alerts.Channel
	exporter   *report.Exporter
	workers    int
}

// RunResult describes one Run.
type RunResult struct {
	// Incidents created by this run, ascending id.
	Incidents     []models.Incident
	AlertFailures int
	GeoFailures   int
	Elapsed       time.Duration
}

type outcome struct {
	inc      models.Incident
	geoOK    bool
	alertErr error
}

// NewSimulator wires a session. channel may be nil to drop alerts.
func NewSimulator(factory *incident.Factory, store *incident.Store, dispatcher *alerts.Dispatcher, channel alerts.Channel, exporter *report.Exporter, workers int) *Simulator {
	if workers <= 0 {
		workers = 1
	}
	return &Simulator{
		factory:    factory,
		store:      store,
		dispatcher: dispatcher,
		channel:    channel,
		exporter:   exporter,
		workers:    workers,
	}
}

// Store returns the session history.
func (s *Simulator) Store() *incident.Store {
	return s.store
}

// Run creates n incidents and dispatches an alert for each. Alert and
// geolocation failures are counted in the result; only a catalog error or
// context cancellation stops the run early.
func (s *Simulator) Run(ctx context.Context, n int) (RunResult, error) {
	start := time.Now()
	logger.Infof("Simulation started: incidents=%d workers=%d", n, s.workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens := make(chan struct{}, s.workers)
	results := make(chan outcome, s.workers*4)

	var (
		fatalOnce sync.Once
		fatal     error
	)

	var feeder sync.WaitGroup
	feeder.Add(1)
	go func() {
		defer feeder.Done()
		defer close(tokens)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case tokens <- struct{}{}:
			}
		}
	}()

	var workers sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for range tokens {
				if ctx.Err() != nil {
					continue
				}
				out, err := s.step(ctx)
				if err != nil {
					fatalOnce.Do(func() {
						fatal = err
						cancel()
					})
					continue
				}
				results <- out
			}
		}()
	}

	go func() {
		workers.Wait()
		close(results)
	}()

	var res RunResult
	for out := range results {
		res.Incidents = append(res.Incidents, out.inc)
		if !out.geoOK {
			res.GeoFailures++
		}
		if out.alertErr != nil {
			res.AlertFailures++
		}
	}
	feeder.Wait()

	sort.Slice(res.Incidents, func(i, j int) bool {
		return res.Incidents[i].ID < res.Incidents[j].ID
	})
	res.Elapsed = time.Since(start)

	logger.Event(logger.Info).
		Int("created", len(res.Incidents)).
		Int("alert_failures", res.AlertFailures).
		Int("geo_failures", res.GeoFailures).
		Dur("elapsed", res.Elapsed).
		Msg("Simulation finished")

	if fatal != nil {
		logger.Errorf("Simulation aborted: %v", fatal)
		return res, fatal
	}
	if len(res.Incidents) < n {
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Simulator) step(ctx context.Context) (outcome, error) {
	created, err := s.factory.Generate(ctx)
	if err != nil {
		return outcome{}, err
	}
	out := outcome{inc: created.Incident, geoOK: created.Geo.OK()}
	if s.channel != nil {
		// The incident is already stored; its alert must not be lost to an
		// interrupt or the journal would skip an id. The dispatcher timeout
		// still bounds the send.
		payload := s.dispatcher.Format(created.Incident)
		out.alertErr = s.dispatcher.Dispatch(context.WithoutCancel(ctx), payload, s.channel)
	}
	return out, nil
}

// Report exports the current history through r.
func (s *Simulator) Report(ctx context.Context, r report.Renderer) (models.ReportPayload, error) {
	return s.exporter.Export(ctx, s.store, r)
}

// Close releases the notification channel.
func (s *Simulator) Close() error {
	if s.channel == nil {
		return nil
	}
	if err := s.channel.Close(); err != nil {
		logger.Errorf("Failed to close alert channel: %v", err)
		return err
	}
	return nil
}
