package incident

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"incidentsim/internal/catalog"
	"incidentsim/internal/geo"
	"incidentsim/internal/logger"
	"incidentsim/internal/metrics"
	"incidentsim/pkg/models"
)

// Source draws uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// CoordinateResolver resolves a country code without ever failing.
type CoordinateResolver interface {
	Resolve(ctx context.Context, countryCode string) geo.Resolution
}

// Option configures a Factory.
type Option func(*Factory)

// WithRand replaces the random source.
func WithRand(src Source) Option {
	return func(f *Factory) {
		if src != nil {
			f.rng = src
		}
	}
}

// WithSeed uses a deterministic PCG source.
func WithSeed(seed uint64) Option {
	return func(f *Factory) {
		f.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithResponsePlan replaces the default response plan text.
func WithResponsePlan(plan string) Option {
	return func(f *Factory) {
		if plan != "" {
			f.plan = plan
		}
	}
}

// Factory synthesizes random incidents and records them in a Store.
type Factory struct {
	catalog  *catalog.Catalog
	resolver CoordinateResolver
	store    *Store
	plan     string
	now      func() time.Time

	rngMu sync.Mutex
	rng   Source
}

type draft struct {
	attackType string
	severity   models.Severity
	region     string
	country    string
	coords     models.Coordinates
}

// NewFactory creates a factory over cat, resolver and store.
func NewFactory(cat *catalog.Catalog, resolver CoordinateResolver, store *Store, opts ...Option) *Factory {
	f := &Factory{
		catalog:  cat,
		resolver: resolver,
		store:    store,
		plan:     models.DefaultResponsePlan,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Created is an incident together with the outcome of its geolocation.
type Created struct {
	Incident models.Incident
	Geo      geo.Resolution
}

// Create draws one incident, resolves its coordinates and appends it to the
// store. A geolocation failure only degrades the coordinates; the returned
// error is non-nil only for catalog misconfiguration.
func (f *Factory) Create(ctx context.Context) (models.Incident, error) {
	c, err := f.Generate(ctx)
	return c.Incident, err
}

// Generate is Create that also reports how geolocation went.
func (f *Factory) Generate(ctx context.Context) (Created, error) {
	d, err := f.draw()
	if err != nil {
		return Created{}, err
	}

	// Resolve before taking the store lock; lookups may block.
	res := f.resolver.Resolve(ctx, d.country)
	d.coords = res.Coordinates

	inc := f.store.AppendNext(func(id int64) models.Incident {
		return models.Incident{
			ID:           id,
			Timestamp:    f.now().UTC().Truncate(time.Second),
			AttackType:   d.attackType,
			Severity:     d.severity,
			Region:       d.region,
			CountryCode:  d.country,
			Coordinates:  d.coords,
			ResponsePlan: f.plan,
		}
	})

	metrics.IncidentsCreated.WithLabelValues(inc.Severity.String()).Inc()
	logger.Debugf("Incident %d created: type=%q severity=%s region=%q country=%s geo_ok=%t",
		inc.ID, inc.AttackType, inc.Severity, inc.Region, inc.CountryCode, res.OK())
	return Created{Incident: inc, Geo: res}, nil
}

func (f *Factory) draw() (draft, error) {
	attacks := f.catalog.AttackTypes()
	regions := f.catalog.Regions()
	if len(attacks) == 0 || len(regions) == 0 {
		return draft{}, fmt.Errorf("catalog is empty")
	}

	f.rngMu.Lock()
	attackType := attacks[f.rng.IntN(len(attacks))]
	region := regions[f.rng.IntN(len(regions))]
	countries, err := f.catalog.CountriesOf(region)
	var country string
	if err == nil && len(countries) > 0 {
		country = countries[f.rng.IntN(len(countries))]
	}
	f.rngMu.Unlock()

	if err != nil {
		return draft{}, err
	}
	if country == "" {
		return draft{}, fmt.Errorf("%w: %q has no countries", catalog.ErrUnknownRegion, region)
	}

	severity, err := f.catalog.SeverityOf(attackType)
	if err != nil {
		return draft{}, err
	}

	return draft{
		attackType: attackType,
		severity:   severity,
		region:     region,
		country:    country,
	}, nil
}
