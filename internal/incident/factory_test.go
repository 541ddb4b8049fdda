package incident

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"incidentsim/internal/catalog"
	"incidentsim/internal/geo"
	"incidentsim/pkg/models"
)

type failingService struct{}

func (failingService) Lookup(context.Context, string) (models.Coordinates, error) {
	return models.Coordinates{}, errors.New("lookup refused")
}

type fixedService struct{ c models.Coordinates }

func (s fixedService) Lookup(context.Context, string) (models.Coordinates, error) {
	return s.c, nil
}

// scripted returns queued values, then zeros.
type scripted struct{ vals []int }

func (s *scripted) IntN(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)
}

func TestCreateKeepsSeverityAndCountryConsistentWithCatalog(t *testing.T) {
	cat := catalog.Default()
	store := NewStore()
	f := NewFactory(cat, geo.NewResolver(fixedService{models.Coordinates{Lat: 1, Lon: 1}}), store, WithSeed(7))

	for i := 0; i < 200; i++ {
		inc, err := f.Create(context.Background())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		want, err := cat.SeverityOf(inc.AttackType)
		if err != nil {
			t.Fatalf("attack type not in catalog: %v", err)
		}
		if inc.Severity != want {
			t.Fatalf("incident %d: severity %s does not match catalog %s", inc.ID, inc.Severity, want)
		}
		if !cat.HasCountry(inc.Region, inc.CountryCode) {
			t.Fatalf("incident %d: %s not in region %s", inc.ID, inc.CountryCode, inc.Region)
		}
		if inc.ResponsePlan != models.DefaultResponsePlan {
			t.Fatalf("unexpected response plan %q", inc.ResponsePlan)
		}
	}
}

func TestCreateUsesInjectedRandomnessAndClock(t *testing.T) {
	cat := catalog.Default()
	// attack index 3 (Data Breach), region index 2 (Asia), country index 1 (JP)
	src := &scripted{vals: []int{3, 2, 1}}
	f := NewFactory(cat, geo.NewResolver(fixedService{models.Coordinates{Lat: 36.2, Lon: 138.25}}), NewStore(),
		WithRand(src), WithClock(fixedClock), WithResponsePlan("Isolate host."))

	inc, err := f.Create(context.Background())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inc.AttackType != "Data Breach" || inc.Severity != models.Critical {
		t.Fatalf("unexpected attack: %s/%s", inc.AttackType, inc.Severity)
	}
	if inc.Region != "Asia" || inc.CountryCode != "JP" {
		t.Fatalf("unexpected location: %s/%s", inc.Region, inc.CountryCode)
	}
	if !inc.Timestamp.Equal(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Fatalf("expected second-precision timestamp, got %v", inc.Timestamp)
	}
	if inc.ResponsePlan != "Isolate host." {
		t.Fatalf("unexpected plan %q", inc.ResponsePlan)
	}
	if inc.ID != 1 {
		t.Fatalf("expected id 1, got %d", inc.ID)
	}
}

func TestCreateSurvivesGeoFailure(t *testing.T) {
	store := NewStore()
	f := NewFactory(catalog.Default(), geo.NewResolver(failingService{}), store, WithSeed(1))

	inc, err := f.Create(context.Background())
	if err != nil {
		t.Fatalf("geo failure must not abort creation: %v", err)
	}
	if !inc.Coordinates.IsFallback() {
		t.Fatalf("expected fallback coordinates, got %v", inc.Coordinates)
	}
	if store.Size() != 1 {
		t.Fatalf("expected incident to be recorded")
	}
}

func TestConcurrentCreateProducesGaplessIDs(t *testing.T) {
	store := NewStore()
	f := NewFactory(catalog.Default(), geo.NewResolver(fixedService{models.Coordinates{Lat: 2, Lon: 2}}), store, WithSeed(42))

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := f.Create(context.Background()); err != nil {
					t.Errorf("create: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	all := store.All()
	if len(all) != workers*perWorker {
		t.Fatalf("expected %d incidents, got %d", workers*perWorker, len(all))
	}
	for i, inc := range all {
		if inc.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, inc.ID)
		}
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	run := func() []models.Incident {
		store := NewStore()
		f := NewFactory(catalog.Default(), geo.NewResolver(failingService{}), store, WithSeed(99), WithClock(fixedClock))
		for i := 0; i < 20; i++ {
			f.Create(context.Background())
		}
		return store.All()
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sequences diverge at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}
