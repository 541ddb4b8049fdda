package incident

import (
	"errors"
	"fmt"
	"sort"

	"incidentsim/internal/catalog"
	"incidentsim/pkg/models"
)

// ErrCatalogMismatch is returned when a recorded incident could not have been
// produced by the active catalog.
var ErrCatalogMismatch = errors.New("incident does not match catalog")

// Restore rebuilds a store from previously recorded incidents. Input order
// does not matter; the ids must form the sequence 1..len(incidents) and every
// incident must agree with cat.
func Restore(cat *catalog.Catalog, incidents []models.Incident) (*Store, error) {
	sorted := make([]models.Incident, len(incidents))
	copy(sorted, incidents)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	s := NewStore()
	for _, inc := range sorted {
		if err := Check(cat, inc); err != nil {
			return nil, err
		}
		if err := s.Append(inc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Check verifies that inc carries the catalog severity of its attack type and
// a country of its region.
func Check(cat *catalog.Catalog, inc models.Incident) error {
	want, err := cat.SeverityOf(inc.AttackType)
	if err != nil {
		return fmt.Errorf("%w: incident %d: %w", ErrCatalogMismatch, inc.ID, err)
	}
	if inc.Severity != want {
		return fmt.Errorf("%w: incident %d: %q has severity %s, catalog says %s",
			ErrCatalogMismatch, inc.ID, inc.AttackType, inc.Severity, want)
	}
	if _, err := cat.CountriesOf(inc.Region); err != nil {
		return fmt.Errorf("%w: incident %d: %w", ErrCatalogMismatch, inc.ID, err)
	}
	if !cat.HasCountry(inc.Region, inc.CountryCode) {
		return fmt.Errorf("%w: incident %d: country %s is not in region %q",
			ErrCatalogMismatch, inc.ID, inc.CountryCode, inc.Region)
	}
	return nil
}
