package catalog

import (
	"errors"
	"fmt"
	"strings"

	"incidentsim/pkg/models"
)

var (
	// ErrUnknownAttackType is returned for an attack type the catalog does not declare.
	ErrUnknownAttackType = errors.New("unknown attack type")
	// ErrUnknownRegion is returned for a region the catalog does not declare.
	ErrUnknownRegion = errors.New("unknown region")
)

// AttackType is one attack-type entry.
type AttackType struct {
	Name     string          `yaml:"name"`
	Severity models.Severity `yaml:"severity"`
}

// Region is one region entry with its source countries.
type Region struct {
	Name      string   `yaml:"name"`
	Countries []string `yaml:"countries"`
}

// Catalog maps attack types to severities and regions to country codes.
// It is immutable after New and safe to share between goroutines.
type Catalog struct {
	attacks   []AttackType
	regions   []Region
	severity  map[string]models.Severity
	countries map[string][]string
	order     map[string]int
}

// New validates the tables and builds a catalog that keeps declaration order.
func New(attacks []AttackType, regions []Region) (*Catalog, error) {
	if len(attacks) == 0 {
		return nil, fmt.Errorf("catalog has no attack types")
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("catalog has no regions")
	}

	c := &Catalog{
		attacks:   make([]AttackType, 0, len(attacks)),
		regions:   make([]Region, 0, len(regions)),
		severity:  make(map[string]models.Severity, len(attacks)),
		countries: make(map[string][]string, len(regions)),
		order:     make(map[string]int, len(attacks)),
	}

	for _, a := range attacks {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("attack type with empty name")
		}
		if _, dup := c.severity[name]; dup {
			return nil, fmt.Errorf("duplicate attack type %q", name)
		}
		if !a.Severity.Valid() {
			return nil, fmt.Errorf("attack type %q: invalid severity %d (want %s)", name, int(a.Severity), models.SeverityNames("|"))
		}
		c.order[name] = len(c.attacks)
		c.severity[name] = a.Severity
		c.attacks = append(c.attacks, AttackType{Name: name, Severity: a.Severity})
	}

	owner := make(map[string]string)
	for _, r := range regions {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("region with empty name")
		}
		if _, dup := c.countries[name]; dup {
			return nil, fmt.Errorf("duplicate region %q", name)
		}
		if len(r.Countries) == 0 {
			return nil, fmt.Errorf("region %q has no countries", name)
		}
		codes := make([]string, 0, len(r.Countries))
		for _, raw := range r.Countries {
			code := strings.TrimSpace(raw)
			if !validCountryCode(code) {
				return nil, fmt.Errorf("region %q: invalid country code %q", name, raw)
			}
			if prev, taken := owner[code]; taken {
				return nil, fmt.Errorf("country %s listed in both %q and %q", code, prev, name)
			}
			owner[code] = name
			codes = append(codes, code)
		}
		c.countries[name] = codes
		c.regions = append(c.regions, Region{Name: name, Countries: codes})
	}

	return c, nil
}

// SeverityOf returns the severity declared for attackType.
func (c *Catalog) SeverityOf(attackType string) (models.Severity, error) {
	sev, ok := c.severity[attackType]
	if !ok {
		return models.SeverityUnknown, fmt.Errorf("%w: %q", ErrUnknownAttackType, attackType)
	}
	return sev, nil
}

// CountriesOf returns the country codes of region in declaration order.
func (c *Catalog) CountriesOf(region string) ([]string, error) {
	codes, ok := c.countries[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	out := make([]string, len(codes))
	copy(out, codes)
	return out, nil
}

// HasCountry reports whether code belongs to region.
func (c *Catalog) HasCountry(region, code string) bool {
	for _, cc := range c.countries[region] {
		if cc == code {
			return true
		}
	}
	return false
}

// AttackTypes returns attack-type names in declaration order.
func (c *Catalog) AttackTypes() []string {
	out := make([]string, len(c.attacks))
	for i, a := range c.attacks {
		out[i] = a.Name
	}
	return out
}

// Regions returns region names in declaration order.
func (c *Catalog) Regions() []string {
	out := make([]string, len(c.regions))
	for i, r := range c.regions {
		out[i] = r.Name
	}
	return out
}

// Rank returns the declaration index of attackType, or -1 if it is unknown.
func (c *Catalog) Rank(attackType string) int {
	idx, ok := c.order[attackType]
	if !ok {
		return -1
	}
	return idx
}

// Entries returns copies of both tables, mainly for display.
func (c *Catalog) Entries() ([]AttackType, []Region) {
	attacks := make([]AttackType, len(c.attacks))
	copy(attacks, c.attacks)
	regions := make([]Region, len(c.regions))
	for i, r := range c.regions {
		regions[i] = Region{Name: r.Name, Countries: append([]string(nil), r.Countries...)}
	}
	return attacks, regions
}

func validCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
