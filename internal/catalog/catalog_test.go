package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incidentsim/pkg/models"
)

func TestDefaultCatalogMatchesBuiltInTables(t *testing.T) {
	c := Default()

	attacks := c.AttackTypes()
	if len(attacks) != 10 {
		t.Fatalf("expected 10 attack types, got %d", len(attacks))
	}
	if attacks[0] != "Phishing Attack" || attacks[9] != "Cross-Site Scripting" {
		t.Fatalf("unexpected declaration order: %v", attacks)
	}

	sev, err := c.SeverityOf("Zero-Day Exploit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sev != models.Critical {
		t.Fatalf("expected Critical, got %s", sev)
	}

	regions := c.Regions()
	if len(regions) != 4 {
		t.Fatalf("expected 4 regions, got %d", len(regions))
	}
	europe, err := c.CountriesOf("Europe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(europe) != 4 || europe[3] != "RU" {
		t.Fatalf("unexpected europe countries: %v", europe)
	}
}

func TestUnknownKeysReturnTypedErrors(t *testing.T) {
	c := Default()

	if _, err := c.SeverityOf("Telepathy"); !errors.Is(err, ErrUnknownAttackType) {
		t.Fatalf("expected ErrUnknownAttackType, got %v", err)
	}
	if _, err := c.CountriesOf("Atlantis"); !errors.Is(err, ErrUnknownRegion) {
		t.Fatalf("expected ErrUnknownRegion, got %v", err)
	}
	if c.Rank("Telepathy") != -1 {
		t.Fatalf("expected rank -1 for unknown attack type")
	}
}

func TestCountriesOfReturnsCopy(t *testing.T) {
	c := Default()
	codes, _ := c.CountriesOf("Other")
	codes[0] = "XX"

	again, _ := c.CountriesOf("Other")
	if again[0] != "BR" {
		t.Fatalf("catalog was mutated through returned slice: %v", again)
	}
}

func TestNewRejectsInvalidTables(t *testing.T) {
	okAttacks := []AttackType{{Name: "A", Severity: models.Low}}
	okRegions := []Region{{Name: "R", Countries: []string{"US"}}}

	cases := map[string]struct {
		attacks []AttackType
		regions []Region
	}{
		"no attacks":        {nil, okRegions},
		"no regions":        {okAttacks, nil},
		"duplicate attack":  {[]AttackType{{Name: "A", Severity: models.Low}, {Name: "A", Severity: models.High}}, okRegions},
		"invalid severity":  {[]AttackType{{Name: "A"}}, okRegions},
		"empty region":      {okAttacks, []Region{{Name: "R"}}},
		"bad country code":  {okAttacks, []Region{{Name: "R", Countries: []string{"usa"}}}},
		"overlapping codes": {okAttacks, []Region{{Name: "R1", Countries: []string{"US"}}, {Name: "R2", Countries: []string{"US"}}}},
	}

	for name, tc := range cases {
		if _, err := New(tc.attacks, tc.regions); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestInvalidSeverityErrorListsLevels(t *testing.T) {
	_, err := New([]AttackType{{Name: "A", Severity: models.Severity(9)}}, []Region{{Name: "R", Countries: []string{"US"}}})
	if err == nil || !strings.Contains(err.Error(), "Low|Medium|High|Critical") {
		t.Fatalf("expected valid levels in error, got %v", err)
	}
}

func TestLoadReadsYAMLCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yml")
	body := `attack_types:
  - name: Credential Stuffing
    severity: medium
  - name: Supply Chain Compromise
    severity: Critical
regions:
  - name: Oceania
    countries: [AU, NZ]
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	sev, err := c.SeverityOf("Supply Chain Compromise")
	if err != nil || sev != models.Critical {
		t.Fatalf("expected Critical, got %s (%v)", sev, err)
	}
	if !c.HasCountry("Oceania", "NZ") {
		t.Fatalf("expected NZ in Oceania")
	}
}
