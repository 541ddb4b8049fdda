package catalog

import "incidentsim/pkg/models"

var defaultAttacks = []AttackType{
	{Name: "Phishing Attack", Severity: models.High},
	{Name: "DDoS Attack", Severity: models.High},
	{Name: "Malware Infection", Severity: models.Medium},
	{Name: "Data Breach", Severity: models.Critical},
	{Name: "SQL Injection", Severity: models.Critical},
	{Name: "Ransomware Attack", Severity: models.Critical},
	{Name: "Man-in-the-Middle", Severity: models.High},
	{Name: "Zero-Day Exploit", Severity: models.Critical},
	{Name: "Brute Force Attack", Severity: models.Medium},
	{Name: "Cross-Site Scripting", Severity: models.High},
}

var defaultRegions = []Region{
	{Name: "North America", Countries: []string{"US", "CA"}},
	{Name: "Europe", Countries: []string{"GB", "DE", "FR", "RU"}},
	{Name: "Asia", Countries: []string{"CN", "JP", "KR", "IN"}},
	{Name: "Other", Countries: []string{"BR", "AU"}},
}

// Default returns the built-in catalog of ten attack types and four regions.
func Default() *Catalog {
	c, err := New(defaultAttacks, defaultRegions)
	if err != nil {
		panic("catalog: invalid built-in table: " + err.Error())
	}
	return c
}
