package static

import (
	"context"
	"fmt"
	"strings"

	"incidentsim/pkg/models"
)

// centroids holds approximate country centres, keyed by ISO 3166-1 alpha-2 code.
var centroids = map[string]models.Coordinates{
	"AR": {Lat: -38.42, Lon: -63.62},
	"AU": {Lat: -25.27, Lon: 133.78},
	"BR": {Lat: -14.24, Lon: -51.93},
	"CA": {Lat: 56.13, Lon: -106.35},
	"CH": {Lat: 46.82, Lon: 8.23},
	"CN": {Lat: 35.86, Lon: 104.20},
	"DE": {Lat: 51.17, Lon: 10.45},
	"EG": {Lat: 26.82, Lon: 30.80},
	"ES": {Lat: 40.46, Lon: -3.75},
	"FR": {Lat: 46.23, Lon: 2.21},
	"GB": {Lat: 55.38, Lon: -3.44},
	"ID": {Lat: -0.79, Lon: 113.92},
	"IL": {Lat: 31.05, Lon: 34.85},
	"IN": {Lat: 20.59, Lon: 78.96},
	"IR": {Lat: 32.43, Lon: 53.69},
	"IT": {Lat: 41.87, Lon: 12.57},
	"JP": {Lat: 36.20, Lon: 138.25},
	"KP": {Lat: 40.34, Lon: 127.51},
	"KR": {Lat: 35.91, Lon: 127.77},
	"MX": {Lat: 23.63, Lon: -102.55},
	"NG": {Lat: 9.08, Lon: 8.68},
	"NL": {Lat: 52.13, Lon: 5.29},
	"NZ": {Lat: -40.90, Lon: 174.89},
	"PL": {Lat: 51.92, Lon: 19.15},
	"RU": {Lat: 61.52, Lon: 105.32},
	"SE": {Lat: 60.13, Lon: 18.64},
	"SG": {Lat: 1.35, Lon: 103.82},
	"TR": {Lat: 38.96, Lon: 35.24},
	"UA": {Lat: 48.38, Lon: 31.17},
	"US": {Lat: 37.09, Lon: -95.71},
	"VN": {Lat: 14.06, Lon: 108.28},
	"ZA": {Lat: -30.56, Lon: 22.94},
}

// Service resolves country codes from a built-in centroid table. It never
// touches the network.
type Service struct {
	table map[string]models.Coordinates
}

// NewService returns a table-backed service. Extra entries override or extend
// the built-in table.
func NewService(extra map[string]models.Coordinates) *Service {
	table := make(map[string]models.Coordinates, len(centroids)+len(extra))
	for k, v := range centroids {
		table[k] = v
	}
	for k, v := range extra {
		table[strings.ToUpper(k)] = v
	}
	return &Service{table: table}
}

// Lookup returns the centroid of countryCode.
func (s *Service) Lookup(ctx context.Context, countryCode string) (models.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinates{}, err
	}
	c, ok := s.table[strings.ToUpper(countryCode)]
	if !ok {
		return models.Coordinates{}, fmt.Errorf("no centroid for country %q", countryCode)
	}
	return c, nil
}
