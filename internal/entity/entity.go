package entity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entity is one geographic feature (a city) to overlay. The list is static
// reference data, owned by the loader and read-only to the overlay engine.
type Entity struct {
	Name       string  `json:"name"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population float64 `json:"population"`
}

// Key returns the stable identity used for fade-state bookkeeping.
func (e Entity) Key() string {
	return e.Name + "|" + e.Country
}

// Load reads a JSON array of entities from path.
func Load(path string) ([]Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entities file: %w", err)
	}

	var entities []Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("parse entities file %s: %w", path, err)
	}
	return entities, nil
}

// Builtin returns a small default city list so the overlay works before any
// entities file is configured.
func Builtin() []Entity {
	return []Entity{
		{Name: "New York", Country: "US", Lat: 40.7128, Lon: -74.0060, Population: 8_400_000},
		{Name: "Philadelphia", Country: "US", Lat: 39.9526, Lon: -75.1652, Population: 1_600_000},
		{Name: "Boston", Country: "US", Lat: 42.3601, Lon: -71.0589, Population: 675_000},
		{Name: "Washington", Country: "US", Lat: 38.9072, Lon: -77.0369, Population: 690_000},
		{Name: "Baltimore", Country: "US", Lat: 39.2904, Lon: -76.6122, Population: 585_000},
		{Name: "Newark", Country: "US", Lat: 40.7357, Lon: -74.1724, Population: 310_000},
		{Name: "Atlantic City", Country: "US", Lat: 39.3643, Lon: -74.4229, Population: 38_000},
		{Name: "Trenton", Country: "US", Lat: 40.2171, Lon: -74.7429, Population: 90_000},
	}
}
