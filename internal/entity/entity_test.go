package entity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.json")
	data := `[
		{"name": "New York", "country": "US", "lat": 40.7128, "lon": -74.0060, "population": 8400000},
		{"name": "Trenton", "country": "US", "lat": 40.2171, "lon": -74.7429, "population": 90000}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	entities, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "New York", entities[0].Name)
	assert.InDelta(t, 40.7128, entities[0].Lat, 1e-9)
	assert.InDelta(t, 8_400_000, entities[0].Population, 1e-9)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	e := Entity{Name: "Springfield", Country: "US"}
	assert.Equal(t, "Springfield|US", e.Key())
}

func TestBuiltinNonEmpty(t *testing.T) {
	entities := Builtin()
	require.NotEmpty(t, entities)
	for _, e := range entities {
		assert.NotEmpty(t, e.Name)
		assert.Positive(t, e.Population)
	}
}
