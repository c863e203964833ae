package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	shoreNJ = Point{Lat: 39.9960, Lon: -74.0621}
	newYork = Point{Lat: 40.7128, Lon: -74.0060}
)

func TestDistanceKm(t *testing.T) {
	d := DistanceKm(shoreNJ, newYork)
	assert.InDelta(t, 80, d, 1.5, "NJ shore to Manhattan is about 80 km")

	assert.Zero(t, DistanceKm(newYork, newYork))

	// symmetric
	assert.InDelta(t, d, DistanceKm(newYork, shoreNJ), 1e-9)
}

func TestBearingDeg(t *testing.T) {
	b := BearingDeg(shoreNJ, newYork)
	assert.InDelta(t, 3.3, b, 0.3, "Manhattan lies slightly east of due north")

	// due east along the equator
	assert.InDelta(t, 90, BearingDeg(Point{0, 0}, Point{0, 1}), 1e-6)
	// due west
	assert.InDelta(t, 270, BearingDeg(Point{0, 0}, Point{0, -1}), 1e-6)
	// due south
	assert.InDelta(t, 180, BearingDeg(Point{1, 0}, Point{0, 0}), 1e-6)
}

func TestWrap360(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{360, 0},
		{361, 1},
		{-1, 359},
		{-361, 359},
		{720, 0},
		{359.5, 359.5},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Wrap360(c.in), 1e-9, "Wrap360(%v)", c.in)
	}
}

func TestWrap180(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, 180},
		{181, -179},
		{-180, 180},
		{-181, 179},
		{359, -1},
		{-359, 1},
		{356, -4},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Wrap180(c.in), 1e-9, "Wrap180(%v)", c.in)
	}
}
