package orientation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEulerIdentity(t *testing.T) {
	yaw, pitch, roll := QuatSample{W: 1}.Euler()
	assert.InDelta(t, 0, yaw, 1e-9)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 0, roll, 1e-9)
}

func TestEulerRoundTrip(t *testing.T) {
	cases := []struct{ yaw, pitch, roll float64 }{
		{90, 0, 0},
		{270, 0, 0},
		{0, 45, 0},
		{0, -45, 0},
		{0, 0, 30},
		{120, 15, -20},
		{359, -5, 5},
	}
	for _, c := range cases {
		yaw, pitch, roll := QuatFromEuler(c.yaw, c.pitch, c.roll).Euler()
		assert.InDelta(t, c.yaw, yaw, 1e-6, "yaw for %+v", c)
		assert.InDelta(t, c.pitch, pitch, 1e-6, "pitch for %+v", c)
		assert.InDelta(t, c.roll, roll, 1e-6, "roll for %+v", c)
	}
}

func TestEulerYawNormalized(t *testing.T) {
	// -90 yaw comes back as 270
	yaw, _, _ := QuatFromEuler(-90, 0, 0).Euler()
	assert.InDelta(t, 270, yaw, 1e-6)
}

func TestEulerGimbalClamp(t *testing.T) {
	// numerically off-range quaternions must not produce NaN pitch
	q := QuatSample{W: 0.7071068, Y: 0.7071068}
	_, pitch, _ := q.Euler()
	assert.False(t, math.IsNaN(pitch), "pitch is NaN")
	assert.InDelta(t, 90, pitch, 1e-3)
}
