package orientation

import (
	"math"

	"github.com/croppers/horizon-ar/internal/geo"
)

// Euler converts the quaternion to Z-Y-X Tait-Bryan angles in degrees.
// Yaw is normalized to [0,360); pitch is clamped into [-90,90] at the
// gimbal-lock singularity.
func (q QuatSample) Euler() (yawDeg, pitchDeg, rollDeg float64) {
	// roll (x axis)
	sinr := 2 * (q.W*q.X + q.Y*q.Z)
	cosr := 1 - 2*(q.X*q.X+q.Y*q.Y)
	rollDeg = math.Atan2(sinr, cosr) * 180 / math.Pi

	// pitch (y axis)
	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}
	pitchDeg = math.Asin(sinp) * 180 / math.Pi

	// yaw (z axis)
	siny := 2 * (q.W*q.Z + q.X*q.Y)
	cosy := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	yawDeg = geo.Wrap360(math.Atan2(siny, cosy) * 180 / math.Pi)

	return yawDeg, pitchDeg, rollDeg
}

// QuatFromEuler builds a quaternion from Z-Y-X Tait-Bryan angles in degrees.
// Used by the mock backend and by tests.
func QuatFromEuler(yawDeg, pitchDeg, rollDeg float64) QuatSample {
	cy := math.Cos(yawDeg * math.Pi / 360)
	sy := math.Sin(yawDeg * math.Pi / 360)
	cp := math.Cos(pitchDeg * math.Pi / 360)
	sp := math.Sin(pitchDeg * math.Pi / 360)
	cr := math.Cos(rollDeg * math.Pi / 360)
	sr := math.Sin(rollDeg * math.Pi / 360)

	return QuatSample{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}
