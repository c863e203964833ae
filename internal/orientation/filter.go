package orientation

import (
	"math"
	"time"

	"github.com/croppers/horizon-ar/internal/geo"
)

const (
	// accelGain is the accelerometer trust in the tilt correction. Small on
	// purpose: gravity-derived tilt is noisy at high frequency but unbiased,
	// so it acts as a slow low-pass correction against gyro drift.
	accelGain = 0.02

	// headingGain nudges integrated yaw toward the latest magnetic heading
	// measurement. A slow correction, not a snap, to keep heading jitter out
	// of the overlay.
	headingGain = 0.01

	// maxMotionDT caps the integration step across event gaps (tab
	// backgrounding, stalled sensors).
	maxMotionDT = 0.2
)

// filter is the complementary filter state for the device-fusion path.
// Gyro rates are integrated at full trust and corrected slowly by gravity
// tilt and magnetic heading.
type filter struct {
	yaw, pitch, roll float64

	headingMeas *float64
	lastGyro    time.Time
}

// motion integrates one raw motion event.
func (f *filter) motion(ev MotionEvent) {
	var dt float64
	if !f.lastGyro.IsZero() {
		dt = ev.Timestamp.Sub(f.lastGyro).Seconds()
	}
	f.lastGyro = ev.Timestamp
	if dt < 0 {
		dt = 0
	} else if dt > maxMotionDT {
		dt = maxMotionDT
	}

	f.yaw = geo.Wrap360(f.yaw + ev.Gz*dt)
	f.pitch += ev.Gx * dt
	f.roll += ev.Gy * dt

	// Tilt from the gravity-including acceleration vector:
	//   roll  = atan2(ay, az)
	//   pitch = atan2(-ax, sqrt(ay^2 + az^2))
	if ev.Ax != 0 || ev.Ay != 0 || ev.Az != 0 {
		rollAcc := math.Atan2(ev.Ay, ev.Az) * 180 / math.Pi
		pitchAcc := math.Atan2(-ev.Ax, math.Sqrt(ev.Ay*ev.Ay+ev.Az*ev.Az)) * 180 / math.Pi
		f.pitch += (pitchAcc - f.pitch) * accelGain
		f.roll += (rollAcc - f.roll) * accelGain
	}

	if f.headingMeas != nil {
		f.yaw = geo.Wrap360(f.yaw + geo.Wrap180(*f.headingMeas-f.yaw)*headingGain)
	}
}

// heading records a magnetic heading measurement. The first measurement
// seeds yaw directly -- even when gyro events arrived first, integrated yaw
// started from an arbitrary zero and carries no absolute reference yet.
// Later measurements only steer the slow correction inside motion.
func (f *filter) heading(deg float64) {
	deg = geo.Wrap360(deg)
	if f.headingMeas == nil {
		f.yaw = deg
	}
	f.headingMeas = &deg
}
