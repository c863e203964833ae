package orientation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func motionAt(f *filter, t time.Time, ev MotionEvent) {
	ev.Timestamp = t
	f.motion(ev)
}

func TestFilterGyroIntegration(t *testing.T) {
	var f filter
	t0 := time.Now()

	// first event has no dt, it only anchors the clock
	motionAt(&f, t0, MotionEvent{Gz: 10})
	assert.InDelta(t, 0, f.yaw, 1e-9)

	// 10 deg/s over 100ms -> 1 degree
	motionAt(&f, t0.Add(100*time.Millisecond), MotionEvent{Gz: 10})
	assert.InDelta(t, 1, f.yaw, 1e-9)

	// pitch and roll integrate Gx and Gy
	motionAt(&f, t0.Add(200*time.Millisecond), MotionEvent{Gx: 20, Gy: -20})
	assert.InDelta(t, 2, f.pitch, 1e-9)
	assert.InDelta(t, -2, f.roll, 1e-9)
}

func TestFilterDTClamped(t *testing.T) {
	var f filter
	t0 := time.Now()

	motionAt(&f, t0, MotionEvent{Gz: 10})
	// a 5 second stall integrates as maxMotionDT, not 5s
	motionAt(&f, t0.Add(5*time.Second), MotionEvent{Gz: 10})
	assert.InDelta(t, 10*maxMotionDT, f.yaw, 1e-9)

	// out-of-order timestamps integrate as zero
	motionAt(&f, t0.Add(time.Second), MotionEvent{Gz: 10})
	assert.InDelta(t, 10*maxMotionDT, f.yaw, 1e-9)
}

func TestFilterTiltConvergence(t *testing.T) {
	var f filter
	f.pitch = 40
	f.roll = -40

	// device flat: gravity straight down the z axis, tilt target is 0/0
	t0 := time.Now()
	for i := 0; i < 400; i++ {
		motionAt(&f, t0.Add(time.Duration(i)*20*time.Millisecond), MotionEvent{Az: 1})
	}
	assert.InDelta(t, 0, f.pitch, 0.05)
	assert.InDelta(t, 0, f.roll, 0.05)
}

func TestFilterTiltSkippedOnZeroAccel(t *testing.T) {
	var f filter
	f.pitch = 40

	t0 := time.Now()
	motionAt(&f, t0, MotionEvent{})
	motionAt(&f, t0.Add(20*time.Millisecond), MotionEvent{})
	assert.InDelta(t, 40, f.pitch, 1e-9, "all-zero accel must not drag tilt toward garbage")
}

func TestFilterHeadingSeedsYaw(t *testing.T) {
	var f filter
	f.heading(90)
	assert.InDelta(t, 90, f.yaw, 1e-9, "first heading before any gyro seeds yaw directly")

	// subsequent measurements do not snap
	f.heading(180)
	assert.InDelta(t, 90, f.yaw, 1e-9)
}

func TestFilterFirstHeadingAfterGyroSeedsYaw(t *testing.T) {
	var f filter
	t0 := time.Now()
	motionAt(&f, t0, MotionEvent{Gz: 10})
	motionAt(&f, t0.Add(100*time.Millisecond), MotionEvent{Gz: 10})

	// a motion-only start integrates from an arbitrary zero; the first
	// magnetometer fix must take over outright instead of crawling there
	// at the nudge gain
	f.heading(180)
	assert.InDelta(t, 180, f.yaw, 1e-9)

	f.heading(90)
	assert.InDelta(t, 180, f.yaw, 1e-9, "later measurements only steer the nudge")
}

func TestFilterHeadingNudgeShortestPath(t *testing.T) {
	var f filter
	t0 := time.Now()
	f.heading(0)
	motionAt(&f, t0, MotionEvent{})
	f.heading(350)

	// yaw 0, measurement 350: the nudge must go negative (through 359...),
	// not the long way through +350
	motionAt(&f, t0.Add(20*time.Millisecond), MotionEvent{})
	assert.InDelta(t, 360-10*headingGain, f.yaw, 1e-9)
}
