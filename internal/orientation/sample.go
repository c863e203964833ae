// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

// Package orientation fuses heterogeneous, intermittently available sensor
// streams into a stable heading/pitch/roll estimate and pushes it to
// subscribers. Three capability-equivalent backends exist behind one source
// abstraction: a generic fused-quaternion sensor, raw device motion run
// through a complementary filter, and a pointer-driven virtual fallback.
package orientation

import "time"

// Kind names the backend a sample came from.
type Kind string

const (
	GenericSensor Kind = "generic-sensor"
	DeviceFusion  Kind = "device-fusion"
	Virtual       Kind = "virtual"
)

// Sample is one fused orientation estimate. Heading is magnetic-relative and
// always normalized to [0,360).
type Sample struct {
	HeadingDeg float64   `json:"heading_deg"`
	PitchDeg   float64   `json:"pitch_deg"`
	RollDeg    float64   `json:"roll_deg"`
	Source     Kind      `json:"source"`
	Timestamp  time.Time `json:"ts"`
}

// QuatSample is a fused orientation quaternion pushed by a generic sensor
// backend.
type QuatSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// MotionEvent carries raw gyro rates (deg/s) and gravity-including
// acceleration from a device-motion backend. The acceleration needs no
// particular unit; only the direction of gravity matters for tilt.
type MotionEvent struct {
	Gx float64 `json:"gx"`
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
	Ax float64 `json:"ax"`
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Timestamp time.Time `json:"ts"`
}

// HeadingMeasurement is a magnetic heading observation (compass or
// device-orientation heading) used to correct gyro yaw drift.
type HeadingMeasurement struct {
	HeadingDeg float64 `json:"heading_deg"`
}

// Backend is one running producer of orientation input. Start subscribes to
// the underlying platform stream; Stop unregisters it. Both are synchronous.
type Backend interface {
	Start() error
	Stop()
}

// Backends supplies the constructors the engine probes during source
// selection. A nil constructor or a constructor error means "unavailable"
// and triggers fallback, never a fatal error.
type Backends struct {
	// NewGenericSensor builds a backend pushing fused quaternions.
	NewGenericSensor func(emit func(QuatSample)) (Backend, error)

	// NewDeviceMotion builds a backend pushing raw motion events and
	// magnetic heading measurements.
	NewDeviceMotion func(motion func(MotionEvent), heading func(float64)) (Backend, error)
}
