// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

// Package projection maps view-relative angles to pixel coordinates. The
// mapping is a linear azimuth/pitch-to-pixel approximation, not a pinhole
// camera model; that is accurate enough for label overlay and keeps every
// function pure.
package projection

// Side identifies which screen edge an off-screen bearing falls on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// AzimuthToScreenX maps an azimuth delta in [-hfov/2, hfov/2] linearly onto
// [0,width]. Deltas outside that range clamp to the nearest edge; callers use
// the clamped value only as a fallback coordinate.
func AzimuthToScreenX(deltaAzDeg, hfovDeg, width float64) float64 {
	if hfovDeg <= 0 {
		return width / 2
	}
	x := (deltaAzDeg/hfovDeg + 0.5) * width
	return clamp(x, 0, width)
}

// PitchToScreenY maps a camera pitch to the horizon's vertical pixel
// position. Positive pitch (camera tilting up) moves the horizon down the
// screen. The result clamps to [0,height].
func PitchToScreenY(pitchDeg, vfovDeg, height float64) float64 {
	if vfovDeg <= 0 {
		return height / 2
	}
	y := (pitchDeg/vfovDeg + 0.5) * height
	return clamp(y, 0, height)
}

// EstimateVfovDeg approximates the vertical field of view by scaling the
// horizontal one with the viewport aspect ratio.
func EstimateVfovDeg(hfovDeg, width, height float64) float64 {
	if width <= 0 {
		return hfovDeg
	}
	return hfovDeg * height / width
}

// IsWithinFov reports whether an azimuth delta falls inside the horizontal
// field of view.
func IsWithinFov(deltaAzDeg, hfovDeg float64) bool {
	half := hfovDeg / 2
	return deltaAzDeg >= -half && deltaAzDeg <= half
}

// EdgeSide returns the screen edge an out-of-view bearing points toward.
func EdgeSide(deltaAzDeg float64) Side {
	if deltaAzDeg < 0 {
		return SideLeft
	}
	return SideRight
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
