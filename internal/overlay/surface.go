package overlay

import "image/color"

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a pixel-space rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) overlaps(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Surface is the abstract immediate-mode drawing surface the overlay issues
// instructions against. The overlay does not own the surface lifecycle; a
// failure inside a surface is frame-local and must not reach the fusion
// stream.
type Surface interface {
	// Size returns the viewport size in logical pixels.
	Size() (w, h float64)

	// SetGlobalAlpha sets the opacity multiplier for subsequent calls.
	SetGlobalAlpha(a float64)

	FillRoundedRect(r Rect, radius float64, c color.RGBA)
	StrokeRoundedRect(r Rect, radius, lineWidth float64, c color.RGBA)
	FillPath(pts []Point, c color.RGBA)
	StrokePath(pts []Point, lineWidth float64, c color.RGBA)
	FillText(text string, x, y, sizePx float64, c color.RGBA)
}

// Settings is the per-frame immutable snapshot of overlay configuration.
// The owning layer may mutate its copy between frames; the engine never
// writes it.
type Settings struct {
	MaxDistanceKm           float64 `json:"max_distance_km"`
	Units                   string  `json:"units"` // "km" or "mi"
	HFOVDeg                 float64 `json:"hfov_deg"`
	HeadingOffsetDeg        float64 `json:"heading_offset_deg"`
	Smoothing               float64 `json:"smoothing"`
	ShowOffscreenIndicators bool    `json:"show_offscreen_indicators"`
}
