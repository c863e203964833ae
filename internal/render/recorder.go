// Package render provides the concrete draw surfaces behind the overlay's
// surface abstraction: a JSON instruction recorder for the browser canvas
// client and an image-backed surface for local rasterization (OLED).
package render

import (
	"fmt"
	"image/color"

	"github.com/croppers/horizon-ar/internal/overlay"
)

// Op is one draw instruction, serialized to the canvas client as-is.
type Op struct {
	Kind   string          `json:"op"` // fill_rrect, stroke_rrect, fill_path, stroke_path, text
	X      float64         `json:"x,omitempty"`
	Y      float64         `json:"y,omitempty"`
	W      float64         `json:"w,omitempty"`
	H      float64         `json:"h,omitempty"`
	Radius float64         `json:"radius,omitempty"`
	Width  float64         `json:"width,omitempty"`
	Points []overlay.Point `json:"points,omitempty"`
	Text   string          `json:"text,omitempty"`
	Size   float64         `json:"size,omitempty"`
	Color  string          `json:"color,omitempty"`
	Alpha  float64         `json:"alpha"`
}

// Frame is one complete overlay frame for the client.
type Frame struct {
	W   float64 `json:"w"`
	H   float64 `json:"h"`
	DPR float64 `json:"dpr"`
	Ops []Op    `json:"ops"`
}

// Recorder implements overlay.Surface by recording instructions instead of
// rasterizing. The client sizes its canvas by w*dpr x h*dpr and scales by
// dpr, so coordinates stay in logical pixels.
type Recorder struct {
	w, h, dpr float64
	alpha     float64
	ops       []Op
}

func NewRecorder(w, h, dpr float64) *Recorder {
	if dpr <= 0 {
		dpr = 1
	}
	return &Recorder{w: w, h: h, dpr: dpr, alpha: 1}
}

// Reset clears recorded ops and adopts a new viewport size, reusing the
// backing slice.
func (r *Recorder) Reset(w, h float64) {
	r.w, r.h = w, h
	r.alpha = 1
	r.ops = r.ops[:0]
}

// SetDPR adopts a new device pixel ratio; non-positive values are ignored.
func (r *Recorder) SetDPR(dpr float64) {
	if dpr > 0 {
		r.dpr = dpr
	}
}

// Frame returns the recorded instructions for transmission.
func (r *Recorder) Frame() Frame {
	return Frame{W: r.w, H: r.h, DPR: r.dpr, Ops: r.ops}
}

func (r *Recorder) Size() (w, h float64) { return r.w, r.h }

func (r *Recorder) SetGlobalAlpha(a float64) {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	r.alpha = a
}

func (r *Recorder) FillRoundedRect(rect overlay.Rect, radius float64, c color.RGBA) {
	r.ops = append(r.ops, Op{Kind: "fill_rrect", X: rect.X, Y: rect.Y, W: rect.W, H: rect.H,
		Radius: radius, Color: cssColor(c), Alpha: r.alpha})
}

func (r *Recorder) StrokeRoundedRect(rect overlay.Rect, radius, lineWidth float64, c color.RGBA) {
	r.ops = append(r.ops, Op{Kind: "stroke_rrect", X: rect.X, Y: rect.Y, W: rect.W, H: rect.H,
		Radius: radius, Width: lineWidth, Color: cssColor(c), Alpha: r.alpha})
}

func (r *Recorder) FillPath(pts []overlay.Point, c color.RGBA) {
	r.ops = append(r.ops, Op{Kind: "fill_path", Points: pts, Color: cssColor(c), Alpha: r.alpha})
}

func (r *Recorder) StrokePath(pts []overlay.Point, lineWidth float64, c color.RGBA) {
	r.ops = append(r.ops, Op{Kind: "stroke_path", Points: pts, Width: lineWidth, Color: cssColor(c), Alpha: r.alpha})
}

func (r *Recorder) FillText(text string, x, y, sizePx float64, c color.RGBA) {
	r.ops = append(r.ops, Op{Kind: "text", X: x, Y: y, Text: text, Size: sizePx,
		Color: cssColor(c), Alpha: r.alpha})
}

func cssColor(c color.RGBA) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/255)
}
