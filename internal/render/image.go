package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/croppers/horizon-ar/internal/overlay"
)

// ImageSurface implements overlay.Surface by rasterizing into a draw.Image.
// It targets small monochrome panels (SSD1306 image1bit buffers) as well as
// RGBA images; colors pass through each image's own color model, so on a
// 1-bit target the blend quantizes to on/off.
//
// Text is drawn with the fixed-metric basicfont face; the size parameter
// affects measurement only, not glyph rasterization.
type ImageSurface struct {
	img   draw.Image
	alpha float64
}

func NewImageSurface(img draw.Image) *ImageSurface {
	return &ImageSurface{img: img, alpha: 1}
}

func (s *ImageSurface) Size() (w, h float64) {
	b := s.img.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

func (s *ImageSurface) SetGlobalAlpha(a float64) {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	s.alpha = a
}

func (s *ImageSurface) FillRoundedRect(r overlay.Rect, radius float64, c color.RGBA) {
	x0, y0 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x1, y1 := int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if insideRounded(float64(x)+0.5, float64(y)+0.5, r, radius) {
				s.blend(x, y, c)
			}
		}
	}
}

func (s *ImageSurface) StrokeRoundedRect(r overlay.Rect, radius, lineWidth float64, c color.RGBA) {
	if lineWidth < 1 {
		lineWidth = 1
	}
	inner := overlay.Rect{X: r.X + lineWidth, Y: r.Y + lineWidth, W: r.W - 2*lineWidth, H: r.H - 2*lineWidth}
	x0, y0 := int(math.Floor(r.X)), int(math.Floor(r.Y))
	x1, y1 := int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			if insideRounded(fx, fy, r, radius) && !insideRounded(fx, fy, inner, math.Max(0, radius-lineWidth)) {
				s.blend(x, y, c)
			}
		}
	}
}

func (s *ImageSurface) FillPath(pts []overlay.Point, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	// Even-odd scanline fill; paths here are small convex glyphs.
	for y := int(math.Floor(minY)); y <= int(math.Ceil(maxY)); y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			if (a.Y <= fy && b.Y > fy) || (b.Y <= fy && a.Y > fy) {
				t := (fy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Ceil(xs[i] - 0.5)); float64(x)+0.5 <= xs[i+1]; x++ {
				s.blend(x, y, c)
			}
		}
	}
}

func (s *ImageSurface) StrokePath(pts []overlay.Point, lineWidth float64, c color.RGBA) {
	// 1px brush; wider strokes quantize down on these panels.
	for i := 0; i+1 < len(pts); i++ {
		s.line(pts[i], pts[i+1], c)
	}
}

func (s *ImageSurface) FillText(text string, x, y, sizePx float64, c color.RGBA) {
	if s.alpha*float64(c.A)/255 < 0.5 {
		// Sub-threshold text is unreadable on a 1-bit panel either way.
		return
	}
	d := &font.Drawer{
		Dst:  s.img,
		Src:  &image.Uniform{C: c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(x), int(y)),
	}
	d.DrawString(text)
}

func (s *ImageSurface) line(a, b overlay.Point, c color.RGBA) {
	steps := int(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.blend(int(a.X+t*(b.X-a.X)), int(a.Y+t*(b.Y-a.Y)), c)
	}
}

// blend does src-over of c (scaled by the global alpha) onto one pixel.
func (s *ImageSurface) blend(x, y int, c color.RGBA) {
	if !image.Pt(x, y).In(s.img.Bounds()) {
		return
	}
	a := float64(c.A) / 255 * s.alpha
	if a <= 0 {
		return
	}
	br, bg, bb, _ := s.img.At(x, y).RGBA()
	out := color.RGBA{
		R: uint8(float64(c.R)*a + float64(br>>8)*(1-a)),
		G: uint8(float64(c.G)*a + float64(bg>>8)*(1-a)),
		B: uint8(float64(c.B)*a + float64(bb>>8)*(1-a)),
		A: 255,
	}
	s.img.Set(x, y, out)
}

func insideRounded(x, y float64, r overlay.Rect, radius float64) bool {
	if r.W <= 0 || r.H <= 0 {
		return false
	}
	if x < r.X || x > r.X+r.W || y < r.Y || y > r.Y+r.H {
		return false
	}
	radius = math.Min(radius, math.Min(r.W, r.H)/2)
	cx := math.Max(r.X+radius, math.Min(x, r.X+r.W-radius))
	cy := math.Max(r.Y+radius, math.Min(y, r.Y+r.H-radius))
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}
