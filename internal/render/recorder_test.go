package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croppers/horizon-ar/internal/overlay"
)

func TestRecorderRecordsOps(t *testing.T) {
	r := NewRecorder(800, 600, 2)

	r.SetGlobalAlpha(0.5)
	r.FillRoundedRect(overlay.Rect{X: 10, Y: 20, W: 100, H: 26}, 6, color.RGBA{0, 0, 0, 170})
	r.FillText("hello", 18, 38, 14, color.RGBA{255, 255, 255, 255})

	f := r.Frame()
	assert.InDelta(t, 800, f.W, 1e-9)
	assert.InDelta(t, 600, f.H, 1e-9)
	assert.InDelta(t, 2, f.DPR, 1e-9)
	require.Len(t, f.Ops, 2)

	rect := f.Ops[0]
	assert.Equal(t, "fill_rrect", rect.Kind)
	assert.InDelta(t, 10, rect.X, 1e-9)
	assert.InDelta(t, 0.5, rect.Alpha, 1e-9)
	assert.Equal(t, "rgba(0,0,0,0.667)", rect.Color)

	text := f.Ops[1]
	assert.Equal(t, "text", text.Kind)
	assert.Equal(t, "hello", text.Text)
	assert.InDelta(t, 14, text.Size, 1e-9)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(800, 600, 1)
	r.FillPath([]overlay.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}}, color.RGBA{255, 255, 255, 255})
	require.Len(t, r.Frame().Ops, 1)

	r.Reset(1024, 768)
	f := r.Frame()
	assert.Empty(t, f.Ops)
	assert.InDelta(t, 1024, f.W, 1e-9)
	assert.InDelta(t, 768, f.H, 1e-9)
}

func TestRecorderDefaultsDPR(t *testing.T) {
	r := NewRecorder(100, 100, 0)
	assert.InDelta(t, 1, r.Frame().DPR, 1e-9)
}

func TestDrawSkipsInvisiblePlacements(t *testing.T) {
	r := NewRecorder(800, 600, 1)

	res := overlay.Result{
		Labels: []overlay.Placement{
			{Key: "visible", Text: "A", Rect: overlay.Rect{X: 10, Y: 10, W: 80, H: 26}, Alpha: 0.5},
			{Key: "hidden", Text: "B", Rect: overlay.Rect{X: 10, Y: 50, W: 80, H: 26}, Alpha: 0.005},
		},
	}
	overlay.Draw(r, res)

	f := r.Frame()
	// card fill + border + text for the visible label, nothing for the
	// sub-threshold one, plus the trailing alpha reset leaves no op
	require.Len(t, f.Ops, 3)
	for _, op := range f.Ops[:3] {
		assert.InDelta(t, 0.5, op.Alpha, 1e-9)
	}
}

func TestImageSurfaceRasterizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	s := NewImageSurface(img)

	w, h := s.Size()
	assert.InDelta(t, 64, w, 1e-9)
	assert.InDelta(t, 32, h, 1e-9)

	s.FillRoundedRect(overlay.Rect{X: 4, Y: 4, W: 20, H: 10}, 2, color.RGBA{255, 255, 255, 255})

	// interior pixels are set, far corners are not
	rPix, _, _, _ := img.At(10, 8).RGBA()
	assert.NotZero(t, rPix)
	rPix, _, _, _ = img.At(60, 30).RGBA()
	assert.Zero(t, rPix)
}

func TestImageSurfaceAlphaBlend(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	s := NewImageSurface(img)

	s.SetGlobalAlpha(0.5)
	s.FillRoundedRect(overlay.Rect{X: 0, Y: 0, W: 8, H: 8}, 0, color.RGBA{255, 255, 255, 255})

	rPix, _, _, _ := img.At(4, 4).RGBA()
	// half-opacity white over black lands mid-range
	assert.InDelta(t, 127, rPix>>8, 3)
}
