// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

// Package overlay converts geographic bearings into decluttered screen-space
// label placements, tracks per-entity fade alpha across frames, and emits
// draw instructions against an abstract surface.
package overlay

import (
	"image/color"
	"math"
	"sort"

	"github.com/croppers/horizon-ar/internal/entity"
	"github.com/croppers/horizon-ar/internal/geo"
	"github.com/croppers/horizon-ar/internal/orientation"
	"github.com/croppers/horizon-ar/internal/projection"
)

const (
	labelPadX = 8.0
	labelPadY = 4.0
	// Vertical gap between the horizon line and the label anchor row.
	labelGap   = 10.0
	edgeMargin = 10.0
	chevronW   = 10.0
	chevronGap = 4.0

	minSlotStep = 12.0

	// Entries at or below this alpha are skipped entirely; no draw call.
	alphaDrawThreshold = 0.01

	cornerRadius = 6.0
)

var (
	cardFill    = color.RGBA{0, 0, 0, 170}
	cardBorder  = color.RGBA{255, 255, 255, 70}
	labelColor  = color.RGBA{255, 255, 255, 255}
	chevronFill = color.RGBA{255, 255, 255, 220}
)

// Input is everything one layout pass needs: the latest orientation sample
// (zero value is fine before the first emission), the user position, an
// immutable settings snapshot, the full entity list, the viewport, and the
// seconds elapsed since the previous frame.
type Input struct {
	Sample   orientation.Sample
	User     geo.Point
	Entities []entity.Entity
	Settings Settings
	Width    float64
	Height   float64
	DT       float64
}

// Placement is one on-screen label this frame.
type Placement struct {
	Key     string  `json:"key"`
	Text    string  `json:"text"`
	Rect    Rect    `json:"rect"`
	Alpha   float64 `json:"alpha"`
	DeltaAz float64 `json:"delta_az"`
}

// EdgePlacement is one off-screen edge indicator this frame.
type EdgePlacement struct {
	Key   string          `json:"key"`
	Text  string          `json:"text"`
	Rect  Rect            `json:"rect"`
	Alpha float64         `json:"alpha"`
	Side  projection.Side `json:"side"`
}

// Result is the outcome of one layout pass. Rects are transient and rebuilt
// every frame.
type Result struct {
	Labels   []Placement     `json:"labels"`
	Edges    []EdgePlacement `json:"edges"`
	HorizonY float64         `json:"horizon_y"`
}

// State is the only value that persists across frames: the fade table.
// It is owned by the caller and must be driven by a single call site per
// frame; parallel instances are independent.
type State struct {
	fades fadeTracker
}

func NewState() *State {
	return &State{fades: make(fadeTracker)}
}

type candidate struct {
	entity     entity.Entity
	distanceKm float64
	bearingDeg float64
}

// Layout runs one frame: builds candidates, resolves label collisions with a
// population-biased greedy search, routes out-of-view candidates to the edge
// lanes, and advances the fade table. It is pure bounded computation; every
// search terminates within a fixed step budget.
func (s *State) Layout(in Input) Result {
	w, h := in.Width, in.Height
	set := in.Settings

	vfov := projection.EstimateVfovDeg(set.HFOVDeg, w, h)
	horizonY := projection.PitchToScreenY(in.Sample.PitchDeg, vfov, h)

	cands := make([]candidate, 0, len(in.Entities))
	for _, e := range in.Entities {
		d := geo.DistanceKm(in.User, geo.Point{Lat: e.Lat, Lon: e.Lon})
		if d > set.MaxDistanceKm {
			continue
		}
		cands = append(cands, candidate{
			entity:     e,
			distanceKm: d,
			bearingDeg: geo.BearingDeg(in.User, geo.Point{Lat: e.Lat, Lon: e.Lon}),
		})
	}

	// Higher population claims screen space first; stable sort keeps input
	// order for ties.
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].entity.Population > cands[j].entity.Population
	})

	res := Result{HorizonY: horizonY}
	targets := make(map[string]bool, len(cands))

	// Three independent pools: on-screen labels, left lane, right lane.
	var placed, leftLane, rightLane []Rect

	for _, c := range cands {
		key := c.entity.Key()
		// Fade targeting is keyed on radius/FOV membership, not successful
		// placement: a collision-dropped label keeps accumulating alpha and
		// can appear next frame without restarting its fade.
		targets[key] = true

		deltaAz := geo.Wrap180(c.bearingDeg - in.Sample.HeadingDeg)

		if projection.IsWithinFov(deltaAz, set.HFOVDeg) {
			// A viewport narrower than the text truncates the label rather
			// than letting the rect escape the screen.
			text := fitText(labelText(c.entity, c.distanceKm, set.Units), labelFontSize, w-2*labelPadX)
			rw := math.Min(w, MeasureText(text, labelFontSize)+2*labelPadX)
			rh := math.Min(h, labelLineHeight+2*labelPadY)

			cx := projection.AzimuthToScreenX(deltaAz, set.HFOVDeg, w)
			r := Rect{
				X: clampf(cx-rw/2, 0, math.Max(0, w-rw)),
				Y: clampf(horizonY-rh-labelGap, 0, math.Max(0, h-rh)),
				W: rw,
				H: rh,
			}
			if slot, ok := findSlot(placed, r, h); ok {
				placed = append(placed, slot)
				res.Labels = append(res.Labels, Placement{
					Key:     key,
					Text:    text,
					Rect:    slot,
					DeltaAz: deltaAz,
				})
			}
			// No free slot within the budget: dropped for this frame only.
			continue
		}

		if !set.ShowOffscreenIndicators {
			continue
		}

		side := projection.EdgeSide(deltaAz)
		text := fitText(c.entity.Name, edgeFontSize, w-edgeMargin-chevronW-chevronGap-2*labelPadY)
		rw := math.Min(w, chevronW+chevronGap+MeasureText(text, edgeFontSize)+2*labelPadY)
		rh := math.Min(h, edgeLineHeight+2*labelPadY)

		x := edgeMargin
		lane := &leftLane
		if side == projection.SideRight {
			x = math.Max(0, w-edgeMargin-rw)
			lane = &rightLane
		}
		r := Rect{
			X: clampf(x, 0, math.Max(0, w-rw)),
			Y: clampf(horizonY-rh/2, 0, math.Max(0, h-rh)),
			W: rw,
			H: rh,
		}
		if slot, ok := findSlot(*lane, r, h); ok {
			*lane = append(*lane, slot)
			res.Edges = append(res.Edges, EdgePlacement{
				Key:  key,
				Text: text,
				Rect: slot,
				Side: side,
			})
		}
	}

	s.fades.advance(targets, in.DT)

	for i := range res.Labels {
		res.Labels[i].Alpha = s.fades.alpha(res.Labels[i].Key)
	}
	for i := range res.Edges {
		res.Edges[i].Alpha = s.fades.alpha(res.Edges[i].Key)
	}
	return res
}

// findSlot searches for a vertical slot where r does not overlap anything in
// pool: the anchored y first, then alternating offsets above and below in
// steps of max(12, h+6), each clamped into the viewport, up to a fixed step
// budget.
func findSlot(pool []Rect, r Rect, height float64) (Rect, bool) {
	step := math.Max(minSlotStep, r.H+6)
	maxSteps := int(math.Ceil(height/step)) + 2

	for i := 0; i < maxSteps; i++ {
		var off float64
		if i%2 == 1 {
			off = -step * float64((i+1)/2)
		} else {
			off = step * float64(i/2)
		}
		cand := r
		cand.Y = clampf(r.Y+off, 0, math.Max(0, height-r.H))
		if !overlapsAny(pool, cand) {
			return cand, true
		}
	}
	return Rect{}, false
}

func overlapsAny(pool []Rect, r Rect) bool {
	for _, o := range pool {
		if r.overlaps(o) {
			return true
		}
	}
	return false
}

// Draw issues draw instructions for one layout result. Entries at or below
// the alpha threshold are skipped; fade alpha multiplies the surface's
// global opacity for everything else.
func Draw(surf Surface, res Result) {
	for _, p := range res.Labels {
		if p.Alpha <= alphaDrawThreshold {
			continue
		}
		surf.SetGlobalAlpha(p.Alpha)
		surf.FillRoundedRect(p.Rect, cornerRadius, cardFill)
		surf.StrokeRoundedRect(p.Rect, cornerRadius, 1, cardBorder)
		surf.FillText(p.Text, p.Rect.X+labelPadX, p.Rect.Y+labelPadY+labelFontSize, labelFontSize, labelColor)
	}

	for _, p := range res.Edges {
		if p.Alpha <= alphaDrawThreshold {
			continue
		}
		surf.SetGlobalAlpha(p.Alpha)
		surf.FillPath(chevronPoints(p), chevronFill)
		tx := p.Rect.X + chevronW + chevronGap
		if p.Side == projection.SideRight {
			tx = p.Rect.X + labelPadY
		}
		surf.FillText(p.Text, tx, p.Rect.Y+labelPadY+edgeFontSize, edgeFontSize, labelColor)
	}

	surf.SetGlobalAlpha(1)
}

// chevronPoints builds the arrow triangle pointing toward the off-screen
// side.
func chevronPoints(p EdgePlacement) []Point {
	cy := p.Rect.Y + p.Rect.H/2
	if p.Side == projection.SideLeft {
		x := p.Rect.X
		return []Point{
			{X: x + chevronW, Y: cy - chevronW/2},
			{X: x, Y: cy},
			{X: x + chevronW, Y: cy + chevronW/2},
		}
	}
	x := p.Rect.X + p.Rect.W
	return []Point{
		{X: x - chevronW, Y: cy - chevronW/2},
		{X: x, Y: cy},
		{X: x - chevronW, Y: cy + chevronW/2},
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
