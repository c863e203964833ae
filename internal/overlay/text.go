package overlay

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/croppers/horizon-ar/internal/entity"
)

// Text metrics use the fixed-metric basicfont face scaled to the requested
// size. A fixed line height keeps label boxes identical across surfaces.
const (
	labelFontSize   = 14.0
	labelLineHeight = 18.0
	edgeFontSize    = 12.0
	edgeLineHeight  = 14.0
)

const kmToMiles = 0.621371

// MeasureText returns the advance width of text at the given pixel size.
// Deterministic on every platform; both surfaces use the same metrics.
func MeasureText(text string, sizePx float64) float64 {
	adv := font.MeasureString(basicfont.Face7x13, text)
	return float64(adv) / 64 * sizePx / 13
}

// fitText shortens text with a "..." suffix until it renders within maxW.
// Face7x13 carries no ellipsis glyph, so three dots it is.
func fitText(text string, sizePx, maxW float64) string {
	if MeasureText(text, sizePx) <= maxW {
		return text
	}
	const suffix = "..."
	r := []rune(text)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if MeasureText(string(r)+suffix, sizePx) <= maxW {
			return string(r) + suffix
		}
	}
	return ""
}

func labelText(e entity.Entity, distanceKm float64, units string) string {
	return fmt.Sprintf("%s %s %s", e.Name, formatPopulation(e.Population), formatDistance(distanceKm, units))
}

func formatPopulation(p float64) string {
	switch {
	case p >= 1e6:
		return fmt.Sprintf("~%.1fM", p/1e6)
	case p >= 1e3:
		return fmt.Sprintf("~%.0fk", p/1e3)
	default:
		return fmt.Sprintf("~%.0f", p)
	}
}

func formatDistance(km float64, units string) string {
	if units == "mi" {
		return fmt.Sprintf("%.0f mi", km*kmToMiles)
	}
	return fmt.Sprintf("%.0f km", km)
}
