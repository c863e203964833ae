package overlay

const (
	// Appearance is deliberately faster than disappearance so that labels on
	// uneven frame latency still reach visibility.
	fadeInRate  = 4.0 // alpha per second toward 1
	fadeOutRate = 3.0 // alpha per second toward 0

	// Frame gaps beyond this (pauses, backgrounding) are absorbed rather
	// than fast-forwarding the fades.
	maxFadeDT = 0.1
)

// fadeTracker holds per-entity-key visibility alpha across frames. Alphas
// move monotonically toward their target (1 if the key is targeted this
// frame, 0 otherwise) at bounded rates and never overshoot.
type fadeTracker map[string]float64

// advance moves every tracked alpha one frame. Keys in targets are created
// lazily at 0. A key is deleted only when its alpha has reached exactly 0
// and it is not targeted this frame; a targeted key is retained even at 0 so
// it can re-fade-in without reallocation.
func (t fadeTracker) advance(targets map[string]bool, dt float64) {
	if dt < 0 {
		dt = 0
	} else if dt > maxFadeDT {
		dt = maxFadeDT
	}

	for key := range targets {
		if _, ok := t[key]; !ok {
			t[key] = 0
		}
	}

	for key, a := range t {
		if targets[key] {
			a += fadeInRate * dt
			if a > 1 {
				a = 1
			}
			t[key] = a
			continue
		}
		a -= fadeOutRate * dt
		if a <= 0 {
			delete(t, key)
			continue
		}
		t[key] = a
	}
}

func (t fadeTracker) alpha(key string) float64 {
	return t[key]
}
