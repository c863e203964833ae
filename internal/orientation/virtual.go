package orientation

import "github.com/croppers/horizon-ar/internal/geo"

const (
	// Degrees of heading per pixel of horizontal drag.
	dragHeadingSensitivity = 0.3
	// Degrees of pitch per pixel of vertical drag (inverted: dragging down
	// tilts the view up).
	dragPitchSensitivity = 0.3

	virtualPitchLimit = 89.0
)

// virtualBackend holds no platform resources; orientation is driven entirely
// by Drag calls.
type virtualBackend struct{}

func (virtualBackend) Start() error { return nil }
func (virtualBackend) Stop()        {}

// Drag feeds a pointer drag delta (pixels) into the virtual source.
// Ignored unless the virtual source is active.
func (e *Engine) Drag(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.kind != Virtual {
		return
	}
	e.rawYaw = geo.Wrap360(e.rawYaw + dx*dragHeadingSensitivity)
	e.rawPitch -= dy * dragPitchSensitivity
	if e.rawPitch > virtualPitchLimit {
		e.rawPitch = virtualPitchLimit
	} else if e.rawPitch < -virtualPitchLimit {
		e.rawPitch = -virtualPitchLimit
	}
	e.emitLocked()
}
