// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

package orientation

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/croppers/horizon-ar/internal/geo"
)

const (
	defaultTickInterval  = 33 * time.Millisecond
	defaultFallbackGrace = 2000 * time.Millisecond
)

// Options configures a fusion engine at start time. Zero values pick the
// defaults; smoothing is clamped into [0,0.3].
type Options struct {
	Smoothing        float64
	HeadingOffsetDeg float64

	// TickInterval is the fixed-rate redraw tick that re-emits the last
	// known orientation even when the sensor event rate is lower than the
	// display refresh rate.
	TickInterval time.Duration

	// FallbackGrace is how long the device-fusion source may stay silent
	// before the engine gives up and switches to the virtual source.
	FallbackGrace time.Duration

	Backends Backends
}

// Engine owns source selection, the complementary filter and the output
// smoothing stage. All state is guarded by one mutex; sensor callbacks, the
// redraw tick and API calls serialize through it, so they interleave but
// never run concurrently -- the Go shape of a single event-loop timeline.
//
// Subscribers are invoked synchronously on the emitting goroutine and must
// not call back into the engine from inside the listener.
type Engine struct {
	mu sync.Mutex

	kind    Kind
	backend Backend
	filt    filter

	// Latest unsmoothed orientation from whichever source is active.
	rawYaw, rawPitch, rawRoll float64

	smoothing     float64
	headingOffset float64

	out    Sample
	primed bool
	lastTS time.Time

	subs   map[int]func(Sample)
	nextID int

	ticker     *time.Ticker
	tickDone   chan struct{}
	graceTimer *time.Timer
	sawInput   bool
	stopped    bool
}

// Start probes the available backends and begins emitting samples. It never
// fails: if no sensor backend can be constructed the engine runs on the
// virtual source.
func Start(opts Options) *Engine {
	e := &Engine{
		smoothing:     clampSmoothing(opts.Smoothing),
		headingOffset: opts.HeadingOffsetDeg,
		subs:          make(map[int]func(Sample)),
	}

	grace := opts.FallbackGrace
	if grace <= 0 {
		grace = defaultFallbackGrace
	}
	e.selectSource(opts.Backends, grace)

	tick := opts.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}
	e.ticker = time.NewTicker(tick)
	e.tickDone = make(chan struct{})
	go e.tickLoop()

	return e
}

// selectSource walks the probe order: generic sensor, device fusion,
// virtual. Construction and start failures are logged and treated as
// unavailability. The active kind and backend are published under the
// mutex before Start is called: an eager backend may begin delivering
// callbacks from its own goroutine immediately, and those read both
// fields under the same lock.
func (e *Engine) selectSource(b Backends, grace time.Duration) {
	if b.NewGenericSensor != nil {
		src, err := b.NewGenericSensor(e.onQuat)
		if err == nil {
			e.adopt(GenericSensor, src)
			err = src.Start()
			if err == nil {
				return
			}
			src.Stop()
		}
		log.Printf("orientation: generic sensor unavailable: %v", err)
	}

	if b.NewDeviceMotion != nil {
		src, err := b.NewDeviceMotion(e.onMotion, e.onHeading)
		if err == nil {
			e.adopt(DeviceFusion, src)
			err = src.Start()
			if err == nil {
				e.mu.Lock()
				e.graceTimer = time.AfterFunc(grace, e.graceExpired)
				e.mu.Unlock()
				return
			}
			src.Stop()
		}
		log.Printf("orientation: device motion unavailable: %v", err)
	}

	log.Printf("orientation: no sensor source available, using virtual (pointer drag)")
	e.adopt(Virtual, virtualBackend{})
}

func (e *Engine) adopt(k Kind, src Backend) {
	e.mu.Lock()
	e.kind = k
	e.backend = src
	e.mu.Unlock()
}

// graceExpired fires once after the fallback grace period. If the
// device-fusion source never delivered a single gyro sample or heading
// measurement, it is abandoned for the virtual source.
func (e *Engine) graceExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || e.sawInput || e.kind != DeviceFusion {
		return
	}
	log.Printf("orientation: no motion or heading events within grace period, falling back to virtual")
	e.backend.Stop()
	e.kind = Virtual
	e.backend = virtualBackend{}
}

func (e *Engine) onQuat(q QuatSample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.kind != GenericSensor {
		return
	}
	// Generic-sensor path bypasses the filter: the platform already fused
	// the quaternion, trust it fully.
	e.rawYaw, e.rawPitch, e.rawRoll = q.Euler()
	e.emitLocked()
}

func (e *Engine) onMotion(ev MotionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.kind != DeviceFusion {
		return
	}
	e.sawInput = true
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.filt.motion(ev)
	e.rawYaw, e.rawPitch, e.rawRoll = e.filt.yaw, e.filt.pitch, e.filt.roll
	e.emitLocked()
}

func (e *Engine) onHeading(deg float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped || e.kind != DeviceFusion {
		return
	}
	e.sawInput = true
	e.filt.heading(deg)
	e.rawYaw = e.filt.yaw
	e.emitLocked()
}

// Subscribe registers a listener for every emitted sample and returns its
// unsubscribe handle.
func (e *Engine) Subscribe(fn func(Sample)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return func() {}
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// SetSmoothing updates the output smoothing setting, clamped to [0,0.3].
func (e *Engine) SetSmoothing(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.smoothing = clampSmoothing(v)
}

// SetHeadingOffset updates the heading offset applied before smoothing.
func (e *Engine) SetHeadingOffset(deg float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.headingOffset = deg
}

// Source reports the currently active source kind.
func (e *Engine) Source() Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind
}

// Stop tears the engine down: backend unsubscribed, redraw tick and grace
// timer cancelled, subscriber list cleared. No listener fires after Stop
// returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	if e.graceTimer != nil {
		e.graceTimer.Stop()
	}
	e.ticker.Stop()
	close(e.tickDone)
	if e.backend != nil {
		e.backend.Stop()
	}
	e.subs = nil
}

func (e *Engine) tickLoop() {
	for {
		select {
		case <-e.tickDone:
			return
		case <-e.ticker.C:
			e.mu.Lock()
			if !e.stopped {
				e.emitLocked()
			}
			e.mu.Unlock()
		}
	}
}

// emitLocked runs the output stage and notifies subscribers. Heading is
// smoothed with circular-aware blending: the shortest-path delta toward the
// target, so smoothing never wraps the long way across the 0/360 seam.
// The caller must hold e.mu.
func (e *Engine) emitLocked() {
	target := geo.Wrap360(e.rawYaw + e.headingOffset)

	if !e.primed {
		e.out.HeadingDeg = target
		e.out.PitchDeg = e.rawPitch
		e.out.RollDeg = e.rawRoll
		e.primed = true
	} else {
		// Fraction of the remaining delta retained per emission.
		keep := 1 - math.Exp(-e.smoothing)
		move := 1 - keep
		e.out.HeadingDeg = geo.Wrap360(e.out.HeadingDeg + geo.Wrap180(target-e.out.HeadingDeg)*move)
		e.out.PitchDeg += (e.rawPitch - e.out.PitchDeg) * move
		e.out.RollDeg += (e.rawRoll - e.out.RollDeg) * move
	}

	e.out.Source = e.kind

	ts := time.Now()
	if !ts.After(e.lastTS) {
		ts = e.lastTS.Add(time.Nanosecond)
	}
	e.lastTS = ts
	e.out.Timestamp = ts

	s := e.out
	for _, fn := range e.subs {
		fn(s)
	}
}

func clampSmoothing(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.3 {
		return 0.3
	}
	return v
}
