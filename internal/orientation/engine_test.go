package orientation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a no-op Backend whose construction the tests control.
type fakeBackend struct {
	started bool
	stopped bool
}

func (b *fakeBackend) Start() error { b.started = true; return nil }
func (b *fakeBackend) Stop()        { b.stopped = true }

// quietOptions keeps the redraw tick out of the way so tests only see the
// emissions they trigger themselves.
func quietOptions(b Backends) Options {
	return Options{
		TickInterval:  time.Hour,
		FallbackGrace: time.Hour,
		Backends:      b,
	}
}

func TestStartPrefersGenericSensor(t *testing.T) {
	var emitQuat func(QuatSample)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return &fakeBackend{}, nil
		},
		NewDeviceMotion: func(func(MotionEvent), func(float64)) (Backend, error) {
			t.Fatal("device motion must not be probed when generic sensor works")
			return nil, nil
		},
	}))
	defer e.Stop()

	assert.Equal(t, GenericSensor, e.Source())

	var got Sample
	e.Subscribe(func(s Sample) { got = s })

	emitQuat(QuatFromEuler(90, 10, 0))
	assert.InDelta(t, 90, got.HeadingDeg, 1e-6)
	assert.InDelta(t, 10, got.PitchDeg, 1e-6)
	assert.Equal(t, GenericSensor, got.Source)
}

func TestStartFallsBackToDeviceFusion(t *testing.T) {
	var emitHeading func(float64)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(func(QuatSample)) (Backend, error) {
			return nil, errors.New("no such sensor")
		},
		NewDeviceMotion: func(motion func(MotionEvent), heading func(float64)) (Backend, error) {
			emitHeading = heading
			return &fakeBackend{}, nil
		},
	}))
	defer e.Stop()

	assert.Equal(t, DeviceFusion, e.Source())

	var got Sample
	e.Subscribe(func(s Sample) { got = s })
	emitHeading(135)
	assert.InDelta(t, 135, got.HeadingDeg, 1e-9, "first heading seeds yaw")
	assert.Equal(t, DeviceFusion, got.Source)
}

func TestStartVirtualWhenNothingAvailable(t *testing.T) {
	e := Start(quietOptions(Backends{}))
	defer e.Stop()
	assert.Equal(t, Virtual, e.Source())
}

func TestGraceExpiryFallsBackToVirtual(t *testing.T) {
	backend := &fakeBackend{}
	e := Start(Options{
		TickInterval:  time.Hour,
		FallbackGrace: 20 * time.Millisecond,
		Backends: Backends{
			NewDeviceMotion: func(func(MotionEvent), func(float64)) (Backend, error) {
				return backend, nil
			},
		},
	})
	defer e.Stop()

	require.Equal(t, DeviceFusion, e.Source())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, Virtual, e.Source(), "silent device fusion must yield to virtual")
	assert.True(t, backend.stopped)
}

func TestGraceSurvivedByInput(t *testing.T) {
	var emitMotion func(MotionEvent)
	e := Start(Options{
		TickInterval:  time.Hour,
		FallbackGrace: 50 * time.Millisecond,
		Backends: Backends{
			NewDeviceMotion: func(motion func(MotionEvent), heading func(float64)) (Backend, error) {
				emitMotion = motion
				return &fakeBackend{}, nil
			},
		},
	})
	defer e.Stop()

	emitMotion(MotionEvent{Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, DeviceFusion, e.Source(), "a single event within the grace period keeps the source")
}

func TestDragDrivesVirtualSource(t *testing.T) {
	e := Start(quietOptions(Backends{}))
	defer e.Stop()

	var got Sample
	e.Subscribe(func(s Sample) { got = s })

	e.Drag(100, 0)
	assert.InDelta(t, 100*dragHeadingSensitivity, got.HeadingDeg, 1e-9)

	// dragging down tilts up
	e.Drag(0, -100)
	assert.InDelta(t, 100*dragPitchSensitivity, got.PitchDeg, 1e-9)

	// pitch clamps at the limit
	e.Drag(0, -100000)
	assert.InDelta(t, virtualPitchLimit, got.PitchDeg, 1e-9)
	assert.Equal(t, Virtual, got.Source)
}

func TestDragIgnoredOnSensorSource(t *testing.T) {
	var emitQuat func(QuatSample)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return &fakeBackend{}, nil
		},
	}))
	defer e.Stop()

	var got Sample
	e.Subscribe(func(s Sample) { got = s })
	emitQuat(QuatFromEuler(45, 0, 0))
	e.Drag(500, 500)
	assert.InDelta(t, 45, got.HeadingDeg, 1e-6, "drag must not move a sensor-driven heading")
}

// burstBackend starts delivering from its own goroutine the moment Start
// is called, like an MQTT subscription with retained messages queued.
type burstBackend struct {
	emit func(QuatSample)
	done chan struct{}
}

func (b *burstBackend) Start() error {
	go func() {
		for i := 0; i < 500; i++ {
			select {
			case <-b.done:
				return
			default:
			}
			b.emit(QuatFromEuler(45, 0, 0))
			time.Sleep(time.Millisecond)
		}
	}()
	return nil
}

func (b *burstBackend) Stop() { close(b.done) }

func TestBackendDeliveringDuringStart(t *testing.T) {
	got := make(chan Sample, 1)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			return &burstBackend{emit: emit, done: make(chan struct{})}, nil
		},
	}))
	defer e.Stop()

	e.Subscribe(func(s Sample) {
		select {
		case got <- s:
		default:
		}
	})

	select {
	case s := <-got:
		assert.Equal(t, GenericSensor, s.Source)
		assert.InDelta(t, 45, s.HeadingDeg, 1e-6)
	case <-time.After(time.Second):
		t.Fatal("no sample delivered from a backend emitting during startup")
	}
}

func TestSmoothingNeverWrapsTheLongWay(t *testing.T) {
	var emitQuat func(QuatSample)
	opts := quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return &fakeBackend{}, nil
		},
	})
	opts.Smoothing = 0.3
	e := Start(opts)
	defer e.Stop()

	var got Sample
	e.Subscribe(func(s Sample) { got = s })

	// first emission primes the output directly, no blend
	emitQuat(QuatFromEuler(2, 0, 0))
	require.InDelta(t, 2, got.HeadingDeg, 1e-6)

	// 2 -> 358 must move through 0/360, not across the dial
	emitQuat(QuatFromEuler(358, 0, 0))
	move := math.Exp(-0.3)
	want := 2 - 4*move + 360
	assert.InDelta(t, want, got.HeadingDeg, 1e-4)
}

func TestZeroSmoothingIsInstant(t *testing.T) {
	var emitQuat func(QuatSample)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return &fakeBackend{}, nil
		},
	}))
	defer e.Stop()

	var got Sample
	e.Subscribe(func(s Sample) { got = s })
	emitQuat(QuatFromEuler(10, 0, 0))
	emitQuat(QuatFromEuler(200, 5, 0))
	assert.InDelta(t, 200, got.HeadingDeg, 1e-6)
	assert.InDelta(t, 5, got.PitchDeg, 1e-6)
}

func TestHeadingOffsetApplied(t *testing.T) {
	var emitQuat func(QuatSample)
	opts := quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return &fakeBackend{}, nil
		},
	})
	opts.HeadingOffsetDeg = 350
	e := Start(opts)
	defer e.Stop()

	var got Sample
	e.Subscribe(func(s Sample) { got = s })
	emitQuat(QuatFromEuler(20, 0, 0))
	assert.InDelta(t, 10, got.HeadingDeg, 1e-6, "20 + 350 wraps to 10")
}

func TestSetSmoothingClamps(t *testing.T) {
	e := Start(quietOptions(Backends{}))
	defer e.Stop()

	e.SetSmoothing(5)
	e.mu.Lock()
	assert.InDelta(t, 0.3, e.smoothing, 1e-9)
	e.mu.Unlock()

	e.SetSmoothing(-1)
	e.mu.Lock()
	assert.InDelta(t, 0, e.smoothing, 1e-9)
	e.mu.Unlock()
}

func TestUnsubscribe(t *testing.T) {
	e := Start(quietOptions(Backends{}))
	defer e.Stop()

	calls := 0
	unsubscribe := e.Subscribe(func(Sample) { calls++ })
	e.Drag(10, 0)
	require.Equal(t, 1, calls)

	unsubscribe()
	e.Drag(10, 0)
	assert.Equal(t, 1, calls, "no delivery after unsubscribe")
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	e := Start(quietOptions(Backends{}))
	defer e.Stop()

	var stamps []time.Time
	e.Subscribe(func(s Sample) { stamps = append(stamps, s.Timestamp) })
	for i := 0; i < 50; i++ {
		e.Drag(1, 0)
	}
	for i := 1; i < len(stamps); i++ {
		assert.True(t, stamps[i].After(stamps[i-1]), "timestamp %d not after its predecessor", i)
	}
}

func TestStopSilencesEngine(t *testing.T) {
	backend := &fakeBackend{}
	var emitQuat func(QuatSample)
	e := Start(quietOptions(Backends{
		NewGenericSensor: func(emit func(QuatSample)) (Backend, error) {
			emitQuat = emit
			return backend, nil
		},
	}))

	calls := 0
	e.Subscribe(func(Sample) { calls++ })

	e.Stop()
	assert.True(t, backend.stopped)

	emitQuat(QuatFromEuler(90, 0, 0))
	e.Drag(100, 0)
	assert.Zero(t, calls, "no listener fires after Stop")

	// idempotent
	e.Stop()
}
