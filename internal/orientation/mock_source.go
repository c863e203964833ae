// Copyright (c) 2026 Chris Roppel
// SPDX-License-Identifier: MIT

package orientation

import (
	"math"
	"time"
)

// MockBackend returns a generic-sensor constructor that generates a smooth
// synthetic orientation sweep. Useful for development without hardware or a
// broker.
func MockBackend(interval time.Duration) func(emit func(QuatSample)) (Backend, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return func(emit func(QuatSample)) (Backend, error) {
		return &mockSource{interval: interval, emit: emit, done: make(chan struct{})}, nil
	}
}

type mockSource struct {
	interval time.Duration
	emit     func(QuatSample)
	done     chan struct{}
}

func (m *mockSource) Start() error {
	start := time.Now()
	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				t := time.Since(start).Seconds()
				m.emit(QuatFromEuler(
					math.Mod(t*30, 360),
					15*math.Cos(t*0.7),
					20*math.Sin(t),
				))
			}
		}
	}()
	return nil
}

func (m *mockSource) Stop() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}
