package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFadeInRate(t *testing.T) {
	tr := make(fadeTracker)

	tr.advance(map[string]bool{"a": true}, 0.05)
	assert.InDelta(t, fadeInRate*0.05, tr.alpha("a"), 1e-9)

	// saturates at 1
	for i := 0; i < 20; i++ {
		tr.advance(map[string]bool{"a": true}, 0.1)
	}
	assert.InDelta(t, 1, tr.alpha("a"), 1e-9)
}

func TestFadeOutRateAndDeletion(t *testing.T) {
	tr := fadeTracker{"a": 1}

	tr.advance(map[string]bool{}, 0.1)
	assert.InDelta(t, 1-fadeOutRate*0.1, tr.alpha("a"), 1e-9)

	// decays to zero and the key disappears
	for i := 0; i < 20; i++ {
		tr.advance(map[string]bool{}, 0.1)
	}
	_, ok := tr["a"]
	assert.False(t, ok, "fully faded untargeted key must be dropped")
	assert.Zero(t, tr.alpha("a"))
}

func TestFadeTargetedKeyRetainedAtZero(t *testing.T) {
	tr := make(fadeTracker)

	// created this frame with dt=0: alpha stays 0 but the key exists
	tr.advance(map[string]bool{"a": true}, 0)
	_, ok := tr["a"]
	assert.True(t, ok)
	assert.Zero(t, tr.alpha("a"))
}

func TestFadeDTClamped(t *testing.T) {
	tr := make(fadeTracker)

	// a long pause must not fast-forward the fade-in
	tr.advance(map[string]bool{"a": true}, 10)
	assert.InDelta(t, fadeInRate*maxFadeDT, tr.alpha("a"), 1e-9)

	// negative dt is treated as zero
	before := tr.alpha("a")
	tr.advance(map[string]bool{"a": true}, -1)
	assert.InDelta(t, before, tr.alpha("a"), 1e-9)
}

func TestFadeIdempotentAtZeroDT(t *testing.T) {
	tr := fadeTracker{"a": 0.5, "b": 0.2}

	tr.advance(map[string]bool{"a": true}, 0)
	tr.advance(map[string]bool{"a": true}, 0)
	assert.InDelta(t, 0.5, tr.alpha("a"), 1e-9)
	assert.InDelta(t, 0.2, tr.alpha("b"), 1e-9)
}
