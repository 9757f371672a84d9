package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepmodel/internal/feature"
)

func example() ([]float32, feature.Targets) {
	return make([]float32, feature.Dim), feature.Targets{
		Ctrl: make([]float32, feature.CtrlDim),
		RGB:  make([]float32, feature.RGBDim),
		Eff:  make([]float32, feature.EffDim),
	}
}

func TestCapacityIsFIFO(t *testing.T) {
	b := NewBuffer(5)
	for i := 0; i < 12; i++ {
		x, tgt := example()
		b.Add(x, tgt, int64(i))
	}
	assert.Equal(t, 5, b.Len())
	// Oldest retained timestamp is 7 (0..6 evicted).
	assert.Equal(t, int64(7), b.ts[0])
}

func TestDimMismatchPanics(t *testing.T) {
	b := NewBuffer(10)
	_, tgt := example()
	assert.Panics(t, func() { b.Add(make([]float32, 3), tgt, 0) })

	x, _ := example()
	assert.Panics(t, func() {
		b.Add(x, feature.Targets{Ctrl: []float32{1}, RGB: make([]float32, 3), Eff: make([]float32, feature.EffDim)}, 0)
	})
}

func TestSampleEmpty(t *testing.T) {
	b := NewBuffer(10)
	X, Y, w := b.Sample(8)
	assert.Empty(t, X)
	assert.Empty(t, Y.Ctrl)
	assert.Empty(t, w)
}

func TestSampleWithoutReplacement(t *testing.T) {
	b := NewBuffer(100)
	for i := 0; i < 20; i++ {
		x, tgt := example()
		x[0] = float32(i) // tag so we can detect duplicates
		b.Add(x, tgt, int64(i))
	}

	X, Y, w := b.Sample(20)
	require.Len(t, X, 20)
	require.Len(t, Y.Eff, 20)
	require.Len(t, w, 20)

	seen := map[float32]bool{}
	for _, x := range X {
		assert.False(t, seen[x[0]], "example drawn twice")
		seen[x[0]] = true
	}

	// Asking for more than we hold returns everything once.
	X, _, _ = b.Sample(500)
	assert.Len(t, X, 20)
}

func TestDecayWeights(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b := NewBuffer(10)
	b.now = func() time.Time { return now }

	x, tgt := example()
	b.Add(x, tgt, now.Unix()) // age 0
	x2, tgt2 := example()
	b.Add(x2, tgt2, now.Add(-100*time.Hour).Unix()) // many half-lives old
	x3, tgt3 := example()
	b.Add(x3, tgt3, now.Add(time.Hour).Unix()) // future timestamp

	_, _, w := b.Sample(3)
	require.Len(t, w, 3)

	var sawFresh, sawStale int
	for _, v := range w {
		switch {
		case v == 1.0:
			sawFresh++
		case v == 0.2:
			sawStale++
		}
	}
	assert.Equal(t, 2, sawFresh, "age 0 and future both weigh 1.0")
	assert.Equal(t, 1, sawStale, "stale example clamps to the floor")
}

func TestDecayWeightHalfLife(t *testing.T) {
	assert.InDelta(t, 1.0, decayWeight(0, DefaultHalfLife), 1e-9)
	assert.InDelta(t, 0.5, decayWeight(int64(DefaultHalfLife.Seconds()), DefaultHalfLife), 1e-6)
	assert.InDelta(t, 0.2, decayWeight(int64(100*DefaultHalfLife.Seconds()), DefaultHalfLife), 1e-9)
	assert.InDelta(t, 1.0, decayWeight(-50, DefaultHalfLife), 1e-9, "future clamps to age 0")
}
