// Package replay is the bounded training-example buffer feeding the
// online learning loop. Eviction is FIFO on capacity; recency only
// biases which retained examples a sampled batch draws.
package replay

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"sleepmodel/internal/feature"
)

const (
	// DefaultMax bounds the number of retained examples.
	DefaultMax = 8000
	// DefaultHalfLife is the recency-decay half-life for sample weights.
	DefaultHalfLife = 6 * time.Hour

	weightMin = 0.2
	weightMax = 2.0
)

// Buffer is a bounded append-only log of (features, targets, timestamp)
// examples. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	max      int
	halfLife time.Duration

	x    [][]float32
	ctrl [][]float32
	rgb  [][]float32
	eff  [][]float32
	ts   []int64

	now func() time.Time
	rng *rand.Rand
}

// NewBuffer returns a buffer retaining at most max examples. max <= 0
// selects DefaultMax.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultMax
	}
	return &Buffer{
		max:      max,
		halfLife: DefaultHalfLife,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Add appends one example. Dimensionality is a hard precondition: a
// mismatched vector is a caller bug and panics rather than poisoning
// the buffer.
func (b *Buffer) Add(x []float32, tgt feature.Targets, ts int64) {
	if len(x) != feature.Dim {
		panic(fmt.Sprintf("replay: feature dim %d, want %d", len(x), feature.Dim))
	}
	if len(tgt.Ctrl) != feature.CtrlDim || len(tgt.RGB) != feature.RGBDim || len(tgt.Eff) != feature.EffDim {
		panic(fmt.Sprintf("replay: target dims (%d,%d,%d), want (%d,%d,%d)",
			len(tgt.Ctrl), len(tgt.RGB), len(tgt.Eff),
			feature.CtrlDim, feature.RGBDim, feature.EffDim))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.x = append(b.x, x)
	b.ctrl = append(b.ctrl, tgt.Ctrl)
	b.rgb = append(b.rgb, tgt.RGB)
	b.eff = append(b.eff, tgt.Eff)
	b.ts = append(b.ts, ts)

	if over := len(b.x) - b.max; over > 0 {
		b.x = b.x[over:]
		b.ctrl = b.ctrl[over:]
		b.rgb = b.rgb[over:]
		b.eff = b.eff[over:]
		b.ts = b.ts[over:]
	}
}

// Len returns the number of retained examples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.x)
}

// Sample draws min(n, Len()) distinct examples uniformly at random and
// returns them with recency-decayed weights: 0.5^(age/halfLife) clamped
// into [0.2, 2.0]. Future timestamps count as age zero. Empty buffer
// yields empty batches.
func (b *Buffer) Sample(n int) (X [][]float32, Y feature.Batch, w []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.x) {
		n = len(b.x)
	}
	if n <= 0 {
		return nil, feature.Batch{}, nil
	}

	idx := b.rng.Perm(len(b.x))[:n]
	now := b.now().Unix()

	X = make([][]float32, 0, n)
	Y.Ctrl = make([][]float32, 0, n)
	Y.RGB = make([][]float32, 0, n)
	Y.Eff = make([][]float32, 0, n)
	w = make([]float32, 0, n)

	for _, i := range idx {
		X = append(X, b.x[i])
		Y.Ctrl = append(Y.Ctrl, b.ctrl[i])
		Y.RGB = append(Y.RGB, b.rgb[i])
		Y.Eff = append(Y.Eff, b.eff[i])
		w = append(w, decayWeight(now-b.ts[i], b.halfLife))
	}
	return X, Y, w
}

func decayWeight(ageSeconds int64, halfLife time.Duration) float32 {
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	w := math.Pow(0.5, float64(ageSeconds)/halfLife.Seconds())
	if w < weightMin {
		w = weightMin
	}
	if w > weightMax {
		w = weightMax
	}
	return float32(w)
}
