package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"sleepmodel/internal/feature"
	"sleepmodel/internal/jsonfile"
)

const (
	hiddenDim    = 64
	learningRate = 1e-3

	// Head loss weights: color and effect mistakes cost more than
	// brightness/power ones.
	ctrlLossWeight = 1.0
	rgbLossWeight  = 2.0
	effLossWeight  = 3.0
)

// Net is a single-hidden-layer network (tanh hidden, sigmoid ctrl/rgb
// heads, softmax effect head) trained by weighted SGD. It persists its
// weights as JSON with atomic replace. Safe for concurrent use.
type Net struct {
	mu   sync.Mutex
	path string

	// Exported for JSON persistence only.
	InputDim int           `json:"input_dim"`
	Hidden   int           `json:"hidden"`
	W1       [][]float64   `json:"w1"` // hidden x input
	B1       []float64     `json:"b1"`
	WCtrl    [][]float64   `json:"w_ctrl"` // ctrl x hidden
	BCtrl    []float64     `json:"b_ctrl"`
	WRGB     [][]float64   `json:"w_rgb"`
	BRGB     []float64     `json:"b_rgb"`
	WEff     [][]float64   `json:"w_eff"`
	BEff     []float64     `json:"b_eff"`
}

// NewNet returns a freshly initialized network for the fixed feature
// layout, seeded for reproducible initialization.
func NewNet(path string, seed int64) *Net {
	rng := rand.New(rand.NewSource(seed))
	n := &Net{
		path:     path,
		InputDim: feature.Dim,
		Hidden:   hiddenDim,
	}
	n.W1, n.B1 = initLayer(rng, hiddenDim, feature.Dim)
	n.WCtrl, n.BCtrl = initLayer(rng, feature.CtrlDim, hiddenDim)
	n.WRGB, n.BRGB = initLayer(rng, feature.RGBDim, hiddenDim)
	n.WEff, n.BEff = initLayer(rng, feature.EffDim, hiddenDim)
	return n
}

// LoadNet reads a persisted network from path, returning a fresh one
// when the file is missing, malformed, or dimensioned for a different
// feature layout.
func LoadNet(path string, seed int64) *Net {
	var n Net
	ok, err := jsonfile.Read(path, &n)
	if err != nil || !ok || !n.compatible() {
		return NewNet(path, seed)
	}
	n.path = path
	return &n
}

func (n *Net) compatible() bool {
	return n.InputDim == feature.Dim &&
		n.Hidden > 0 &&
		len(n.W1) == n.Hidden &&
		len(n.WCtrl) == feature.CtrlDim &&
		len(n.WRGB) == feature.RGBDim &&
		len(n.WEff) == feature.EffDim
}

func initLayer(rng *rand.Rand, rows, cols int) ([][]float64, []float64) {
	scale := math.Sqrt(2.0 / float64(cols))
	w := make([][]float64, rows)
	for i := range w {
		w[i] = make([]float64, cols)
		for j := range w[i] {
			w[i][j] = rng.NormFloat64() * scale
		}
	}
	return w, make([]float64, rows)
}

func matVec(w [][]float64, b []float64, x []float64) []float64 {
	out := make([]float64, len(w))
	for i, row := range w {
		s := b[i]
		for j, v := range row {
			s += v * x[j]
		}
		out[i] = s
	}
	return out
}

func sigmoid(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = 1.0 / (1.0 + math.Exp(-v))
	}
	return out
}

func softmax(z []float64) []float64 {
	maxV := z[0]
	for _, v := range z {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

type forwardState struct {
	x    []float64
	h    []float64 // tanh activations
	ctrl []float64
	rgb  []float64
	eff  []float64
}

// forwardLocked runs one input through the network. Caller holds n.mu.
func (n *Net) forwardLocked(x []float64) forwardState {
	pre := matVec(n.W1, n.B1, x)
	h := make([]float64, len(pre))
	for i, v := range pre {
		h[i] = math.Tanh(v)
	}
	return forwardState{
		x:    x,
		h:    h,
		ctrl: sigmoid(matVec(n.WCtrl, n.BCtrl, h)),
		rgb:  sigmoid(matVec(n.WRGB, n.BRGB, h)),
		eff:  softmax(matVec(n.WEff, n.BEff, h)),
	}
}

func toF64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func toF32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// Predict runs inference on a single feature vector.
func (n *Net) Predict(x []float32) (Outputs, error) {
	if len(x) != n.InputDim {
		return Outputs{}, fmt.Errorf("predictor: input dim %d, want %d", len(x), n.InputDim)
	}
	n.mu.Lock()
	fs := n.forwardLocked(toF64(x))
	n.mu.Unlock()
	return Outputs{Ctrl: toF32(fs.ctrl), RGB: toF32(fs.rgb), Eff: toF32(fs.eff)}, nil
}

// TrainBatch runs one weighted SGD pass over the batch and returns the
// weighted mean loss (MSE on ctrl and rgb, cross-entropy on eff, with
// the fixed head weights).
func (n *Net) TrainBatch(X [][]float32, Y feature.Batch, w []float32) (float64, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("predictor: empty batch")
	}
	if len(Y.Ctrl) != len(X) || len(Y.RGB) != len(X) || len(Y.Eff) != len(X) || len(w) != len(X) {
		return 0, fmt.Errorf("predictor: batch columns not parallel")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var totalLoss, totalWeight float64
	for i := range X {
		if len(X[i]) != n.InputDim {
			return 0, fmt.Errorf("predictor: input dim %d, want %d", len(X[i]), n.InputDim)
		}
		sw := float64(w[i])
		loss := n.stepLocked(toF64(X[i]), toF64(Y.Ctrl[i]), toF64(Y.RGB[i]), toF64(Y.Eff[i]), sw)
		totalLoss += loss * sw
		totalWeight += sw
	}
	if totalWeight == 0 {
		return 0, nil
	}
	return totalLoss / totalWeight, nil
}

// stepLocked performs one SGD update for a single example scaled by
// sample weight sw, returning the example's (unweighted) loss.
func (n *Net) stepLocked(x, yCtrl, yRGB, yEff []float64, sw float64) float64 {
	fs := n.forwardLocked(x)

	// Output deltas: d(loss)/d(pre-activation).
	dCtrl := make([]float64, len(fs.ctrl))
	var lossCtrl float64
	for i := range fs.ctrl {
		diff := fs.ctrl[i] - yCtrl[i]
		lossCtrl += diff * diff
		s := fs.ctrl[i]
		dCtrl[i] = ctrlLossWeight * 2 * diff / float64(len(fs.ctrl)) * s * (1 - s)
	}
	lossCtrl /= float64(len(fs.ctrl))

	dRGB := make([]float64, len(fs.rgb))
	var lossRGB float64
	for i := range fs.rgb {
		diff := fs.rgb[i] - yRGB[i]
		lossRGB += diff * diff
		s := fs.rgb[i]
		dRGB[i] = rgbLossWeight * 2 * diff / float64(len(fs.rgb)) * s * (1 - s)
	}
	lossRGB /= float64(len(fs.rgb))

	dEff := make([]float64, len(fs.eff))
	var lossEff float64
	for i := range fs.eff {
		dEff[i] = effLossWeight * (fs.eff[i] - yEff[i])
		if yEff[i] > 0 {
			lossEff -= yEff[i] * math.Log(math.Max(fs.eff[i], 1e-12))
		}
	}

	// Backprop into the hidden layer.
	dh := make([]float64, n.Hidden)
	accumulate := func(w [][]float64, d []float64) {
		for i, row := range w {
			for j := range row {
				dh[j] += row[j] * d[i]
			}
		}
	}
	accumulate(n.WCtrl, dCtrl)
	accumulate(n.WRGB, dRGB)
	accumulate(n.WEff, dEff)
	for j := range dh {
		dh[j] *= 1 - fs.h[j]*fs.h[j]
	}

	lr := learningRate * sw
	updateLayer := func(w [][]float64, b []float64, d, in []float64) {
		for i := range w {
			for j := range w[i] {
				w[i][j] -= lr * d[i] * in[j]
			}
			b[i] -= lr * d[i]
		}
	}
	updateLayer(n.WCtrl, n.BCtrl, dCtrl, fs.h)
	updateLayer(n.WRGB, n.BRGB, dRGB, fs.h)
	updateLayer(n.WEff, n.BEff, dEff, fs.h)
	updateLayer(n.W1, n.B1, dh, x)

	return ctrlLossWeight*lossCtrl + rgbLossWeight*lossRGB + effLossWeight*lossEff
}

// Save persists the weights with atomic replace.
func (n *Net) Save() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return jsonfile.Write(n.path, n)
}
