// Package predictor defines the narrow interface the scheduling core
// needs from the learned model, plus the built-in implementation. Core
// logic tests substitute a deterministic stub.
package predictor

import "sleepmodel/internal/feature"

// Outputs are the model's three heads for a single input.
type Outputs struct {
	Ctrl []float32 // [brightness01, on, mimir], sigmoid
	RGB  []float32 // [r, g, b], sigmoid
	Eff  []float32 // effect distribution, softmax
}

// Predictor is the opaque model boundary: inference, weighted batch
// training, and durable persistence of whatever was learned.
type Predictor interface {
	Predict(x []float32) (Outputs, error)
	TrainBatch(X [][]float32, Y feature.Batch, w []float32) (loss float64, err error)
	Save() error
}
