// Package feature derives model inputs and targets from lamp state and
// wall-clock time, and maps model outputs back to device actions. The
// layouts are fixed and versioned: changing them invalidates both the
// replay buffer and any saved model.
package feature

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/lamp"
)

const (
	effectDim = lamp.EffectMax + 1
	timeDim   = 2 + 5 // sin/cos hour + bucket one-hot

	// Dim is the input feature dimensionality:
	// [brightness, on, mimir, lux, r, g, b] ++ effect one-hot ++ time.
	Dim = 7 + effectDim + timeDim

	// CtrlDim is [brightness01, on, mimir].
	CtrlDim = 3
	// RGBDim is [r, g, b] in [0,1].
	RGBDim = 3
	// EffDim is the effect one-hot width.
	EffDim = effectDim

	// luxScale normalizes the ambient-light reading into [0,1].
	luxScale = 400.0
)

// Targets is one training example's target vectors.
type Targets struct {
	Ctrl []float32
	RGB  []float32
	Eff  []float32
}

// Batch is a column-wise batch of targets, parallel to a feature batch.
type Batch struct {
	Ctrl [][]float32
	RGB  [][]float32
	Eff  [][]float32
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func oneHot(idx, n int) []float32 {
	v := make([]float32, n)
	if idx >= 0 && idx < n {
		v[idx] = 1
	}
	return v
}

// hexToRGB01 parses "#RRGGBB" or "RRGGBB" into unit-range components,
// returning white for anything malformed.
func hexToRGB01(hex string) (r, g, b float64) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return 1, 1, 1
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 1, 1, 1
	}
	r = float64((n>>16)&0xFF) / 255.0
	g = float64((n>>8)&0xFF) / 255.0
	b = float64(n&0xFF) / 255.0
	return r, g, b
}

// TimeFeatures encodes t's local hour as [sin, cos] plus the bucket
// one-hot.
func TimeFeatures(t time.Time) []float32 {
	h := t.Local().Hour()
	ang := 2 * math.Pi * float64(h) / 24.0
	out := make([]float32, 0, timeDim)
	out = append(out, float32(math.Sin(ang)), float32(math.Cos(ang)))
	out = append(out, oneHot(bucket.Index(bucket.FromHour(h)), len(bucket.All))...)
	return out
}

// FromStatus builds the full input vector for st observed at t.
func FromStatus(st lamp.Status, t time.Time) []float32 {
	r, g, b := hexToRGB01(st.Color)
	out := make([]float32, 0, Dim)
	out = append(out,
		float32(float64(st.Brightness)/lamp.BrightnessMax),
		boolFeature(st.On),
		boolFeature(st.Mimir),
		float32(clamp01(st.Lux/luxScale)),
		float32(r), float32(g), float32(b),
	)
	out = append(out, oneHot(st.EffectID, effectDim)...)
	out = append(out, TimeFeatures(t)...)
	return out
}

func boolFeature(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// TargetsFromStatus derives the training targets from the state the
// user left the lamp in.
func TargetsFromStatus(after lamp.Status) Targets {
	r, g, b := hexToRGB01(after.Color)
	return Targets{
		Ctrl: []float32{
			float32(clamp01(float64(after.Brightness) / lamp.BrightnessMax)),
			boolFeature(after.On),
			boolFeature(after.Mimir),
		},
		RGB: []float32{float32(r), float32(g), float32(b)},
		Eff: oneHot(after.EffectID, effectDim),
	}
}

// ActionsFromOutputs converts raw model head outputs into the ordered
// five-action list. Brightness rescales to device range, booleans use a
// 0.5 threshold, the effect is the argmax of the eff head clamped into
// the catalog.
func ActionsFromOutputs(ctrl, rgb, eff []float32) []lamp.Action {
	brightness := int(math.Round(clamp01(float64(ctrl[0])) * lamp.BrightnessMax))
	on := ctrl[1] > 0.5
	mimir := ctrl[2] > 0.5

	r := int(math.Round(clamp01(float64(rgb[0])) * 255))
	g := int(math.Round(clamp01(float64(rgb[1])) * 255))
	b := int(math.Round(clamp01(float64(rgb[2])) * 255))
	hex := fmt.Sprintf("#%02X%02X%02X", r, g, b)

	effID := 0
	for i := 1; i < len(eff); i++ {
		if eff[i] > eff[effID] {
			effID = i
		}
	}
	if effID > lamp.EffectMax {
		effID = lamp.EffectMax
	}

	return []lamp.Action{
		lamp.SetPower(on),
		lamp.SetMimir(mimir),
		lamp.SetBrightness(brightness),
		lamp.SetColor(hex),
		lamp.SetEffect(effID),
	}
}
