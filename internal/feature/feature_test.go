package feature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepmodel/internal/lamp"
)

func TestDimensions(t *testing.T) {
	st := lamp.Status{On: true, Brightness: 64, Lux: 120, Color: "FFA500", EffectID: 3}
	x := FromStatus(st, time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local))
	require.Len(t, x, Dim)

	tgt := TargetsFromStatus(st)
	assert.Len(t, tgt.Ctrl, CtrlDim)
	assert.Len(t, tgt.RGB, RGBDim)
	assert.Len(t, tgt.Eff, EffDim)
}

func TestFromStatusValues(t *testing.T) {
	st := lamp.Status{On: true, Mimir: false, Brightness: 255, Lux: 800, Color: "#FF0000", EffectID: 2}
	x := FromStatus(st, time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local))

	assert.InDelta(t, 1.0, x[0], 1e-6, "brightness")
	assert.Equal(t, float32(1), x[1], "on")
	assert.Equal(t, float32(0), x[2], "mimir")
	assert.Equal(t, float32(1), x[3], "lux clamps to 1")
	assert.InDelta(t, 1.0, x[4], 1e-6, "red")
	assert.InDelta(t, 0.0, x[5], 1e-6, "green")
	assert.Equal(t, float32(1), x[7+2], "effect one-hot")

	// Midnight: sin 0, cos 1, night bucket.
	tf := x[Dim-7:]
	assert.InDelta(t, 0.0, tf[0], 1e-6)
	assert.InDelta(t, 1.0, tf[1], 1e-6)
	assert.Equal(t, float32(1), tf[2+4], "night one-hot")
}

func TestHexFallback(t *testing.T) {
	r, g, b := hexToRGB01("not-a-color")
	assert.Equal(t, [3]float64{1, 1, 1}, [3]float64{r, g, b})
}

func TestActionsFromOutputs(t *testing.T) {
	ctrl := []float32{0.5, 0.9, 0.2}
	rgb := []float32{1, 0.6667, 0}
	eff := make([]float32, EffDim)
	eff[7] = 0.9

	actions := ActionsFromOutputs(ctrl, rgb, eff)
	require.Len(t, actions, 5)
	assert.Equal(t, lamp.SetPower(true), actions[0])
	assert.Equal(t, lamp.SetMimir(false), actions[1])
	assert.Equal(t, lamp.KindSetBrightness, actions[2].Kind)
	assert.InDelta(t, 128, actions[2].Value, 1)
	assert.Equal(t, "#FFAA00", actions[3].Hex)
	assert.Equal(t, lamp.SetEffect(7), actions[4])
}
