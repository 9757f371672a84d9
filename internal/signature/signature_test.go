package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sleepmodel/internal/lamp"
)

func TestNormalize(t *testing.T) {
	n := Normalize(lamp.Status{
		On:         true,
		Mimir:      false,
		Brightness: 123,
		Color:      " ffaa00 ",
		EffectID:   99,
	})
	assert.Equal(t, 125, n.Brightness, "brightness snaps to nearest 5")
	assert.Equal(t, "#FFAA00", n.Color)
	assert.Equal(t, lamp.EffectMax, n.EffectID)

	n = Normalize(lamp.Status{Brightness: 300, Color: "nonsense", EffectID: -4})
	assert.Equal(t, lamp.BrightnessMax, n.Brightness)
	assert.Equal(t, "#FFFFFF", n.Color)
	assert.Equal(t, 0, n.EffectID)
}

func TestEncode(t *testing.T) {
	sig := Encode(Normalized{On: true, Mimir: false, Brightness: 120, Color: "#FFAA00", EffectID: 0})
	assert.Equal(t, "p=1;m=0;b=120;c=#FFAA00;e=0", sig)
}

func TestRoundTrip(t *testing.T) {
	states := []lamp.Status{
		{On: true, Brightness: 120, Color: "#FFAA00", EffectID: 0},
		{On: false, Mimir: true, Brightness: 7, Color: "00ff00", EffectID: 55},
		{On: true, Brightness: 255, Color: "#FFFFFF", EffectID: 12},
		{Brightness: 0, Color: "bogus", EffectID: 200},
	}
	for _, st := range states {
		n := Normalize(st)
		back := DecodeNormalized(Encode(n))
		assert.Equal(t, n, back, "decode(encode(normalize(s))) must round-trip")
	}
}

func TestDecodeDefaults(t *testing.T) {
	n := DecodeNormalized("garbage")
	assert.Equal(t, Normalized{On: true, Brightness: 0, Color: "#FFFFFF", EffectID: 0}, n)

	actions := Decode("p=0;m=1;b=45;c=#112233;e=3")
	assert.Equal(t, []lamp.Action{
		lamp.SetPower(false),
		lamp.SetMimir(true),
		lamp.SetBrightness(45),
		lamp.SetColor("#112233"),
		lamp.SetEffect(3),
	}, actions)
}

func TestScheduleTopSignatureDecodes(t *testing.T) {
	actions := Decode("p=1;m=0;b=120;c=#FFAA00;e=0")
	assert.Equal(t, []lamp.Action{
		lamp.SetPower(true),
		lamp.SetMimir(false),
		lamp.SetBrightness(120),
		lamp.SetColor("#FFAA00"),
		lamp.SetEffect(0),
	}, actions)
}
