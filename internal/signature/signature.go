// Package signature canonicalizes a lamp state into a short textual
// signature used as the usage-histogram key, and turns a signature back
// into the actions that reproduce it.
package signature

import (
	"fmt"
	"strconv"
	"strings"

	"sleepmodel/internal/lamp"
)

// Normalized is the quantized, canonical form of a lamp state: the five
// fields a signature encodes.
type Normalized struct {
	On         bool
	Mimir      bool
	Brightness int
	Color      string
	EffectID   int
}

// Normalize quantizes st into canonical form: brightness snapped to the
// nearest multiple of 5 in [0, BrightnessMax], color uppercased #RRGGBB
// (white on malformed input), effect clamped into [0, EffectMax].
func Normalize(st lamp.Status) Normalized {
	b := st.Brightness
	bq := int(float64(b)/5.0+0.5) * 5
	if b < 0 {
		bq = 0
	}
	if bq > lamp.BrightnessMax {
		bq = lamp.BrightnessMax
	}

	color := strings.TrimSpace(st.Color)
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	color = strings.ToUpper(color)
	if len(color) != 7 {
		color = "#FFFFFF"
	}

	eff := st.EffectID
	if eff < 0 {
		eff = 0
	}
	if eff > lamp.EffectMax {
		eff = lamp.EffectMax
	}

	return Normalized{
		On:         st.On,
		Mimir:      st.Mimir,
		Brightness: bq,
		Color:      color,
		EffectID:   eff,
	}
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Encode renders n as the fixed field-delimited signature, e.g.
// "p=1;m=0;b=120;c=#FFAA00;e=0". Field order never changes.
func Encode(n Normalized) string {
	return fmt.Sprintf("p=%d;m=%d;b=%d;c=%s;e=%d",
		boolDigit(n.On), boolDigit(n.Mimir), n.Brightness, n.Color, n.EffectID)
}

// DecodeNormalized parses sig back into its normalized state. Malformed
// or missing fields fall back to defaults (power on, mimir off,
// brightness 0, white, effect 0); decoding never fails.
func DecodeNormalized(sig string) Normalized {
	fields := map[string]string{}
	for _, part := range strings.Split(sig, ";") {
		if k, v, ok := strings.Cut(part, "="); ok {
			fields[k] = v
		}
	}

	get := func(key, def string) string {
		if v, ok := fields[key]; ok {
			return v
		}
		return def
	}
	atoi := func(s string) int {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}

	return Normalized{
		On:         get("p", "1") == "1",
		Mimir:      get("m", "0") == "1",
		Brightness: atoi(get("b", "0")),
		Color:      get("c", "#FFFFFF"),
		EffectID:   atoi(get("e", "0")),
	}
}

// Actions returns the ordered action list that reproduces n on the lamp.
func Actions(n Normalized) []lamp.Action {
	return []lamp.Action{
		lamp.SetPower(n.On),
		lamp.SetMimir(n.Mimir),
		lamp.SetBrightness(n.Brightness),
		lamp.SetColor(n.Color),
		lamp.SetEffect(n.EffectID),
	}
}

// Decode maps a signature straight to actions, the form the scheduler
// consumes when replaying the most popular setting for a bucket.
func Decode(sig string) []lamp.Action {
	return Actions(DecodeNormalized(sig))
}
