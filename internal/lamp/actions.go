package lamp

import (
	"encoding/json"
	"fmt"
)

// ActionKind discriminates the device instruction variants.
type ActionKind string

const (
	KindSetPower      ActionKind = "set_power"
	KindSetMimir      ActionKind = "set_mimir"
	KindSetBrightness ActionKind = "set_brightness"
	KindSetColor      ActionKind = "set_color"
	KindSetEffect     ActionKind = "set_effect"
)

// Action is a single typed device instruction. Exactly one payload
// field is meaningful per kind: On for set_power/set_mimir, Value for
// set_brightness, Hex for set_color, ID for set_effect.
type Action struct {
	Kind  ActionKind
	On    bool
	Value int
	Hex   string
	ID    int
}

func SetPower(on bool) Action      { return Action{Kind: KindSetPower, On: on} }
func SetMimir(on bool) Action      { return Action{Kind: KindSetMimir, On: on} }
func SetBrightness(v int) Action   { return Action{Kind: KindSetBrightness, Value: v} }
func SetColor(hex string) Action   { return Action{Kind: KindSetColor, Hex: hex} }
func SetEffect(id int) Action      { return Action{Kind: KindSetEffect, ID: id} }

// actionWire is the JSON shape the firmware consumes.
type actionWire struct {
	Type  ActionKind `json:"type"`
	On    *bool      `json:"on,omitempty"`
	Value *int       `json:"value,omitempty"`
	Hex   *string    `json:"hex,omitempty"`
	ID    *int       `json:"id,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	w := actionWire{Type: a.Kind}
	switch a.Kind {
	case KindSetPower, KindSetMimir:
		on := a.On
		w.On = &on
	case KindSetBrightness:
		v := a.Value
		w.Value = &v
	case KindSetColor:
		h := a.Hex
		w.Hex = &h
	case KindSetEffect:
		id := a.ID
		w.ID = &id
	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return json.Marshal(w)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Action{Kind: w.Type}
	if w.On != nil {
		out.On = *w.On
	}
	if w.Value != nil {
		out.Value = *w.Value
	}
	if w.Hex != nil {
		out.Hex = *w.Hex
	}
	if w.ID != nil {
		out.ID = *w.ID
	}
	*a = out
	return nil
}
