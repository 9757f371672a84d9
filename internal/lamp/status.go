// Package lamp holds the device-facing types and the HTTP client used
// to talk to the lamp firmware.
package lamp

import "encoding/json"

const (
	// EffectMax is the highest effect id in the firmware's catalog.
	EffectMax = 55
	// BrightnessMax is the device-native brightness ceiling.
	BrightnessMax = 255
)

// Status is a read-only snapshot of the lamp as reported by GET /status.
// Fields beyond the core five are reported by the firmware but unused here.
type Status struct {
	On         bool    `json:"on"`
	Mimir      bool    `json:"mimir"`
	Brightness int     `json:"brightness"`
	Lux        float64 `json:"lux"`
	Color      string  `json:"color"`
	EffectID   int     `json:"effect_id"`

	EffectName string `json:"effect_name,omitempty"`
	WifiMode   string `json:"wifi_mode,omitempty"`
}

// UnmarshalJSON applies the firmware's implicit defaults for absent
// fields: a status with no "on" key means the lamp is on, and a missing
// color reads as white.
func (s *Status) UnmarshalJSON(data []byte) error {
	type plain Status
	p := plain{On: true, Color: "FFFFFF"}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Status(p)
	return nil
}
