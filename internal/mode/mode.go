// Package mode holds the operating-mode setting that steers the
// scheduler: off, suggest, or schedule_top, plus the flag deciding
// whether chosen presets are pushed to the lamp automatically.
package mode

import (
	"fmt"
	"sync"

	"sleepmodel/internal/jsonfile"
)

const (
	Off         = "off"
	Suggest     = "suggest"
	ScheduleTop = "schedule_top"
)

// Valid reports whether m is a recognized operating mode.
func Valid(m string) bool {
	return m == Off || m == Suggest || m == ScheduleTop
}

// State is the persisted mode setting.
type State struct {
	Mode              string `json:"mode"`
	ApplyOnTimeChange bool   `json:"apply_on_time_change"`
}

// Store is the concurrency-safe holder of the mode setting.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// NewStore returns a store persisting to path, starting in mode off.
func NewStore(path string) *Store {
	return &Store{path: path, state: State{Mode: Off}}
}

// Get returns the current setting.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set validates and stores a new setting, persisting it immediately.
func (s *Store) Set(m string, applyOnChange bool) error {
	if !Valid(m) {
		return fmt.Errorf("invalid mode %q", m)
	}
	s.mu.Lock()
	s.state = State{Mode: m, ApplyOnTimeChange: applyOnChange}
	s.mu.Unlock()
	return s.Save()
}

// Load reads the persisted setting. Missing or malformed files keep
// the defaults; an unrecognized persisted mode coerces to off.
func (s *Store) Load() error {
	var st State
	ok, err := jsonfile.Read(s.path, &st)
	if err != nil || !ok {
		return err
	}
	if !Valid(st.Mode) {
		st.Mode = Off
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Save persists the current setting with atomic replace.
func (s *Store) Save() error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return jsonfile.Write(s.path, st)
}
