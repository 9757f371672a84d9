// Package service is the facade over the preset store, usage tracker,
// replay buffer, mode setting, predictor, and lamp client. HTTP
// handlers and the scheduler both operate through it; it owns state
// loading at startup and persistence after every mutation.
package service

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/config"
	"sleepmodel/internal/feature"
	"sleepmodel/internal/lamp"
	"sleepmodel/internal/metrics"
	"sleepmodel/internal/mode"
	"sleepmodel/internal/predictor"
	"sleepmodel/internal/preset"
	"sleepmodel/internal/provenance"
	"sleepmodel/internal/replay"
	"sleepmodel/internal/signature"
	"sleepmodel/internal/usage"
)

// LampClient is the device boundary. The production implementation is
// lamp.Client; tests substitute a fake.
type LampClient interface {
	GetStatus() (lamp.Status, error)
	ApplyActions(actions []lamp.Action, source, note string, ts int64) error
}

// Service wires the stores together. All fields are set at construction
// and never reassigned; each store carries its own lock.
type Service struct {
	Cfg   *config.Config
	Lamp  LampClient
	Model predictor.Predictor

	Presets *preset.Store
	Usage   *usage.Tracker
	Replay  *replay.Buffer
	Mode    *mode.Store

	// Decisions may be nil (decision logging disabled).
	Decisions *provenance.Log
}

// LoadState restores all persisted stores, discards records from
// previous days, enforces quotas, and persists the cleaned state.
// Missing or malformed files silently initialize empty.
func (s *Service) LoadState(now time.Time) {
	if err := s.Mode.Load(); err != nil {
		log.Printf("load mode: %v", err)
	}
	if err := s.Usage.Load(s.Cfg.UsageFile); err != nil {
		log.Printf("load usage: %v", err)
	}
	if err := s.Presets.Load(); err != nil {
		log.Printf("load presets: %v", err)
	}
	s.Presets.PruneToToday(now)
	s.Presets.EnforceCaps(now)
	if err := s.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	metrics.SetPresetsCached(s.Presets.Len())
}

// RolloverIfNeeded runs the daily transition and, when one happened,
// persists the cleared store and reseeds if configured.
func (s *Service) RolloverIfNeeded(now time.Time) {
	if !s.Presets.RolloverIfNeeded(now) {
		return
	}
	log.Printf("rollover to %s", bucket.DateKey(now))
	if err := s.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	if s.Cfg.SeedOnRollover {
		s.SeedDay("rollover", now)
	}
}

// PredictActions runs the model on st at t and converts the outputs to
// device actions.
func (s *Service) PredictActions(st lamp.Status, t time.Time) ([]lamp.Action, error) {
	out, err := s.Model.Predict(feature.FromStatus(st, t))
	if err != nil {
		return nil, err
	}
	return feature.ActionsFromOutputs(out.Ctrl, out.RGB, out.Eff), nil
}

// SeedDay fills each bucket up to its automatic quota with predictions
// made at the bucket's representative hour. Best-effort: a lamp or
// model failure aborts silently and the next trigger resumes.
func (s *Service) SeedDay(reason string, now time.Time) {
	st, err := s.Lamp.GetStatus()
	if err != nil {
		log.Printf("seed(%s): lamp unreachable: %v", reason, err)
		return
	}

	for _, b := range bucket.All {
		for s.Presets.CanAddAutomatic(b, now) {
			repTime := bucket.RepresentativeTime(b, now)
			actions, err := s.PredictActions(st, repTime)
			if err != nil {
				log.Printf("seed(%s): predict: %v", reason, err)
				return
			}
			s.Presets.Append(preset.Record{
				TS:       repTime.Unix(),
				Bucket:   b,
				Source:   "pc-seed",
				Note:     "seed:" + reason,
				Actions:  actions,
				Category: preset.CategoryAuto,
			}, now)
		}
	}

	s.Presets.EnforceCaps(now)
	if err := s.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	metrics.SeedPass(reason)
	metrics.SetPresetsCached(s.Presets.Len())
	detail, _ := json.Marshal(map[string]any{"reason": reason})
	s.recordDecision(provenance.Entry{
		Trigger:  "seed",
		Decision: "seeded",
		Detail:   string(detail),
	})
}

// Suggest computes a preset for st (or the live lamp state when st is
// nil) at ts and commits it under the quota path selected by category.
// Unrecognized categories coerce to manual.
func (s *Service) Suggest(ts time.Time, st *lamp.Status, source, note, category string) (preset.Record, error) {
	s.RolloverIfNeeded(ts)

	if st == nil {
		live, err := s.Lamp.GetStatus()
		if err != nil {
			return preset.Record{}, err
		}
		st = &live
	}

	actions, err := s.PredictActions(*st, ts)
	if err != nil {
		return preset.Record{}, err
	}

	category = strings.ToLower(category)
	if category != preset.CategoryAuto {
		category = preset.CategoryManual
	}
	b := bucket.FromTime(ts)

	rec := preset.Record{
		TS:       ts.Unix(),
		Bucket:   b,
		Source:   source,
		Note:     note,
		Actions:  actions,
		Category: category,
	}

	if category == preset.CategoryAuto {
		s.Presets.InsertAutomatic(b, rec, ts)
	} else {
		s.Presets.InsertManual(rec, ts)
	}
	s.Presets.EnforceCaps(ts)
	if err := s.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	metrics.SetPresetsCached(s.Presets.Len())
	detail, _ := json.Marshal(map[string]any{"source": source})
	s.recordDecision(provenance.Entry{
		Trigger:  "suggest",
		Bucket:   string(b),
		Decision: "committed_" + category,
		Detail:   string(detail),
	})
	return rec, nil
}

// TrainResult reports what a Train call did.
type TrainResult struct {
	Trained bool
	Loss    *float64
	Buffer  int
	Reason  string
}

// Train records a (before, after) state transition: the example joins
// the replay buffer and the usage histogram, and once the buffer holds
// MinBuffer examples a recency-weighted batch updates the model, which
// is then persisted.
func (s *Service) Train(ts time.Time, before, after lamp.Status, note string) (TrainResult, error) {
	s.RolloverIfNeeded(ts)

	x := feature.FromStatus(before, ts)
	tgt := feature.TargetsFromStatus(after)
	s.Replay.Add(x, tgt, ts.Unix())

	b := bucket.FromTime(ts)
	sig := signature.Encode(signature.Normalize(after))
	s.Usage.Increment(b, sig)

	n := s.Replay.Len()
	metrics.SetReplayExamples(n)
	if n%10 == 0 {
		if err := s.Usage.Save(s.Cfg.UsageFile); err != nil {
			log.Printf("save usage: %v", err)
		}
	}

	res := TrainResult{Buffer: n}
	switch {
	case n < s.Cfg.MinBuffer:
		res.Reason = "buffer<min"
	default:
		batchN := s.Cfg.TrainBatch
		if batchN > n {
			batchN = n
		}
		X, Y, w := s.Replay.Sample(batchN)
		if len(X) == 0 {
			res.Reason = "sample_empty"
			break
		}
		steps := s.Cfg.OnlineSteps
		if steps < 1 {
			steps = 1
		}
		var loss float64
		var err error
		for i := 0; i < steps; i++ {
			loss, err = s.Model.TrainBatch(X, Y, w)
			if err != nil {
				return res, err
			}
		}
		if err := s.Model.Save(); err != nil {
			log.Printf("save model: %v", err)
		}
		res.Trained = true
		res.Loss = &loss
		metrics.TrainingRun(loss)
	}

	s.Presets.EnforceCaps(ts)
	if err := s.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	metrics.SetPresetsCached(s.Presets.Len())

	detail, _ := json.Marshal(map[string]any{
		"trained": res.Trained,
		"buffer":  res.Buffer,
		"reason":  res.Reason,
	})
	s.recordDecision(provenance.Entry{
		Trigger:  "train",
		Bucket:   string(b),
		Decision: trainDecision(res.Trained),
		Detail:   string(detail),
	})
	return res, nil
}

func trainDecision(trained bool) string {
	if trained {
		return "trained"
	}
	return "buffered"
}

func (s *Service) recordDecision(e provenance.Entry) {
	if s.Decisions == nil {
		return
	}
	if err := s.Decisions.Record(e); err != nil {
		log.Printf("decision log: %v", err)
	}
}
