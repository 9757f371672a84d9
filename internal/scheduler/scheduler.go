// Package scheduler runs the background control loop: poll, detect
// time-bucket transitions, and commit (and optionally apply) the next
// preset according to the operating mode.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"sleepmodel/internal/bucket"
	"sleepmodel/internal/lamp"
	"sleepmodel/internal/metrics"
	"sleepmodel/internal/mode"
	"sleepmodel/internal/preset"
	"sleepmodel/internal/provenance"
	"sleepmodel/internal/service"
	"sleepmodel/internal/signature"
)

// Loop is the periodic scheduling task. Construct with New, then call
// Run exactly once; Run returns when ctx is cancelled.
type Loop struct {
	svc      *service.Service
	interval time.Duration
	cooldown time.Duration

	now func() time.Time

	haveLast   bool
	lastBucket bucket.Bucket
	lastAction time.Time
}

// New returns a loop polling every interval, acting at most once per
// cooldown.
func New(svc *service.Service, interval, cooldown time.Duration) *Loop {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Loop{
		svc:      svc,
		interval: interval,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. A panic inside a tick is logged and
// the loop keeps going; one bad tick must never kill the scheduler.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.safeTick()
		}
	}
}

func (l *Loop) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler tick panic: %v", r)
		}
	}()
	l.tick()
}

// tick is one polling pass.
func (l *Loop) tick() {
	now := l.now()
	metrics.Tick()

	l.svc.RolloverIfNeeded(now)

	b := bucket.FromTime(now)
	if !l.haveLast {
		// First tick: adopt the current bucket without acting.
		l.haveLast = true
		l.lastBucket = b
		return
	}
	if b == l.lastBucket {
		return
	}

	prev := l.lastBucket
	l.lastBucket = b

	if now.Sub(l.lastAction) < l.cooldown {
		// Within cooldown: skip the transition but mark the action
		// timestamp so a rapid follow-up transition cannot double-fire.
		l.lastAction = now
		return
	}

	st := l.svc.Mode.Get()
	if st.Mode == mode.Off {
		l.lastAction = now
		return
	}

	actions, note, decision, ok := l.chooseActions(st.Mode, prev, b, now)
	if !ok {
		// Transient failure; retry on a later transition.
		return
	}

	if st.ApplyOnTimeChange {
		if err := l.svc.Lamp.ApplyActions(actions, "pc-scheduler", note, now.Unix()); err != nil {
			log.Printf("scheduler: apply failed: %v", err)
		}
	}

	l.svc.Presets.InsertAutomatic(b, preset.Record{
		TS:       now.Unix(),
		Bucket:   b,
		Source:   "pc-scheduler",
		Note:     note,
		Actions:  actions,
		Category: preset.CategoryAuto,
	}, now)
	l.svc.Presets.EnforceCaps(now)
	if err := l.svc.Presets.Save(); err != nil {
		log.Printf("scheduler: save presets: %v", err)
	}
	metrics.Transition(string(b), st.Mode)
	metrics.SetPresetsCached(l.svc.Presets.Len())
	l.recordDecision(b, st.Mode, decision, note)

	l.lastAction = now
}

// chooseActions picks the preset for the new bucket: schedule_top
// replays the bucket's most popular signature, anything else (or an
// empty histogram) asks the model about the live lamp state.
func (l *Loop) chooseActions(m string, prev, b bucket.Bucket, now time.Time) (actions []lamp.Action, note, decision string, ok bool) {
	if m == mode.ScheduleTop {
		if sig, count, found := l.svc.Usage.Top(b); found {
			return signature.Decode(sig),
				fmt.Sprintf("time_bucket:%s->%s mode=schedule_top picked=%d", prev, b, count),
				"applied_top_signature", true
		}
	}

	st, err := l.svc.Lamp.GetStatus()
	if err != nil {
		log.Printf("scheduler: lamp unreachable: %v", err)
		return nil, "", "", false
	}
	actions, err = l.svc.PredictActions(st, now)
	if err != nil {
		log.Printf("scheduler: predict: %v", err)
		return nil, "", "", false
	}
	return actions, fmt.Sprintf("time_bucket:%s->%s mode=%s model", prev, b, m), "applied_model", true
}

func (l *Loop) recordDecision(b bucket.Bucket, m, decision, note string) {
	if l.svc.Decisions == nil {
		return
	}
	err := l.svc.Decisions.Record(provenance.Entry{
		Trigger:  "scheduler",
		Bucket:   string(b),
		Mode:     m,
		Decision: decision,
		Detail:   `{"note":` + fmt.Sprintf("%q", note) + `}`,
	})
	if err != nil {
		log.Printf("scheduler: decision log: %v", err)
	}
}
