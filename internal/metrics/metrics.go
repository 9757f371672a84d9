// Package metrics owns the Prometheus instruments shared by the
// handlers, the scheduler, and the training path.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SchedulerTransitions *prometheus.CounterVec
	SchedulerTicks       prometheus.Counter
	TrainingRuns         prometheus.Counter
	TrainingLoss         prometheus.Gauge
	ReplayExamples       prometheus.Gauge
	PresetsCached        prometheus.Gauge
	SeedPasses           *prometheus.CounterVec
)

// Init registers all service metrics with the default registry. Call
// once at startup.
func Init() {
	SchedulerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sleepmodel",
			Name:      "scheduler_transitions_total",
			Help:      "Bucket transitions acted on by the scheduler.",
		},
		[]string{"bucket", "mode"},
	)
	SchedulerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sleepmodel",
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler polling ticks.",
		},
	)
	TrainingRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sleepmodel",
			Name:      "training_runs_total",
			Help:      "Online training runs performed.",
		},
	)
	TrainingLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sleepmodel",
			Name:      "training_loss",
			Help:      "Loss of the most recent training run.",
		},
	)
	ReplayExamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sleepmodel",
			Name:      "replay_examples",
			Help:      "Examples currently held in the replay buffer.",
		},
	)
	PresetsCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sleepmodel",
			Name:      "presets_cached",
			Help:      "Preset records currently cached.",
		},
	)
	SeedPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sleepmodel",
			Name:      "seed_passes_total",
			Help:      "Seeding passes by trigger reason.",
		},
		[]string{"reason"},
	)

	prometheus.MustRegister(
		SchedulerTransitions,
		SchedulerTicks,
		TrainingRuns,
		TrainingLoss,
		ReplayExamples,
		PresetsCached,
		SeedPasses,
	)
}

// The helpers below are nil-safe so that core-logic tests can exercise
// the service without registering metrics.

func Tick() {
	if SchedulerTicks != nil {
		SchedulerTicks.Inc()
	}
}

func Transition(bucket, mode string) {
	if SchedulerTransitions != nil {
		SchedulerTransitions.WithLabelValues(bucket, mode).Inc()
	}
}

func TrainingRun(loss float64) {
	if TrainingRuns != nil {
		TrainingRuns.Inc()
		TrainingLoss.Set(loss)
	}
}

func SetReplayExamples(n int) {
	if ReplayExamples != nil {
		ReplayExamples.Set(float64(n))
	}
}

func SetPresetsCached(n int) {
	if PresetsCached != nil {
		PresetsCached.Set(float64(n))
	}
}

func SeedPass(reason string) {
	if SeedPasses != nil {
		SeedPasses.WithLabelValues(reason).Inc()
	}
}
