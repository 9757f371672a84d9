package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from environment variables with sensible
// defaults; command-line flags override them.
type Config struct {
	LampHost string
	LampPort int

	ListenAddr string
	Port       int

	ModelFile   string
	PresetsFile string
	ModeFile    string
	UsageFile   string
	DecisionDB  string

	TrainBatch  int
	OnlineSteps int
	MinBuffer   int

	PresetMax int

	// SchedCheckSeconds is the scheduler polling interval;
	// SchedCooldownSeconds the minimum gap between scheduler actions.
	SchedCheckSeconds    int
	SchedCooldownSeconds int

	AutoPerBucketPerDay int
	ManualPerDay        int

	SeedOnStartup  bool
	SeedOnRollover bool
}

// Load reads configuration from environment variables and applies
// defaults.
func Load() *Config {
	return &Config{
		LampHost: getenv("SLEEPMODEL_LAMP_HOST", "voidstar.local"),
		LampPort: getint("SLEEPMODEL_LAMP_PORT", 80),

		ListenAddr: getenv("SLEEPMODEL_LISTEN", "0.0.0.0"),
		Port:       getint("SLEEPMODEL_PORT", 5055),

		ModelFile:   getenv("SLEEPMODEL_MODEL_FILE", "lamp_preset_model.json"),
		PresetsFile: getenv("SLEEPMODEL_PRESETS_FILE", "presets.json"),
		ModeFile:    getenv("SLEEPMODEL_MODE_FILE", "mode.json"),
		UsageFile:   getenv("SLEEPMODEL_USAGE_FILE", "usage_counts.json"),
		DecisionDB:  getenv("SLEEPMODEL_DECISION_DB", "decisions.db"),

		TrainBatch:  getint("SLEEPMODEL_TRAIN_BATCH", 256),
		OnlineSteps: getint("SLEEPMODEL_ONLINE_STEPS", 2),
		MinBuffer:   getint("SLEEPMODEL_MIN_BUFFER", 30),

		PresetMax: getint("SLEEPMODEL_PRESET_MAX", 240),

		SchedCheckSeconds:    getint("SLEEPMODEL_SCHED_CHECK_S", 30),
		SchedCooldownSeconds: getint("SLEEPMODEL_SCHED_COOLDOWN_S", 60),

		AutoPerBucketPerDay: getint("SLEEPMODEL_AUTO_PER_BUCKET_PER_DAY", 2),
		ManualPerDay:        getint("SLEEPMODEL_MANUAL_PER_DAY", 5),

		SeedOnStartup:  getbool("SLEEPMODEL_SEED_ON_STARTUP", true),
		SeedOnRollover: getbool("SLEEPMODEL_SEED_ON_ROLLOVER", true),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
