package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"sleepmodel/internal/config"
	"sleepmodel/internal/http/handlers"
	appmw "sleepmodel/internal/http/middleware"
	"sleepmodel/internal/lamp"
	"sleepmodel/internal/mdns"
	"sleepmodel/internal/metrics"
	"sleepmodel/internal/mode"
	"sleepmodel/internal/predictor"
	"sleepmodel/internal/preset"
	"sleepmodel/internal/provenance"
	"sleepmodel/internal/replay"
	"sleepmodel/internal/scheduler"
	"sleepmodel/internal/service"
	"sleepmodel/internal/usage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "sleepmodel",
		Short: "Adaptive preset model and scheduler for the sleep lamp",
		Long: `sleepmodel learns the lamp states you actually use, caches a daily
set of preset suggestions per time bucket, and optionally pushes the
top preset to the lamp when the bucket changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&cfg.LampHost, "lamp", cfg.LampHost, "Lamp hostname or IP")
	f.IntVar(&cfg.LampPort, "lamp-port", cfg.LampPort, "Lamp HTTP port")
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Listen address")
	f.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	f.StringVar(&cfg.ModelFile, "model", cfg.ModelFile, "Model weights file")
	f.StringVar(&cfg.PresetsFile, "presets-file", cfg.PresetsFile, "Preset cache file")
	f.StringVar(&cfg.ModeFile, "mode-file", cfg.ModeFile, "Mode state file")
	f.StringVar(&cfg.UsageFile, "usage-file", cfg.UsageFile, "Usage counts file")
	f.StringVar(&cfg.DecisionDB, "decision-db", cfg.DecisionDB, "Decision log database (empty disables)")
	f.IntVar(&cfg.TrainBatch, "train-batch", cfg.TrainBatch, "Examples per training batch")
	f.IntVar(&cfg.OnlineSteps, "online-steps", cfg.OnlineSteps, "Gradient steps per training call")
	f.IntVar(&cfg.MinBuffer, "min-buffer", cfg.MinBuffer, "Replay examples required before training")
	f.IntVar(&cfg.PresetMax, "preset-max", cfg.PresetMax, "Preset cache capacity")
	f.IntVar(&cfg.SchedCheckSeconds, "sched-check-s", cfg.SchedCheckSeconds, "Scheduler poll interval, seconds")
	f.IntVar(&cfg.SchedCooldownSeconds, "sched-cooldown-s", cfg.SchedCooldownSeconds, "Scheduler action cooldown, seconds")
	f.IntVar(&cfg.AutoPerBucketPerDay, "auto-per-bucket-per-day", cfg.AutoPerBucketPerDay, "Automatic preset quota per bucket per day")
	f.IntVar(&cfg.ManualPerDay, "manual-per-day", cfg.ManualPerDay, "Manual preset quota per day")
	f.BoolVar(&cfg.SeedOnStartup, "seed-on-startup", cfg.SeedOnStartup, "Seed today's presets at startup")
	f.BoolVar(&cfg.SeedOnRollover, "seed-on-rollover", cfg.SeedOnRollover, "Seed presets when the day rolls over")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	now := time.Now()

	client := lamp.NewClient(cfg.LampHost, cfg.LampPort, 0)
	model := predictor.LoadNet(cfg.ModelFile, now.UnixNano())

	svc := &service.Service{
		Cfg:     cfg,
		Lamp:    client,
		Model:   model,
		Presets: preset.NewStore(cfg.PresetsFile, cfg.PresetMax, cfg.AutoPerBucketPerDay, cfg.ManualPerDay),
		Usage:   usage.NewTracker(),
		Replay:  replay.NewBuffer(0),
		Mode:    mode.NewStore(cfg.ModeFile),
	}

	if cfg.DecisionDB != "" {
		decisions, err := provenance.Open(cfg.DecisionDB)
		if err != nil {
			log.Printf("decision log disabled: %v", err)
		} else {
			svc.Decisions = decisions
			defer decisions.Close()
		}
	}

	metrics.Init()
	svc.LoadState(now)
	if cfg.SeedOnStartup {
		svc.SeedDay("startup", now)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := scheduler.New(svc,
		time.Duration(cfg.SchedCheckSeconds)*time.Second,
		time.Duration(cfg.SchedCooldownSeconds)*time.Second)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		loop.Run(ctx)
	}()

	r := router.New()
	r.GET("/health", handlers.Health())
	r.GET("/version", handlers.Version())
	r.GET("/metrics", handlers.Metrics())
	r.GET("/presets", handlers.Presets(svc))
	r.GET("/stats", handlers.Stats(svc))
	r.GET("/mode", handlers.GetMode(svc))
	r.POST("/mode", handlers.SetMode(svc))
	r.POST("/suggest", handlers.Suggest(svc))
	r.POST("/train", handlers.Train(svc))

	handler := appmw.RequestLogger(appmw.CORS(r.Handler))

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.Port)
	srv := &fasthttp.Server{Handler: handler, Name: "sleepmodel"}

	announcer, err := mdns.Announce(cfg.Port)
	if err != nil {
		log.Printf("mdns announce failed: %v", err)
	} else {
		defer announcer.Shutdown()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("sleepmodel listening on %s (lamp %s:%d)", addr, cfg.LampHost, cfg.LampPort)
		serveErr <- srv.ListenAndServe(addr)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-schedDone
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	if err := srv.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-schedDone

	if err := svc.Presets.Save(); err != nil {
		log.Printf("save presets: %v", err)
	}
	if err := svc.Usage.Save(cfg.UsageFile); err != nil {
		log.Printf("save usage: %v", err)
	}
	if err := svc.Model.Save(); err != nil {
		log.Printf("save model: %v", err)
	}
	return nil
}
