// cmd/hellofarm/main.go
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/pvss39/hellofarm/pkg/api"
	"github.com/pvss39/hellofarm/pkg/config"
	"github.com/pvss39/hellofarm/pkg/db"
	"github.com/pvss39/hellofarm/pkg/lifecycle"
	"github.com/pvss39/hellofarm/pkg/monitor"
	"github.com/pvss39/hellofarm/pkg/notify"
	"github.com/pvss39/hellofarm/pkg/provider"
	"github.com/pvss39/hellofarm/pkg/satellite"
	"github.com/pvss39/hellofarm/pkg/weather"
)

// monitorService adapts the scheduler to the lifecycle contract.
type monitorService struct {
	scheduler *monitor.Scheduler
	store     db.Service
}

func (s *monitorService) Start(ctx context.Context) error {
	s.scheduler.Run(ctx)
	return nil
}

func (s *monitorService) Stop(context.Context) error {
	return s.store.Close()
}

func main() {
	log.Printf("Starting hellofarm...")

	configPath := flag.String("config", "/etc/hellofarm/hellofarm.json", "Path to config file")
	flag.Parse()

	// Local .env is optional; secrets usually come from the real env.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment overrides from .env")
	}

	var cfg config.ServerConfig
	if err := config.LoadFile(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ApplyEnv()

	if err := config.ValidateConfig(&cfg); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	catalog := satellite.DefaultCatalog()

	engine := buildEngine(&cfg, store, catalog)
	scheduler := monitor.NewScheduler(engine, monitor.SchedulerConfig{
		SatelliteInterval: time.Duration(cfg.SatelliteInterval),
		MorningHour:       cfg.MorningHour,
		WeeklyWeekday:     time.Sunday,
		WeeklyHour:        cfg.WeeklyHour,
		BackfillDays:      cfg.BackfillDays,
		Location:          cfg.Location(),
	})

	apiServer := api.NewAPIServer(store, engine, catalog)

	err = lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "hellofarm",
		Service:     &monitorService{scheduler: scheduler, store: store},
		Handler:     apiServer.Router(),
	})
	if err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	log.Printf("Shutdown complete")
}

func buildEngine(cfg *config.ServerConfig, store db.Service, catalog *satellite.Catalog) *monitor.Engine {
	providers := make(map[string]provider.Provider)

	if cfg.Imagery.Enabled {
		providers["imagery"] = provider.NewImageryClient(cfg.Imagery)
		log.Printf("Imagery provider configured at %s", cfg.Imagery.BaseURL)
	} else {
		providers["imagery"] = provider.NewSynthetic(catalog)
		log.Printf("No imagery provider configured, using synthetic observations")
	}

	fetcher := provider.NewFetcher(catalog, providers, cfg.MaxCloudPercent)

	var notifiers []notify.Notifier

	for _, whCfg := range cfg.Webhooks {
		if whCfg.Enabled {
			notifiers = append(notifiers, notify.NewWebhookNotifier(whCfg))
		}
	}

	if len(notifiers) == 0 {
		log.Printf("No webhooks configured, messages go to the log")

		notifiers = append(notifiers, notify.NewConsoleNotifier())
	}

	return monitor.NewEngine(store, fetcher, satellite.NewSelector(catalog),
		weather.NewClient(cfg.Weather), notifiers, monitor.Config{
			LookbackDays:    cfg.LookbackDays,
			TrendWindowDays: cfg.TrendWindowDays,
		})
}
