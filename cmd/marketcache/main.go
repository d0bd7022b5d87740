package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/cache"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/config"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/fetcher"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/provider"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/repository"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] market data cache starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init provider
	var prov provider.Provider
	if cfg.Provider.Name == "mock" {
		prov = provider.NewMockProvider(cfg.Provider.BasePrice)
	} else {
		prov = provider.NewYahooProvider(cfg.Proxy, cfg.Provider.SymbolMap)
	}
	log.Printf("[INFO] data provider: %s", prov.Name())

	// Init resilient fetcher
	stats := cache.NewStats()
	f := fetcher.New(prov, stats, fetcher.Config{
		MaxRequestsPerMinute: cfg.Fetch.MaxRequestsPerMinute,
		MaxRetries:           cfg.Fetch.MaxRetries,
		BaseDelay:            config.Duration(cfg.Fetch.BaseDelay),
		FailureThreshold:     cfg.Fetch.FailureThreshold,
		CoolDown:             config.Duration(cfg.Fetch.CoolDown),
		PriceDigits:          int32(cfg.Fetch.PricePrecision),
		FuzzyTolerancePct:    cfg.Fetch.FuzzyTolerancePct,
	})

	// Init repository; fall back to memory-only operation when sqlite is
	// unavailable or not configured.
	var repo repository.TimelineRepository
	if cfg.Database.SQLitePath != "" {
		sr, err := repository.NewSQLiteRepository(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite repository failed, running memory-only: %v", err)
		} else {
			repo = sr
			defer sr.Close()
		}
	} else {
		log.Println("[INFO] no sqlite path configured, running memory-only")
	}

	// Init tier policy and cache service
	policy := cache.NewTierPolicy(cache.TierTTL{
		model.PrecisionUltraHigh: config.Duration(cfg.Cache.TTL.UltraHigh),
		model.PrecisionHigh:      config.Duration(cfg.Cache.TTL.High),
		model.PrecisionMedium:    config.Duration(cfg.Cache.TTL.Medium),
		model.PrecisionLow:       config.Duration(cfg.Cache.TTL.Low),
		model.PrecisionVeryLow:   config.Duration(cfg.Cache.TTL.VeryLow),
	})
	svc := cache.NewService(f, repo, policy, stats, cache.Options{
		DefaultPeriod:      cfg.Fetch.Period,
		DefaultInterval:    model.Interval1d,
		MaxPointsPerSymbol: cfg.Cache.MaxPointsPerSymbol,
		BulkConcurrency:    cfg.Cache.BulkConcurrency,
		Disabled:           !cfg.Cache.Enabled,
	})
	if !cfg.Cache.Enabled {
		log.Println("[WARN] cache disabled, every read fetches from the provider")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, svc, cfg.Schedule.Symbols, cfg.Cache.BulkConcurrency, cfg.Schedule.RetentionDays)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.CleanupCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Optional: refresh immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing bulk refresh now")
		go sched.RunRefreshNow()
	}

	log.Println("[INFO] market data cache is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Printf("[INFO] final stats: %v", svc.CacheStats())
	log.Println("[INFO] market data cache stopped")
}
