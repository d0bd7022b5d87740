package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/cache"
)

// Scheduler runs the periodic bulk refresh and retention cleanup jobs.
type Scheduler struct {
	Cron          *cron.Cron
	Service       *cache.Service
	Symbols       []string
	MaxConcurrent int
	RetentionDays int
	Ctx           context.Context
}

// NewScheduler creates a scheduler over the cache service.
func NewScheduler(ctx context.Context, svc *cache.Service, symbols []string, maxConcurrent, retentionDays int) *Scheduler {
	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds()),
		Service:       svc,
		Symbols:       symbols,
		MaxConcurrent: maxConcurrent,
		RetentionDays: retentionDays,
		Ctx:           ctx,
	}
}

// RegisterAll registers the refresh and cleanup tasks.
func (s *Scheduler) RegisterAll(refreshCron, cleanupCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(cleanupCron, s.cleanupTask); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (for RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	if len(s.Symbols) == 0 {
		return
	}
	log.Printf("[INFO] running bulk refresh for %d symbols", len(s.Symbols))
	results := s.Service.BulkRefresh(s.Ctx, s.Symbols, s.MaxConcurrent)

	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
		}
	}
	log.Printf("[INFO] bulk refresh done: %d/%d succeeded", succeeded, len(results))
}

func (s *Scheduler) cleanupTask() {
	log.Printf("[INFO] running cleanup, retention %d days", s.RetentionDays)
	counts, err := s.Service.CleanupOldData(s.Ctx, s.RetentionDays)
	if err != nil {
		log.Printf("[ERROR] cleanup: %v", err)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	log.Printf("[INFO] cleanup removed %d points across %d symbols", total, len(counts))
}
