package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/repository"
)

// ErrNoData is returned when no price is available for a symbol.
var ErrNoData = errors.New("no data available")

// HistoricalFetcher is what the service needs from the resilient fetcher.
// An error means the fetch pipeline could not produce data; the service
// decides whether to degrade or surface it.
type HistoricalFetcher interface {
	FetchHistorical(ctx context.Context, symbol, period string, interval model.Interval) ([]model.TimelinePoint, error)
}

// storageError marks repository failures so callers can tell them apart from
// provider failures: storage errors propagate, provider errors degrade.
type storageError struct {
	err error
}

func (e *storageError) Error() string { return e.err.Error() }
func (e *storageError) Unwrap() error { return e.err }

func isStorageError(err error) bool {
	var se *storageError
	return errors.As(err, &se)
}

// Options configures the cache service.
type Options struct {
	DefaultPeriod      string
	DefaultInterval    model.Interval
	MaxPointsPerSymbol int
	BulkConcurrency    int

	// Disabled turns off TTL-based serving from the memory tier: every read
	// refreshes from the provider. Fetched data is still retained so
	// degradation and persistence keep working.
	Disabled bool
}

func (o *Options) applyDefaults() {
	if o.DefaultPeriod == "" {
		o.DefaultPeriod = "1y"
	}
	if o.DefaultInterval == "" {
		o.DefaultInterval = model.Interval1d
	}
	if o.BulkConcurrency <= 0 {
		o.BulkConcurrency = 5
	}
}

// Service is the market-data cache facade: memory tier first, then the
// persisted repository, then a resilient fetch. Stale-but-available data is
// always preferred over raising; only repository errors propagate.
type Service struct {
	fetcher HistoricalFetcher
	repo    repository.TimelineRepository // nil means memory-only operation
	policy  *TierPolicy
	stats   *Stats
	opts    Options

	mu        sync.RWMutex
	timelines map[string]*model.Timeline

	// refreshMu excludes concurrent refreshes of the same symbol so two
	// in-flight fetches cannot clobber each other's fetched_at bookkeeping.
	refreshMu sync.Mutex
	refreshes map[string]*sync.Mutex
}

// NewService wires the facade. repo may be nil for memory-only operation.
func NewService(fetcher HistoricalFetcher, repo repository.TimelineRepository, policy *TierPolicy, stats *Stats, opts Options) *Service {
	opts.applyDefaults()
	if policy == nil {
		policy = NewTierPolicy(nil)
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Service{
		fetcher:   fetcher,
		repo:      repo,
		policy:    policy,
		stats:     stats,
		opts:      opts,
		timelines: make(map[string]*model.Timeline),
		refreshes: make(map[string]*sync.Mutex),
	}
}

func (s *Service) memory(symbol string) *model.Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timelines[symbol]
}

func (s *Service) put(symbol string, tl *model.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelines[symbol] = tl
}

func (s *Service) symbolLock(symbol string) *sync.Mutex {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	lock, ok := s.refreshes[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshes[symbol] = lock
	}
	return lock
}

// GetTimeline returns the timeline for symbol, refreshing it when missing,
// stale, or forced. Fetch failures degrade to the best available timeline;
// repository failures propagate.
func (s *Service) GetTimeline(ctx context.Context, symbol string, forceRefresh bool) (*model.Timeline, error) {
	if s.opts.Disabled {
		forceRefresh = true
	}
	now := time.Now()
	if tl := s.memory(symbol); tl != nil && !forceRefresh && !s.policy.NeedsRefresh(tl, now) {
		s.stats.IncCacheHits()
		return tl, nil
	}
	s.stats.IncCacheMisses()

	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the per-symbol lock: a concurrent caller may have
	// refreshed while we waited.
	tl := s.memory(symbol)
	if tl != nil && !forceRefresh && !s.policy.NeedsRefresh(tl, time.Now()) {
		return tl, nil
	}

	if tl == nil {
		hydrated, err := s.hydrate(ctx, symbol)
		if err != nil {
			return nil, err
		}
		tl = hydrated
	}

	if tl != nil && !forceRefresh && !s.policy.NeedsRefresh(tl, time.Now()) {
		return tl, nil
	}

	refreshed, err := s.refreshLocked(ctx, symbol, tl)
	if err != nil {
		if isStorageError(err) {
			return nil, err
		}
		// Provider-side failure: degrade to whatever we have.
		log.Printf("[WARN] refresh %s failed, serving cached data: %v", symbol, err)
		if tl == nil {
			tl = model.NewTimeline(symbol, model.CurrencyForSymbol(symbol))
			s.put(symbol, tl)
		}
		return tl, nil
	}
	return refreshed, nil
}

// hydrate loads a timeline from the repository into memory. Repository errors
// propagate to the caller.
func (s *Service) hydrate(ctx context.Context, symbol string) (*model.Timeline, error) {
	if s.repo == nil {
		return nil, nil
	}
	s.stats.IncDBReads()
	stored, err := s.repo.GetTimeline(ctx, symbol)
	if err != nil {
		return nil, &storageError{err: err}
	}
	if stored == nil {
		return nil, nil
	}
	s.put(symbol, stored)
	return stored, nil
}

// refreshLocked fetches fresh points and merges them into the timeline.
// Caller must hold the symbol lock.
func (s *Service) refreshLocked(ctx context.Context, symbol string, tl *model.Timeline) (*model.Timeline, error) {
	points, err := s.fetcher.FetchHistorical(ctx, symbol, s.opts.DefaultPeriod, s.opts.DefaultInterval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	if tl == nil {
		tl = model.NewTimeline(symbol, model.CurrencyForSymbol(symbol))
	}

	var delta []model.TimelinePoint
	for _, p := range points {
		if tl.Upsert(p) {
			delta = append(delta, p)
		}
	}
	if evicted := tl.Prune(s.opts.MaxPointsPerSymbol); evicted > 0 {
		s.stats.AddEvictions(evicted)
	}
	tl.SetFetchedAt(time.Now())
	s.put(symbol, tl)

	if s.repo != nil && len(delta) > 0 {
		if err := s.repo.BulkSavePoints(ctx, symbol, delta); err != nil {
			return nil, &storageError{err: fmt.Errorf("save points %s: %w", symbol, err)}
		}
		if err := s.repo.SaveTimeline(ctx, tl); err != nil {
			return nil, &storageError{err: fmt.Errorf("save timeline %s: %w", symbol, err)}
		}
		s.stats.IncDBWrites()
	}
	return tl, nil
}

// GetLatestPrice returns the close of the newest cached point for symbol.
func (s *Service) GetLatestPrice(ctx context.Context, symbol string) (model.Price, error) {
	tl, err := s.GetTimeline(ctx, symbol, false)
	if err != nil {
		return model.Price{}, err
	}
	price, ok := tl.LatestPrice(nil)
	if !ok {
		return model.Price{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return price, nil
}

// GetMarketData returns points for symbol within [start, end] at the given
// interval, in ascending timestamp order.
func (s *Service) GetMarketData(ctx context.Context, symbol string, start, end time.Time, interval model.Interval) ([]model.TimelinePoint, error) {
	tl, err := s.GetTimeline(ctx, symbol, false)
	if err != nil {
		return nil, err
	}
	all := tl.PointsInRange(start, end)
	out := make([]model.TimelinePoint, 0, len(all))
	for _, p := range all {
		if interval != "" && p.Interval != interval {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// BulkRefresh force-refreshes symbols with at most maxConcurrent fetches in
// flight. One symbol's failure never aborts the others; the result maps each
// symbol to whether its refresh succeeded.
func (s *Service) BulkRefresh(ctx context.Context, symbols []string, maxConcurrent int) map[string]bool {
	if maxConcurrent <= 0 {
		maxConcurrent = s.opts.BulkConcurrency
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]bool, len(symbols))

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := s.refreshSymbol(ctx, symbol)
			if err != nil {
				log.Printf("[WARN] bulk refresh %s: %v", symbol, err)
			}
			mu.Lock()
			results[symbol] = err == nil
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

// refreshSymbol forces one symbol's refresh under its lock, surfacing both
// provider and storage failures.
func (s *Service) refreshSymbol(ctx context.Context, symbol string) error {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	tl := s.memory(symbol)
	if tl == nil {
		hydrated, err := s.hydrate(ctx, symbol)
		if err != nil {
			return err
		}
		tl = hydrated
	}
	_, err := s.refreshLocked(ctx, symbol, tl)
	return err
}

// CleanupOldData deletes persisted and in-memory points older than the given
// number of days, per symbol. Returns a no-op map when no repository is
// configured. Only symbols currently in the memory tier are swept: the
// repository contract has no symbol-listing operation, so rows for symbols
// never loaded this process stay until their symbol is cached again.
func (s *Service) CleanupOldData(ctx context.Context, olderThanDays int) (map[string]int64, error) {
	results := make(map[string]int64)
	if s.repo == nil {
		return results, nil
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	s.mu.RLock()
	symbols := make([]string, 0, len(s.timelines))
	for symbol := range s.timelines {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()

	for _, symbol := range symbols {
		deleted, err := s.repo.DeleteOldPoints(ctx, symbol, cutoff)
		if err != nil {
			return results, fmt.Errorf("cleanup %s: %w", symbol, err)
		}
		if tl := s.memory(symbol); tl != nil {
			deleted += int64(tl.DeleteBefore(cutoff))
		}
		results[symbol] = deleted
	}
	log.Printf("[INFO] cleanup removed points older than %d days for %d symbols", olderThanDays, len(symbols))
	return results, nil
}

// ClearCache drops one symbol's memory timeline, or all of them when symbol
// is empty. Persisted data is untouched.
func (s *Service) ClearCache(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol == "" {
		s.timelines = make(map[string]*model.Timeline)
		log.Println("[INFO] memory cache cleared")
		return
	}
	delete(s.timelines, symbol)
}

// CacheStats returns a snapshot of the service counters.
func (s *Service) CacheStats() map[string]int64 {
	return s.stats.Snapshot()
}

// ResetStats zeroes all counters. Operator action only.
func (s *Service) ResetStats() {
	s.stats.Reset()
}
