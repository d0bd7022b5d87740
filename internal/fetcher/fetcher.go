package fetcher

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/cache"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/pipeline"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/provider"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/resilience"
)

// Config bounds the fetcher's resilience machinery.
type Config struct {
	MaxRequestsPerMinute int
	MaxRetries           int
	BaseDelay            time.Duration
	FailureThreshold     int
	CoolDown             time.Duration
	PriceDigits          int32
	FuzzyTolerancePct    float64
}

func (c *Config) applyDefaults() {
	if c.MaxRequestsPerMinute <= 0 {
		c.MaxRequestsPerMinute = 30
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.CoolDown <= 0 {
		c.CoolDown = time.Minute
	}
	if c.FuzzyTolerancePct <= 0 {
		c.FuzzyTolerancePct = 0.1
	}
}

// Fetcher pulls historical data for one symbol at a time through a rate
// limiter, circuit breaker and bounded retry, then runs the ingestion
// pipeline over the raw rows. Limiter and breaker are scoped to this
// instance, so concurrent calls serialize on the limiter's delay.
type Fetcher struct {
	provider provider.Provider
	limiter  *resilience.RateLimiter
	breaker  *resilience.CircuitBreaker
	retrier  *resilience.Retrier
	pipe     *pipeline.Pipeline
	stats    *cache.Stats
}

// New wires a fetcher around the given provider.
func New(p provider.Provider, stats *cache.Stats, cfg Config) *Fetcher {
	cfg.applyDefaults()
	if stats == nil {
		stats = cache.NewStats()
	}
	if p.Name() == provider.MockName {
		log.Printf("[WARN] using mock provider, all fetched data is synthetic")
	}
	norm := pipeline.NewNormalizer(p.Name(), cfg.PriceDigits)
	pipe := pipeline.New(norm, pipeline.NewValidator(), pipeline.NewFuzzyDetector(cfg.FuzzyTolerancePct))
	return &Fetcher{
		provider: p,
		limiter:  resilience.NewRateLimiter(cfg.MaxRequestsPerMinute),
		breaker:  resilience.NewCircuitBreaker(cfg.FailureThreshold, cfg.CoolDown),
		retrier:  resilience.NewRetrier(cfg.MaxRetries, cfg.BaseDelay),
		pipe:     pipe,
		stats:    stats,
	}
}

// FetchHistorical fetches and ingests bars for symbol. An empty result with a
// nil error means the provider had no data. A non-nil error means retries
// were exhausted or the breaker rejected the call; counters reflect which.
func (f *Fetcher) FetchHistorical(ctx context.Context, symbol, period string, interval model.Interval) ([]model.TimelinePoint, error) {
	var rows []provider.Row
	err := f.retrier.Do(ctx, func() error {
		if err := f.limiter.Acquire(ctx); err != nil {
			return resilience.Permanent(err)
		}
		return f.breaker.Execute(func() error {
			f.stats.IncProviderRequests()
			if f.provider.Name() == provider.MockName {
				f.stats.IncMockResponses()
			}
			fetched, err := f.provider.Fetch(ctx, symbol, period, interval)
			if err != nil {
				return err
			}
			rows = fetched
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			f.stats.IncCircuitOpen()
		} else {
			f.stats.IncProviderErrors()
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	currency := model.CurrencyForSymbol(symbol)
	points, batch := f.pipe.Run(rows, interval, currency, time.Now().UTC())
	f.stats.AddInvalidPoints(batch.Invalid + batch.Malformed)
	f.stats.AddDuplicates(batch.Duplicates)
	if batch.Invalid+batch.Duplicates+batch.Malformed > 0 {
		log.Printf("[INFO] ingest %s: %d accepted, %d invalid, %d duplicate, %d malformed",
			symbol, batch.Accepted, batch.Invalid, batch.Duplicates, batch.Malformed)
	}
	return points, nil
}

// FetchLatest fetches a short recent window and returns the newest point.
func (f *Fetcher) FetchLatest(ctx context.Context, symbol string) (*model.TimelinePoint, error) {
	points, err := f.FetchHistorical(ctx, symbol, "5d", model.Interval1d)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	latest := points[len(points)-1]
	return &latest, nil
}

// ProviderName reports which provider backs this fetcher.
func (f *Fetcher) ProviderName() string { return f.provider.Name() }
