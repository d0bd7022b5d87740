package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/cache"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/fetcher"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/provider"
)

// Wires the real fetcher (rate limiter, breaker, retry, pipeline) over the
// mock provider and reads through the cache facade, memory-only.
func TestServiceWithMockProviderEndToEnd(t *testing.T) {
	stats := cache.NewStats()
	f := fetcher.New(provider.NewMockProvider(100.0), stats, fetcher.Config{
		MaxRequestsPerMinute: 600,
		BaseDelay:            time.Millisecond,
	})
	svc := cache.NewService(f, nil, cache.NewTierPolicy(cache.DefaultTierTTL()), stats, cache.Options{})

	ctx := context.Background()
	end := time.Now().UTC()
	start := end.AddDate(0, -2, 0)

	points, err := svc.GetMarketData(ctx, "AAPL", start, end, model.Interval1d)
	if err != nil {
		t.Fatalf("GetMarketData: %v", err)
	}
	if len(points) == 0 || len(points) > 30 {
		t.Fatalf("expected 1..30 daily points, got %d", len(points))
	}
	for i, p := range points {
		if p.Source != provider.MockName {
			t.Errorf("point %d source = %q, want %q", i, p.Source, provider.MockName)
		}
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			t.Errorf("point %d timestamp %v outside [%v, %v]", i, p.Timestamp, start, end)
		}
		if i > 0 && !points[i-1].Timestamp.Before(p.Timestamp) {
			t.Errorf("points not strictly ascending at %d", i)
		}
	}

	price, err := svc.GetLatestPrice(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetLatestPrice: %v", err)
	}
	if price.Amount.IsZero() || price.Amount.IsNegative() {
		t.Errorf("implausible latest price %s", price.Amount)
	}
	if price.Currency != "USD" {
		t.Errorf("currency = %q, want USD", price.Currency)
	}

	snap := svc.CacheStats()
	if snap["provider_requests"] < 1 {
		t.Errorf("expected at least one provider request, got %d", snap["provider_requests"])
	}
	if snap["mock_responses"] < 1 {
		t.Errorf("expected mock responses counted, got %d", snap["mock_responses"])
	}

	// Second read is served entirely from memory.
	before := snap["provider_requests"]
	if _, err := svc.GetMarketData(ctx, "AAPL", start, end, model.Interval1d); err != nil {
		t.Fatalf("second GetMarketData: %v", err)
	}
	if got := svc.CacheStats()["provider_requests"]; got != before {
		t.Errorf("cached read hit the provider, requests went %d -> %d", before, got)
	}
	if svc.CacheStats()["cache_hits"] < 1 {
		t.Errorf("expected a cache hit on second read")
	}
}
