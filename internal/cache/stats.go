package cache

import "sync/atomic"

// Stats holds the service-wide counters. Counters are atomic so concurrent
// refreshes can update them without coordination; they live as long as the
// owning service and reset only on explicit operator action.
type Stats struct {
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	dbReads          atomic.Int64
	dbWrites         atomic.Int64
	providerRequests atomic.Int64
	providerErrors   atomic.Int64
	circuitOpen      atomic.Int64
	invalidPoints    atomic.Int64
	duplicates       atomic.Int64
	evictions        atomic.Int64
	mockResponses    atomic.Int64
}

// NewStats creates a zeroed counter set.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) IncCacheHits()        { s.cacheHits.Add(1) }
func (s *Stats) IncCacheMisses()      { s.cacheMisses.Add(1) }
func (s *Stats) IncDBReads()          { s.dbReads.Add(1) }
func (s *Stats) IncDBWrites()         { s.dbWrites.Add(1) }
func (s *Stats) IncProviderRequests() { s.providerRequests.Add(1) }
func (s *Stats) IncProviderErrors()   { s.providerErrors.Add(1) }
func (s *Stats) IncCircuitOpen()      { s.circuitOpen.Add(1) }
func (s *Stats) IncMockResponses()    { s.mockResponses.Add(1) }

func (s *Stats) AddInvalidPoints(n int) { s.invalidPoints.Add(int64(n)) }
func (s *Stats) AddDuplicates(n int)    { s.duplicates.Add(int64(n)) }
func (s *Stats) AddEvictions(n int)     { s.evictions.Add(int64(n)) }

// ProviderRequests returns the provider call count.
func (s *Stats) ProviderRequests() int64 { return s.providerRequests.Load() }

// Snapshot returns a point-in-time copy of all counters.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"cache_hits":        s.cacheHits.Load(),
		"cache_misses":      s.cacheMisses.Load(),
		"db_reads":          s.dbReads.Load(),
		"db_writes":         s.dbWrites.Load(),
		"provider_requests": s.providerRequests.Load(),
		"provider_errors":   s.providerErrors.Load(),
		"circuit_open":      s.circuitOpen.Load(),
		"invalid_points":    s.invalidPoints.Load(),
		"duplicates":        s.duplicates.Load(),
		"evictions":         s.evictions.Load(),
		"mock_responses":    s.mockResponses.Load(),
	}
}

// Reset zeroes every counter. Operator action only.
func (s *Stats) Reset() {
	s.cacheHits.Store(0)
	s.cacheMisses.Store(0)
	s.dbReads.Store(0)
	s.dbWrites.Store(0)
	s.providerRequests.Store(0)
	s.providerErrors.Store(0)
	s.circuitOpen.Store(0)
	s.invalidPoints.Store(0)
	s.duplicates.Store(0)
	s.evictions.Store(0)
	s.mockResponses.Store(0)
}
