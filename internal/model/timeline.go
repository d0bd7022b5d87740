package model

import (
	"sort"
	"sync"
	"time"
)

// Timeline owns the ordered, deduplicated set of points for one symbol and
// currency. All mutation goes through Upsert, which is idempotent, so
// concurrent refreshes of different symbols never corrupt each other and
// re-applying the same batch is harmless.
type Timeline struct {
	Symbol   string
	Currency string

	mu        sync.RWMutex
	points    map[PointKey]TimelinePoint
	fetchedAt time.Time
}

// NewTimeline creates an empty timeline for a symbol.
func NewTimeline(symbol, currency string) *Timeline {
	return &Timeline{
		Symbol:   symbol,
		Currency: currency,
		points:   make(map[PointKey]TimelinePoint),
	}
}

// Upsert inserts a point under its (timestamp, interval) key. An existing key
// is replaced only when the new point's precision tier is equal or finer;
// otherwise the call is a no-op. Reports whether the point was stored.
func (t *Timeline) Upsert(p TimelinePoint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := p.Key()
	if existing, ok := t.points[key]; ok {
		if !p.Precision.AtLeast(existing.Precision) {
			return false
		}
	}
	t.points[key] = p
	return true
}

// Len returns the number of points held.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.points)
}

// FetchedAt returns when the timeline was last refreshed from the provider.
func (t *Timeline) FetchedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fetchedAt
}

// SetFetchedAt records a completed refresh.
func (t *Timeline) SetFetchedAt(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchedAt = at
}

// Points returns all points in ascending timestamp order.
func (t *Timeline) Points() []TimelinePoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedLocked()
}

func (t *Timeline) sortedLocked() []TimelinePoint {
	out := make([]TimelinePoint, 0, len(t.points))
	for _, p := range t.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Interval < out[j].Interval
	})
	return out
}

// Newest returns the point with the latest timestamp.
func (t *Timeline) Newest() (TimelinePoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var newest TimelinePoint
	found := false
	for _, p := range t.points {
		if !found || p.Timestamp.After(newest.Timestamp) {
			newest = p
			found = true
		}
	}
	return newest, found
}

// LatestPrice returns the close of the latest point at or before asOf.
// A nil asOf means "latest overall". Points without a close are skipped.
func (t *Timeline) LatestPrice(asOf *time.Time) (Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best TimelinePoint
	found := false
	for _, p := range t.points {
		if p.Close == nil {
			continue
		}
		if asOf != nil && p.Timestamp.After(*asOf) {
			continue
		}
		if !found || p.Timestamp.After(best.Timestamp) {
			best = p
			found = true
		}
	}
	if !found {
		return Price{}, false
	}
	return *best.Close, true
}

// PointsInRange returns points with start <= timestamp <= end in ascending
// timestamp order.
func (t *Timeline) PointsInRange(start, end time.Time) []TimelinePoint {
	all := t.Points()
	out := make([]TimelinePoint, 0, len(all))
	for _, p := range all {
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Prune evicts oldest points until at most max remain. Returns the number
// evicted. A non-positive max disables pruning.
func (t *Timeline) Prune(max int) int {
	if max <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	excess := len(t.points) - max
	if excess <= 0 {
		return 0
	}
	sorted := t.sortedLocked()
	for _, p := range sorted[:excess] {
		delete(t.points, p.Key())
	}
	return excess
}

// DeleteBefore removes points strictly older than cutoff, returning the count.
func (t *Timeline) DeleteBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, p := range t.points {
		if p.Timestamp.Before(cutoff) {
			delete(t.points, key)
			removed++
		}
	}
	return removed
}
