package cache

import (
	"path"
	"sort"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// TierTTL maps each precision tier to how long a timeline stays fresh after a
// refresh.
type TierTTL map[model.PrecisionLevel]time.Duration

// DefaultTierTTL is the catch-all TTL table.
func DefaultTierTTL() TierTTL {
	return TierTTL{
		model.PrecisionUltraHigh: 15 * time.Minute,
		model.PrecisionHigh:      time.Hour,
		model.PrecisionMedium:    6 * time.Hour,
		model.PrecisionLow:       24 * time.Hour,
		model.PrecisionVeryLow:   168 * time.Hour,
	}
}

type policyRule struct {
	pattern  string
	priority int
	ttls     TierTTL
}

// TierPolicy decides when a timeline needs a refresh, based on the precision
// tier of its newest point. Per-symbol-pattern overrides are consulted in
// priority order; the default table is the lowest-priority catch-all.
type TierPolicy struct {
	defaults TierTTL
	rules    []policyRule
}

// NewTierPolicy creates a policy with the given default TTL table.
func NewTierPolicy(defaults TierTTL) *TierPolicy {
	if defaults == nil {
		defaults = DefaultTierTTL()
	}
	return &TierPolicy{defaults: defaults}
}

// AddOverride registers a TTL table for symbols matching pattern (path.Match
// globs, e.g. "*.L"). Higher priority wins.
func (p *TierPolicy) AddOverride(pattern string, priority int, ttls TierTTL) {
	p.rules = append(p.rules, policyRule{pattern: pattern, priority: priority, ttls: ttls})
	sort.SliceStable(p.rules, func(i, j int) bool { return p.rules[i].priority > p.rules[j].priority })
}

func (p *TierPolicy) ttlFor(symbol string, level model.PrecisionLevel) time.Duration {
	for _, rule := range p.rules {
		if ok, _ := path.Match(rule.pattern, symbol); ok {
			if ttl, found := rule.ttls[level]; found {
				return ttl
			}
		}
	}
	if ttl, found := p.defaults[level]; found {
		return ttl
	}
	return time.Hour
}

// NeedsRefresh reports whether tl is empty or its newest point's tier TTL has
// elapsed since the last refresh.
func (p *TierPolicy) NeedsRefresh(tl *model.Timeline, now time.Time) bool {
	if tl == nil || tl.Len() == 0 {
		return true
	}
	newest, ok := tl.Newest()
	if !ok {
		return true
	}
	ttl := p.ttlFor(tl.Symbol, newest.Precision)
	return now.Sub(tl.FetchedAt()) >= ttl
}
