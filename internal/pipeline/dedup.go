package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// DuplicateDetector decides whether a point repeats one already admitted in
// the current ingestion session. Detectors are session-scoped: Reset clears
// admitted state between batches; the repository's unique constraint is the
// durable backstop.
type DuplicateDetector interface {
	IsDuplicate(symbol string, p model.TimelinePoint) bool
	Admit(symbol string, p model.TimelinePoint)
	Reset()
}

type dedupKey struct {
	Symbol string
	Key    model.PointKey
}

// ExactDetector flags a duplicate iff (symbol, timestamp, interval) matches an
// already-admitted point.
type ExactDetector struct {
	seen map[dedupKey]struct{}
}

// NewExactDetector creates an empty exact-match detector.
func NewExactDetector() *ExactDetector {
	return &ExactDetector{seen: make(map[dedupKey]struct{})}
}

func (d *ExactDetector) IsDuplicate(symbol string, p model.TimelinePoint) bool {
	_, ok := d.seen[dedupKey{Symbol: symbol, Key: p.Key()}]
	return ok
}

func (d *ExactDetector) Admit(symbol string, p model.TimelinePoint) {
	d.seen[dedupKey{Symbol: symbol, Key: p.Key()}] = struct{}{}
}

func (d *ExactDetector) Reset() {
	d.seen = make(map[dedupKey]struct{})
}

// FuzzyDetector flags a duplicate when the key fields match and every OHLC
// pair present on both sides agrees within a percentage of their average.
// A zero price on either side demands exact equality; prices missing on
// either side are skipped, not mismatched.
type FuzzyDetector struct {
	tolerance decimal.Decimal // e.g. 0.01 for 1%
	seen      map[dedupKey][]model.TimelinePoint
}

// NewFuzzyDetector creates a detector with tolerancePercent (1 = 1%).
func NewFuzzyDetector(tolerancePercent float64) *FuzzyDetector {
	return &FuzzyDetector{
		tolerance: decimal.NewFromFloat(tolerancePercent / 100),
		seen:      make(map[dedupKey][]model.TimelinePoint),
	}
}

func (d *FuzzyDetector) IsDuplicate(symbol string, p model.TimelinePoint) bool {
	for _, admitted := range d.seen[dedupKey{Symbol: symbol, Key: p.Key()}] {
		if d.pricesMatch(admitted, p) {
			return true
		}
	}
	return false
}

func (d *FuzzyDetector) Admit(symbol string, p model.TimelinePoint) {
	key := dedupKey{Symbol: symbol, Key: p.Key()}
	d.seen[key] = append(d.seen[key], p)
}

func (d *FuzzyDetector) Reset() {
	d.seen = make(map[dedupKey][]model.TimelinePoint)
}

func (d *FuzzyDetector) pricesMatch(a, b model.TimelinePoint) bool {
	pairs := [][2]*model.Price{
		{a.Open, b.Open},
		{a.High, b.High},
		{a.Low, b.Low},
		{a.Close, b.Close},
	}
	for _, pair := range pairs {
		p1, p2 := pair[0], pair[1]
		if p1 == nil || p2 == nil {
			continue
		}
		if !d.withinTolerance(p1.Amount, p2.Amount) {
			return false
		}
	}
	return true
}

// withinTolerance checks |p1-p2| <= tolerance*(p1+p2)/2, requiring exact
// equality when either price is exactly zero.
func (d *FuzzyDetector) withinTolerance(p1, p2 decimal.Decimal) bool {
	if p1.IsZero() || p2.IsZero() {
		return p1.Equal(p2)
	}
	diff := p1.Sub(p2).Abs()
	avg := p1.Add(p2).Div(decimal.NewFromInt(2))
	return diff.LessThanOrEqual(d.tolerance.Mul(avg))
}
