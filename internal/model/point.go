package model

import "time"

// Interval identifies the bar width of a data point.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

// Intraday reports whether the interval is finer than one day.
// Daily and coarser bars are truncated to midnight UTC at ingestion.
func (i Interval) Intraday() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h:
		return true
	}
	return false
}

// ValidInterval reports whether s is a recognized interval token.
func ValidInterval(s string) bool {
	switch Interval(s) {
	case Interval1m, Interval5m, Interval15m, Interval30m, Interval1h,
		Interval1d, Interval1wk, Interval1mo:
		return true
	}
	return false
}

// PrecisionLevel classifies a point's freshness at ingestion time.
// Higher values are finer tiers; the tier is assigned once and never recomputed.
type PrecisionLevel int

const (
	PrecisionVeryLow PrecisionLevel = iota
	PrecisionLow
	PrecisionMedium
	PrecisionHigh
	PrecisionUltraHigh
)

func (p PrecisionLevel) String() string {
	switch p {
	case PrecisionUltraHigh:
		return "ultra_high"
	case PrecisionHigh:
		return "high"
	case PrecisionMedium:
		return "medium"
	case PrecisionLow:
		return "low"
	default:
		return "very_low"
	}
}

// AtLeast reports whether p is an equal-or-finer tier than other.
func (p PrecisionLevel) AtLeast(other PrecisionLevel) bool {
	return p >= other
}

// PrecisionFromAge classifies a point age into a precision tier.
func PrecisionFromAge(age time.Duration) PrecisionLevel {
	switch {
	case age < 24*time.Hour:
		return PrecisionUltraHigh
	case age < 168*time.Hour:
		return PrecisionHigh
	case age < 720*time.Hour:
		return PrecisionMedium
	case age < 8760*time.Hour:
		return PrecisionLow
	default:
		return PrecisionVeryLow
	}
}

// PointKey is the identity of a point within a timeline.
type PointKey struct {
	Unix     int64
	Interval Interval
}

// TimelinePoint is one OHLCV bar. Points are immutable once built; they are
// created only by the ingestion pipeline or by repository hydration.
type TimelinePoint struct {
	Timestamp time.Time // always UTC
	Open      *Price
	High      *Price
	Low       *Price
	Close     *Price
	AdjClose  *Price
	Volume    *int64
	Interval  Interval
	Source    string
	Precision PrecisionLevel
	CreatedAt time.Time
}

// Key returns the (timestamp, interval) identity used for deduplication.
func (p TimelinePoint) Key() PointKey {
	return PointKey{Unix: p.Timestamp.Unix(), Interval: p.Interval}
}
