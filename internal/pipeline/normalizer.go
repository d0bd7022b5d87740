package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/provider"
)

// DefaultPriceDigits is the decimal precision prices are rounded to.
const DefaultPriceDigits = 8

// Normalizer converts raw provider rows into canonical timeline points.
// Per-field failures yield a nil field, never zero; only a missing symbol or
// timestamp is a hard error.
type Normalizer struct {
	Digits int32  // decimal places for price rounding
	Source string // provider name recorded on every point
}

// NewNormalizer creates a normalizer tagging points with the given source.
func NewNormalizer(source string, digits int32) *Normalizer {
	if digits <= 0 {
		digits = DefaultPriceDigits
	}
	return &Normalizer{Digits: digits, Source: source}
}

// Normalize builds a TimelinePoint from a raw row. The timestamp is forced to
// UTC, daily and coarser bars are truncated to midnight, and each price is
// rounded half-up to the configured precision.
func (n *Normalizer) Normalize(row provider.Row, interval model.Interval, currency string, now time.Time) (model.TimelinePoint, error) {
	if row.Symbol == "" {
		return model.TimelinePoint{}, errors.New("normalize: missing symbol")
	}
	if row.Timestamp.IsZero() {
		return model.TimelinePoint{}, fmt.Errorf("normalize %s: missing timestamp", row.Symbol)
	}

	ts := row.Timestamp.UTC()
	if !interval.Intraday() {
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}

	return model.TimelinePoint{
		Timestamp: ts,
		Open:      n.price(row.Open, currency),
		High:      n.price(row.High, currency),
		Low:       n.price(row.Low, currency),
		Close:     n.price(row.Close, currency),
		AdjClose:  n.price(row.AdjClose, currency),
		Volume:    volume(row.Volume),
		Interval:  interval,
		Source:    n.Source,
		Precision: model.PrecisionFromAge(now.Sub(ts)),
		CreatedAt: now,
	}, nil
}

func (n *Normalizer) price(v *float64, currency string) *model.Price {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	amount := decimal.NewFromFloat(*v).Round(n.Digits)
	p, err := model.NewPrice(amount, currency)
	if err != nil {
		return nil
	}
	return &p
}

func volume(v *float64) *int64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	n := int64(math.Round(*v))
	return &n
}
