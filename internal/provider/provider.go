package provider

import (
	"context"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// Row is one raw bar as delivered by a provider, before normalization.
// Nil fields mean the provider had no value for them.
type Row struct {
	Symbol    string
	Timestamp time.Time
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	AdjClose  *float64
	Volume    *float64
}

// Provider fetches raw time-series rows for a symbol. An empty row slice is a
// valid "no data" response, distinct from an error.
type Provider interface {
	Fetch(ctx context.Context, symbol, period string, interval model.Interval) ([]Row, error)
	Name() string
}
