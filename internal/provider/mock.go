package provider

import (
	"context"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// MockName is the source tag mock data carries so it is never confused with
// real provider data.
const MockName = "mock"

// MockProvider returns a deterministic bounded series for development and for
// running without provider access. Selected only by explicit configuration.
type MockProvider struct {
	BasePrice float64
	Bars      int
	Rows      []Row // when set, returned verbatim
}

// NewMockProvider creates a mock producing a small daily series around basePrice.
func NewMockProvider(basePrice float64) *MockProvider {
	return &MockProvider{BasePrice: basePrice, Bars: 30}
}

func (m *MockProvider) Name() string { return MockName }

func (m *MockProvider) Fetch(_ context.Context, symbol, _ string, _ model.Interval) ([]Row, error) {
	if m.Rows != nil {
		return m.Rows, nil
	}
	count := m.Bars
	if count <= 0 || count > 90 {
		count = 30
	}
	base := m.BasePrice
	if base <= 0 {
		base = 100
	}

	now := time.Now().UTC()
	rows := make([]Row, 0, count)
	for i := 0; i < count; i++ {
		p := base * (1 + float64(i-count/2)*0.001)
		o, h, l, c := p*0.999, p*1.005, p*0.995, p
		v := 1_000_000.0
		rows = append(rows, Row{
			Symbol:    symbol,
			Timestamp: now.AddDate(0, 0, -(count - i)),
			Open:      &o,
			High:      &h,
			Low:       &l,
			Close:     &c,
			Volume:    &v,
		})
	}
	return rows, nil
}
