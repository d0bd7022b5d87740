package model

import (
	"testing"
	"time"
)

func TestPrecisionFromAge_Boundaries(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want PrecisionLevel
	}{
		{12 * time.Hour, PrecisionUltraHigh},
		{24 * time.Hour, PrecisionHigh},
		{48 * time.Hour, PrecisionHigh},
		{168 * time.Hour, PrecisionMedium},
		{360 * time.Hour, PrecisionMedium},
		{720 * time.Hour, PrecisionLow},
		{4380 * time.Hour, PrecisionLow},
		{8760 * time.Hour, PrecisionVeryLow},
		{10000 * time.Hour, PrecisionVeryLow},
	}
	for _, tt := range tests {
		if got := PrecisionFromAge(tt.age); got != tt.want {
			t.Errorf("age %v: expected %s, got %s", tt.age, tt.want, got)
		}
	}
}

func TestPrecisionAtLeast(t *testing.T) {
	if !PrecisionUltraHigh.AtLeast(PrecisionVeryLow) {
		t.Error("ultra_high should be at least very_low")
	}
	if !PrecisionMedium.AtLeast(PrecisionMedium) {
		t.Error("a tier should be at least itself")
	}
	if PrecisionLow.AtLeast(PrecisionHigh) {
		t.Error("low should not be at least high")
	}
}

func TestCurrencyForSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"VOD.L", "GBP"},
		{"AIR.PA", "EUR"},
		{"SAP.DE", "EUR"},
		{"ASML.AS", "EUR"},
		{"BMW.F", "EUR"},
		{"SHOP.TO", "CAD"},
		{"AAPL", "USD"},
		{"^GSPC", "USD"},
	}
	for _, tt := range tests {
		if got := CurrencyForSymbol(tt.symbol); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.symbol, tt.want, got)
		}
	}
}
