package pipeline

import (
	"testing"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

func barAt(t *testing.T, ts time.Time, open, high, low, close string) model.TimelinePoint {
	t.Helper()
	return model.TimelinePoint{
		Timestamp: ts,
		Open:      testPrice(t, open),
		High:      testPrice(t, high),
		Low:       testPrice(t, low),
		Close:     testPrice(t, close),
		Interval:  model.Interval1d,
	}
}

func TestExactDetector(t *testing.T) {
	d := NewExactDetector()
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	p := barAt(t, ts, "100", "110", "95", "105")

	if d.IsDuplicate("AAPL", p) {
		t.Fatal("nothing admitted yet")
	}
	d.Admit("AAPL", p)
	if !d.IsDuplicate("AAPL", p) {
		t.Fatal("same key should be duplicate")
	}

	// Same key, different symbol: not a duplicate.
	if d.IsDuplicate("MSFT", p) {
		t.Error("different symbol should not match")
	}

	// Different interval: not a duplicate.
	weekly := p
	weekly.Interval = model.Interval1wk
	if d.IsDuplicate("AAPL", weekly) {
		t.Error("different interval should not match")
	}

	d.Reset()
	if d.IsDuplicate("AAPL", p) {
		t.Error("reset should clear the session")
	}
}

func TestFuzzyDetector_WithinTolerance(t *testing.T) {
	d := NewFuzzyDetector(1.0) // 1%
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	d.Admit("AAPL", barAt(t, ts, "100", "110", "95", "105"))

	// All prices within 1% of their averages.
	near := barAt(t, ts, "100.5", "110.5", "95.2", "105.3")
	if !d.IsDuplicate("AAPL", near) {
		t.Error("prices within tolerance should be flagged duplicate")
	}

	// Close differs by ~5%: beyond tolerance.
	far := barAt(t, ts, "100", "110", "95", "110")
	if d.IsDuplicate("AAPL", far) {
		t.Error("prices beyond tolerance should not be flagged")
	}
}

func TestFuzzyDetector_KeyFieldsMustMatch(t *testing.T) {
	d := NewFuzzyDetector(1.0)
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	d.Admit("AAPL", barAt(t, ts, "100", "110", "95", "105"))

	shifted := barAt(t, ts.AddDate(0, 0, 1), "100", "110", "95", "105")
	if d.IsDuplicate("AAPL", shifted) {
		t.Error("different timestamp should never be a duplicate")
	}
}

func TestFuzzyDetector_MissingPricesSkipped(t *testing.T) {
	d := NewFuzzyDetector(1.0)
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	admitted := barAt(t, ts, "100", "110", "95", "105")
	admitted.Open = nil
	d.Admit("AAPL", admitted)

	// Open is present only on one side; remaining pairs agree.
	candidate := barAt(t, ts, "100", "110", "95", "105")
	if !d.IsDuplicate("AAPL", candidate) {
		t.Error("a price missing on one side is skipped, not mismatched")
	}
}

func TestFuzzyDetector_ZeroRequiresExactEquality(t *testing.T) {
	d := NewFuzzyDetector(50.0) // generous tolerance
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	admitted := barAt(t, ts, "0", "110", "95", "105")
	d.Admit("AAPL", admitted)

	nearZero := barAt(t, ts, "0.01", "110", "95", "105")
	if d.IsDuplicate("AAPL", nearZero) {
		t.Error("zero on either side demands exact equality")
	}

	exactZero := barAt(t, ts, "0", "110", "95", "105")
	if !d.IsDuplicate("AAPL", exactZero) {
		t.Error("exactly equal zero prices should match")
	}
}
