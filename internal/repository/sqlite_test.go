package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func storedPoint(t *testing.T, ts time.Time, close string, precision model.PrecisionLevel) model.TimelinePoint {
	t.Helper()
	d, err := decimal.NewFromString(close)
	if err != nil {
		t.Fatalf("decimal: %v", err)
	}
	price, err := model.NewPrice(d, "USD")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	vol := int64(5000)
	return model.TimelinePoint{
		Timestamp: ts.UTC(),
		Close:     &price,
		Volume:    &vol,
		Interval:  model.Interval1d,
		Source:    "yahoo",
		Precision: precision,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tl := model.NewTimeline("AAPL", "USD")
	points := []model.TimelinePoint{
		storedPoint(t, base, "180.25", model.PrecisionHigh),
		storedPoint(t, base.AddDate(0, 0, 1), "181.5", model.PrecisionHigh),
	}
	for _, p := range points {
		tl.Upsert(p)
	}
	tl.SetFetchedAt(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))

	if err := r.BulkSavePoints(ctx, "AAPL", points); err != nil {
		t.Fatalf("save points: %v", err)
	}
	if err := r.SaveTimeline(ctx, tl); err != nil {
		t.Fatalf("save timeline: %v", err)
	}

	loaded, err := r.GetTimeline(ctx, "AAPL")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a timeline")
	}
	if loaded.Currency != "USD" || loaded.Len() != 2 {
		t.Fatalf("unexpected timeline: currency=%s len=%d", loaded.Currency, loaded.Len())
	}
	if !loaded.FetchedAt().Equal(tl.FetchedAt()) {
		t.Errorf("fetched_at mismatch: %v vs %v", loaded.FetchedAt(), tl.FetchedAt())
	}
	price, ok := loaded.LatestPrice(nil)
	if !ok || price.Amount.String() != "181.5" {
		t.Errorf("expected latest close 181.5, got %v %v", price.Amount, ok)
	}

	// Unknown symbol: (nil, nil).
	missing, err := r.GetTimeline(ctx, "NOPE")
	if err != nil || missing != nil {
		t.Fatalf("unknown symbol should be (nil, nil), got %v %v", missing, err)
	}
}

func TestBulkSavePoints_IdempotentUpsert(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	points := []model.TimelinePoint{storedPoint(t, base, "100", model.PrecisionHigh)}
	if err := r.BulkSavePoints(ctx, "AAPL", points); err != nil {
		t.Fatalf("first save: %v", err)
	}
	// Concurrent double-fetch writes the same rows again; must converge.
	if err := r.BulkSavePoints(ctx, "AAPL", points); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := r.GetTimeline(ctx, "AAPL")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		// Timeline header row is written by SaveTimeline; points alone don't
		// create it.
		t.Skip("no timeline header expected without SaveTimeline")
	}
}

func TestBulkSavePoints_PrecisionGuard(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tl := model.NewTimeline("AAPL", "USD")
	if err := r.SaveTimeline(ctx, tl); err != nil {
		t.Fatalf("save timeline: %v", err)
	}

	fine := storedPoint(t, base, "100", model.PrecisionUltraHigh)
	if err := r.BulkSavePoints(ctx, "AAPL", []model.TimelinePoint{fine}); err != nil {
		t.Fatalf("save fine: %v", err)
	}

	// A coarser tier must not overwrite the stored row.
	coarse := storedPoint(t, base, "200", model.PrecisionLow)
	if err := r.BulkSavePoints(ctx, "AAPL", []model.TimelinePoint{coarse}); err != nil {
		t.Fatalf("save coarse: %v", err)
	}

	loaded, err := r.GetTimeline(ctx, "AAPL")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	price, ok := loaded.LatestPrice(nil)
	if !ok || price.Amount.String() != "100" {
		t.Errorf("coarser precision must not replace, got %v", price.Amount)
	}
}

func TestDeleteOldPoints(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	var points []model.TimelinePoint
	for i := 0; i < 10; i++ {
		points = append(points, storedPoint(t, base.AddDate(0, 0, i), "100", model.PrecisionHigh))
	}
	if err := r.BulkSavePoints(ctx, "AAPL", points); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := r.DeleteOldPoints(ctx, "AAPL", base.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("expected 4 deleted, got %d", deleted)
	}

	latest, err := r.GetLatestPoint(ctx, "AAPL")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || !latest.Timestamp.Equal(base.AddDate(0, 0, 9)) {
		t.Errorf("unexpected latest point: %+v", latest)
	}
}

func TestGetLatestPoint_Unknown(t *testing.T) {
	r := testRepo(t)
	p, err := r.GetLatestPoint(context.Background(), "NOPE")
	if err != nil || p != nil {
		t.Fatalf("unknown symbol should be (nil, nil), got %v %v", p, err)
	}
}
