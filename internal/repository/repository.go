package repository

import (
	"context"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// TimelineRepository persists timelines across restarts. GetTimeline and
// GetLatestPoint return (nil, nil) when the symbol is unknown. Point writes
// must be idempotent under concurrent double-fetch of the same symbol.
type TimelineRepository interface {
	GetTimeline(ctx context.Context, symbol string) (*model.Timeline, error)
	SaveTimeline(ctx context.Context, tl *model.Timeline) error
	BulkSavePoints(ctx context.Context, symbol string, points []model.TimelinePoint) error
	DeleteOldPoints(ctx context.Context, symbol string, olderThan time.Time) (int64, error)
	GetLatestPoint(ctx context.Context, symbol string) (*model.TimelinePoint, error)
}
