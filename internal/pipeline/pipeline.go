package pipeline

import (
	"log"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
	"github.com/SautiereQDev/BoursaVision-sub003/internal/provider"
)

// Outcome tags the result of processing one raw row.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalid
	RejectedDuplicate
)

func (o Outcome) String() string {
	switch o {
	case RejectedInvalid:
		return "rejected_invalid"
	case RejectedDuplicate:
		return "rejected_duplicate"
	default:
		return "accepted"
	}
}

// Result is the per-row pipeline outcome. Point is set only when Accepted;
// Violations only when RejectedInvalid.
type Result struct {
	Outcome    Outcome
	Point      model.TimelinePoint
	Violations []string
}

// BatchStats summarizes one pipeline run.
type BatchStats struct {
	Accepted   int
	Invalid    int
	Duplicates int
	Malformed  int // rows the normalizer rejected outright
}

// Pipeline runs the three ingestion stages in order: normalize, validate,
// deduplicate. Invalid and duplicate points are dropped and counted, never
// raised to the caller.
type Pipeline struct {
	normalizer *Normalizer
	validator  *Validator
	detector   DuplicateDetector
}

// New assembles a pipeline from its stages.
func New(n *Normalizer, v *Validator, d DuplicateDetector) *Pipeline {
	return &Pipeline{normalizer: n, validator: v, detector: d}
}

// Process runs one row through all stages.
func (pl *Pipeline) Process(row provider.Row, interval model.Interval, currency string, now time.Time) (Result, error) {
	point, err := pl.normalizer.Normalize(row, interval, currency, now)
	if err != nil {
		return Result{}, err
	}
	if violations := pl.validator.Validate(point); len(violations) > 0 {
		return Result{Outcome: RejectedInvalid, Violations: violations}, nil
	}
	if pl.detector.IsDuplicate(row.Symbol, point) {
		return Result{Outcome: RejectedDuplicate}, nil
	}
	pl.detector.Admit(row.Symbol, point)
	return Result{Outcome: Accepted, Point: point}, nil
}

// Run processes a batch of rows for one symbol, starting a fresh
// deduplication session. Rejections are logged and counted.
func (pl *Pipeline) Run(rows []provider.Row, interval model.Interval, currency string, now time.Time) ([]model.TimelinePoint, BatchStats) {
	pl.detector.Reset()

	var stats BatchStats
	points := make([]model.TimelinePoint, 0, len(rows))
	for _, row := range rows {
		res, err := pl.Process(row, interval, currency, now)
		if err != nil {
			stats.Malformed++
			log.Printf("[WARN] drop malformed row: %v", err)
			continue
		}
		switch res.Outcome {
		case Accepted:
			stats.Accepted++
			points = append(points, res.Point)
		case RejectedInvalid:
			stats.Invalid++
			log.Printf("[WARN] drop invalid point %s@%s: %v", row.Symbol, row.Timestamp.Format(time.RFC3339), res.Violations)
		case RejectedDuplicate:
			stats.Duplicates++
		}
	}
	return points, stats
}
