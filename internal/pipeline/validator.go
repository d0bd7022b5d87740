package pipeline

import (
	"fmt"
	"time"

	"github.com/SautiereQDev/BoursaVision-sub003/internal/model"
)

// ClockSkewTolerance is how far a timestamp may sit past "now" before the
// future-timestamp rule rejects it. Provider and host clocks drift by seconds;
// five minutes keeps honest data while still catching bogus timestamps.
const ClockSkewTolerance = 5 * time.Minute

// Validator runs a fixed, ordered rule set over a point. Each broken OHLC
// relation is reported individually. Violations are collected, never raised.
type Validator struct {
	Now func() time.Time
}

// NewValidator creates a validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{Now: time.Now}
}

// Validate returns the list of violations for p; empty means valid.
func (v *Validator) Validate(p model.TimelinePoint) []string {
	var violations []string

	if bad, msg := less(p.High, p.Open); bad {
		violations = append(violations, "high < open: "+msg)
	}
	if bad, msg := less(p.High, p.Close); bad {
		violations = append(violations, "high < close: "+msg)
	}
	if bad, msg := less(p.High, p.Low); bad {
		violations = append(violations, "high < low: "+msg)
	}
	if bad, msg := less(p.Open, p.Low); bad {
		violations = append(violations, "low > open: "+msg)
	}
	if bad, msg := less(p.Close, p.Low); bad {
		violations = append(violations, "low > close: "+msg)
	}
	if p.Volume != nil && *p.Volume < 0 {
		violations = append(violations, fmt.Sprintf("volume negative: %d", *p.Volume))
	}
	if limit := v.Now().Add(ClockSkewTolerance); p.Timestamp.After(limit) {
		violations = append(violations, fmt.Sprintf("timestamp in the future: %s", p.Timestamp.Format(time.RFC3339)))
	}
	return violations
}

// less reports whether a < b, skipping the check when either side is missing.
func less(a, b *model.Price) (bool, string) {
	if a == nil || b == nil {
		return false, ""
	}
	if a.Amount.LessThan(b.Amount) {
		return true, fmt.Sprintf("%s vs %s", a.Amount, b.Amount)
	}
	return false, ""
}
