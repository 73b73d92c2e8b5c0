package analytics

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
	domsvc "PricePulse/internal/domain/service"
)

// OutcomeRegimeDetector classifies the regime by majority vote over realised
// outcomes in the days before the scoring date.
type OutcomeRegimeDetector struct {
	policy RegimePolicy
}

func NewOutcomeRegimeDetector(p Policy) *OutcomeRegimeDetector {
	return &OutcomeRegimeDetector{policy: p.Regime}
}

// Detect only looks at outcomes dated strictly before asOf's day, so a rerun
// on the same snapshot sees the same regime even after new outcomes land.
func (d *OutcomeRegimeDetector) Detect(_ context.Context, outcomes []models.Outcome, asOf time.Time) (models.RegimeReading, error) {
	end := models.DayOf(asOf)
	start := end.AddDate(0, 0, -d.policy.WindowDays)

	var r models.RegimeReading
	for _, o := range outcomes {
		day := models.DayOf(o.Date)
		if day.Before(start) || !day.Before(end) {
			continue
		}
		switch o.ActualChange {
		case models.DirectionRise:
			r.Rises++
		case models.DirectionFall:
			r.Falls++
		}
	}
	r.Samples = r.Rises + r.Falls
	r.Regime = models.RegimeNeutral
	if r.Samples == 0 {
		return r, nil
	}
	r.RiseShare = float64(r.Rises) / float64(r.Samples)
	r.FallShare = float64(r.Falls) / float64(r.Samples)
	if r.Samples < d.policy.MinSamples {
		return r, nil
	}
	switch {
	case r.RiseShare >= d.policy.Majority:
		r.Regime = models.RegimeBullish
	case r.FallShare >= d.policy.Majority:
		r.Regime = models.RegimeBearish
	}
	return r, nil
}

var _ domsvc.RegimeDetector = (*OutcomeRegimeDetector)(nil)
