package analytics

import (
	"fmt"
	"math"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/features"
)

// Locker reports whether an entity is suppressed on a date.
type Locker interface {
	IsLocked(e models.Entity, date time.Time) bool
}

// ScoreInput is everything one scoring pass depends on.
type ScoreInput struct {
	Snapshot   models.Snapshot
	Momentum   []models.Momentum
	Thresholds models.ThresholdSet
	Protection Locker
	Regime     models.RegimeReading
	Now        time.Time
}

// Scorer turns momentum into predictions under a fixed Policy.
type Scorer struct {
	policy Policy
}

func NewScorer(p Policy) *Scorer {
	return &Scorer{policy: p}
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy { return s.policy }

type candidate struct {
	entity   models.Entity
	momentum models.Momentum
	locked   bool
	pressure float64
	velocity float64
	score    float64
}

// Score produces one prediction per entity that has momentum. Locked entities
// get a zero score and no direction. If no entity is unlocked the result is empty.
func (s *Scorer) Score(in ScoreInput) ([]models.Prediction, error) {
	date := in.Snapshot.Date()
	byID := in.Snapshot.Index()

	cands := make([]candidate, 0, len(in.Momentum))
	active := 0
	for _, m := range in.Momentum {
		e, ok := byID[m.EntityID]
		if !ok {
			continue
		}
		if err := checkEntity(e); err != nil {
			return nil, err
		}
		locked := in.Protection != nil && in.Protection.IsLocked(e, date)
		if !locked {
			active++
		}
		cands = append(cands, candidate{entity: e, momentum: m, locked: locked})
	}
	if active == 0 {
		return []models.Prediction{}, nil
	}

	// population statistics over the unlocked entities only
	rawPressure := make([]float64, 0, active)
	velocities := make([]float64, 0, active)
	for _, c := range cands {
		if c.locked {
			continue
		}
		rawPressure = append(rawPressure, float64(c.momentum.NetNow)/math.Max(c.entity.Ownership, s.policy.MinOwnership))
		velocities = append(velocities, c.momentum.Velocity)
	}
	pressure := features.Saturate(rawPressure)
	velScale := features.MeanAbs(velocities)

	w := s.policy.Weights
	mags := make([]float64, 0, active)
	j := 0
	for i := range cands {
		c := &cands[i]
		if c.locked {
			continue
		}
		c.pressure = pressure[j]
		j++
		if velScale > 0 {
			c.velocity = features.Clip(c.momentum.Velocity/velScale, -s.policy.VelocityCap, s.policy.VelocityCap)
		}
		raw := w.Pressure*c.pressure + w.Velocity*c.velocity + w.Trend*c.momentum.Trend
		c.score = s.dampen(raw, in.Regime.Regime)
		mags = append(mags, math.Abs(c.score))
	}
	ref := features.Quantile(mags, s.policy.ConfidencePercentile)

	out := make([]models.Prediction, 0, len(cands))
	for _, c := range cands {
		p := models.Prediction{
			EntityID:         c.entity.ID,
			Name:             c.entity.Name,
			Date:             date,
			Direction:        models.DirectionNone,
			AlertLevel:       models.AlertNone,
			Bucket:           models.BucketFor(c.entity.Ownership),
			Ownership:        c.entity.Ownership,
			Regime:           in.Regime.Regime,
			Locked:           c.locked,
			ThresholdVersion: in.Thresholds.Version,
			PolicyVersion:    s.policy.Version,
			CreatedAt:        in.Now,
		}
		if !c.locked {
			p.Pressure = c.pressure
			p.Velocity = c.velocity
			p.Trend = c.momentum.Trend
			p.RawScore = c.score
			p.Direction = s.direction(c.score)
			p.Confidence = s.confidence(c, ref, velScale)
			p.AlertLevel = in.Thresholds.Classify(p.Bucket, p.Direction, p.Confidence)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Scorer) dampen(score float64, regime models.Regime) float64 {
	switch regime {
	case models.RegimeBullish:
		if score < 0 {
			return score * s.policy.Regime.CounterDampen
		}
	case models.RegimeBearish:
		if score > 0 {
			return score * s.policy.Regime.CounterDampen
		}
	default:
		return score * s.policy.Regime.NeutralDampen
	}
	return score
}

func (s *Scorer) direction(score float64) models.Direction {
	switch {
	case score > s.policy.DeadZone:
		return models.DirectionRise
	case score < -s.policy.DeadZone:
		return models.DirectionFall
	default:
		return models.DirectionNone
	}
}

func (s *Scorer) confidence(c candidate, ref, velScale float64) float64 {
	if ref <= 0 {
		return 0
	}
	bound := s.policy.ConfidenceBound
	conf := features.Clip(math.Abs(c.score)/ref, 0, bound)

	if v := s.policy.Volatility; v.Enabled && c.momentum.Samples >= v.MinSamples {
		switch {
		case c.momentum.Volatility > v.NoisyRatio:
			conf *= v.NoisyFactor
		case c.momentum.Volatility < v.StableRatio:
			conf *= v.StableFactor
		}
	}
	if cr := s.policy.Crowd; cr.Enabled && c.entity.Ownership > cr.MinOwnership &&
		math.Abs(c.momentum.Velocity) < cr.VelocityRatio*velScale {
		conf *= cr.Factor
	}
	return features.Clip(conf, 0, bound)
}

func checkEntity(e models.Entity) error {
	switch {
	case e.ID <= 0:
		return &models.SchemaError{Source: "snapshot", Field: "entity_id", Reason: fmt.Sprintf("invalid id %d", e.ID)}
	case math.IsNaN(e.Ownership) || math.IsInf(e.Ownership, 0) || e.Ownership < 0:
		return &models.SchemaError{Source: "snapshot", Field: "ownership", Reason: fmt.Sprintf("invalid value for entity %d", e.ID)}
	case math.IsNaN(e.Price) || math.IsInf(e.Price, 0):
		return &models.SchemaError{Source: "snapshot", Field: "price", Reason: fmt.Sprintf("invalid value for entity %d", e.ID)}
	case e.Status != models.StatusNormal && e.Status != models.StatusExcluded:
		return &models.SchemaError{Source: "snapshot", Field: "status", Reason: fmt.Sprintf("unknown status %q for entity %d", e.Status, e.ID)}
	}
	return nil
}
