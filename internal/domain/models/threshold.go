package models

import "time"

// Threshold provenance statuses.
const (
	ThresholdDefault    = "default"
	ThresholdCalibrated = "calibrated"
)

// DefaultThresholdVersion identifies the built-in threshold set.
const DefaultThresholdVersion = "default"

// Cutoffs are the confidence levels at which an alert tier starts.
type Cutoffs struct {
	Imminent float64 `json:"imminent"`
	Warming  float64 `json:"warming"`
}

// Provenance records how a ThresholdSet was produced.
type Provenance struct {
	Status        string    `json:"status"`
	Accuracy      float64   `json:"accuracy,omitempty"`
	Samples       int       `json:"samples,omitempty"`
	Pairs         int       `json:"pairs,omitempty"`
	RiseQuantile  float64   `json:"rise_quantile,omitempty"`
	FallQuantile  float64   `json:"fall_quantile,omitempty"`
	RiseCutoff    float64   `json:"rise_cutoff,omitempty"`
	FallCutoff    float64   `json:"fall_cutoff,omitempty"`
	HorizonDays   int       `json:"horizon_days,omitempty"`
	Scope         string    `json:"scope,omitempty"`
	ParentVersion string    `json:"parent_version,omitempty"`
	CalibratedAt  time.Time `json:"calibrated_at,omitempty"`
}

// ThresholdSet maps (bucket, direction) to alert cutoffs. Exactly one set is current.
type ThresholdSet struct {
	Version    string                           `json:"version"`
	CreatedAt  time.Time                        `json:"created_at"`
	Cutoffs    map[Bucket]map[Direction]Cutoffs `json:"cutoffs"`
	Provenance Provenance                       `json:"provenance"`
}

// DefaultThresholdSet returns the fallback cutoffs used before any calibration.
func DefaultThresholdSet() ThresholdSet {
	return ThresholdSet{
		Version: DefaultThresholdVersion,
		Cutoffs: map[Bucket]map[Direction]Cutoffs{
			BucketLow: {
				DirectionRise: {Imminent: 0.60, Warming: 0.35},
				DirectionFall: {Imminent: 0.70, Warming: 0.45},
			},
			BucketMidLow: {
				DirectionRise: {Imminent: 0.65, Warming: 0.40},
				DirectionFall: {Imminent: 0.72, Warming: 0.48},
			},
			BucketMidHigh: {
				DirectionRise: {Imminent: 0.70, Warming: 0.45},
				DirectionFall: {Imminent: 0.75, Warming: 0.50},
			},
			BucketHigh: {
				DirectionRise: {Imminent: 0.78, Warming: 0.55},
				DirectionFall: {Imminent: 0.80, Warming: 0.60},
			},
		},
		Provenance: Provenance{Status: ThresholdDefault},
	}
}

// Lookup returns the cutoffs for a bucket and direction, falling back to the defaults.
func (t ThresholdSet) Lookup(b Bucket, d Direction) Cutoffs {
	if byDir, ok := t.Cutoffs[b]; ok {
		if c, ok := byDir[d]; ok {
			return c
		}
	}
	return DefaultThresholdSet().Cutoffs[b][d]
}

// Classify maps a confidence to an alert tier.
func (t ThresholdSet) Classify(b Bucket, d Direction, confidence float64) AlertLevel {
	if !d.Actionable() {
		return AlertNone
	}
	c := t.Lookup(b, d)
	switch {
	case confidence >= c.Imminent:
		return AlertImminent
	case confidence >= c.Warming:
		return AlertWarming
	default:
		return AlertNone
	}
}

// Clone deep-copies the cutoff map.
func (t ThresholdSet) Clone() ThresholdSet {
	out := t
	out.Cutoffs = make(map[Bucket]map[Direction]Cutoffs, len(t.Cutoffs))
	for b, byDir := range t.Cutoffs {
		m := make(map[Direction]Cutoffs, len(byDir))
		for d, c := range byDir {
			m[d] = c
		}
		out.Cutoffs[b] = m
	}
	return out
}

// Calibration audit statuses.
const (
	AuditCalibrated       = "calibrated"
	AuditInsufficientData = "insufficient_data"
	AuditNotImproved      = "not_improved"
)

// CalibrationAudit is an append-only record of one calibration attempt.
type CalibrationAudit struct {
	RunAt            time.Time `json:"run_at" db:"run_at"`
	Status           string    `json:"status" db:"status"`
	Samples          int       `json:"samples" db:"samples"`
	Classified       int       `json:"classified" db:"classified"`
	Accuracy         float64   `json:"accuracy" db:"accuracy"`
	RiseQuantile     float64   `json:"rise_quantile" db:"rise_quantile"`
	FallQuantile     float64   `json:"fall_quantile" db:"fall_quantile"`
	HorizonDays      int       `json:"horizon_days" db:"horizon_days"`
	Scope            string    `json:"scope" db:"scope"`
	ThresholdVersion string    `json:"threshold_version" db:"threshold_version"`
	Reason           string    `json:"reason,omitempty" db:"reason"`
}
