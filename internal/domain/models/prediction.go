package models

import (
	"sort"
	"time"
)

// Direction of a predicted or realised change.
type Direction string

const (
	DirectionRise Direction = "rise"
	DirectionFall Direction = "fall"
	DirectionNone Direction = "none"
)

// Actionable reports whether d is rise or fall.
func (d Direction) Actionable() bool { return d == DirectionRise || d == DirectionFall }

// AlertLevel is the urgency tier of a prediction.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertWarming  AlertLevel = "warming"
	AlertImminent AlertLevel = "imminent"
)

// Bucket groups entities by ownership share.
type Bucket string

const (
	BucketLow     Bucket = "low"
	BucketMidLow  Bucket = "mid_low"
	BucketMidHigh Bucket = "mid_high"
	BucketHigh    Bucket = "high"
)

// Buckets lists every ownership bucket, smallest first.
var Buckets = []Bucket{BucketLow, BucketMidLow, BucketMidHigh, BucketHigh}

// BucketFor places an ownership percentage into its bucket.
func BucketFor(ownership float64) Bucket {
	switch {
	case ownership < 5:
		return BucketLow
	case ownership < 15:
		return BucketMidLow
	case ownership < 30:
		return BucketMidHigh
	default:
		return BucketHigh
	}
}

// Prediction is one scored entity for one day.
type Prediction struct {
	EntityID         int64      `json:"entity_id" db:"entity_id"`
	Name             string     `json:"name" db:"name"`
	Date             time.Time  `json:"date" db:"date"`
	Direction        Direction  `json:"direction" db:"direction"`
	RawScore         float64    `json:"raw_score" db:"raw_score"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	AlertLevel       AlertLevel `json:"alert_level" db:"alert_level"`
	Bucket           Bucket     `json:"bucket" db:"bucket"`
	Ownership        float64    `json:"ownership" db:"ownership"`
	Pressure         float64    `json:"pressure" db:"pressure"`
	Velocity         float64    `json:"velocity" db:"velocity"`
	Trend            float64    `json:"trend" db:"trend"`
	Regime           Regime     `json:"regime" db:"regime"`
	Locked           bool       `json:"locked" db:"locked"`
	ThresholdVersion string     `json:"threshold_version" db:"threshold_version"`
	PolicyVersion    string     `json:"policy_version" db:"policy_version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// SignedConfidence is +confidence for rises, -confidence for falls and 0 otherwise.
func (p Prediction) SignedConfidence() float64 {
	switch p.Direction {
	case DirectionRise:
		return p.Confidence
	case DirectionFall:
		return -p.Confidence
	default:
		return 0
	}
}

// Key identifies a row in the prediction history.
func (p Prediction) Key() EntityDay { return EntityDay{EntityID: p.EntityID, Date: DayOf(p.Date)} }

// EntityDay is the (entity, day) uniqueness key shared by the ledgers.
type EntityDay struct {
	EntityID int64
	Date     time.Time
}

// Supersedes reports whether p should replace q when both share a key:
// higher confidence wins, ties go to the later CreatedAt.
func (p Prediction) Supersedes(q Prediction) bool {
	if p.Confidence != q.Confidence {
		return p.Confidence > q.Confidence
	}
	return !p.CreatedAt.Before(q.CreatedAt)
}

// MergePredictions folds incoming into existing keeping one row per (entity, day).
// The result is sorted by date then entity id.
func MergePredictions(existing, incoming []Prediction) []Prediction {
	byKey := make(map[EntityDay]Prediction, len(existing)+len(incoming))
	for _, set := range [][]Prediction{existing, incoming} {
		for _, p := range set {
			p.Date = DayOf(p.Date)
			k := p.Key()
			if cur, ok := byKey[k]; ok && !p.Supersedes(cur) {
				continue
			}
			byKey[k] = p
		}
	}
	out := make([]Prediction, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
