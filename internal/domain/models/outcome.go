package models

import (
	"sort"
	"time"
)

// Outcome is the realised value change of an entity, attributed to the later snapshot's day.
type Outcome struct {
	EntityID     int64     `json:"entity_id" db:"entity_id"`
	Date         time.Time `json:"date" db:"date"`
	ActualChange Direction `json:"actual_change" db:"actual_change"`
	PriceBefore  float64   `json:"price_before" db:"price_before"`
	PriceAfter   float64   `json:"price_after" db:"price_after"`
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at"`
}

// Key identifies a row in the outcomes ledger.
func (o Outcome) Key() EntityDay { return EntityDay{EntityID: o.EntityID, Date: DayOf(o.Date)} }

// MergeOutcomes folds incoming into existing; the latest observation of a key wins.
func MergeOutcomes(existing, incoming []Outcome) []Outcome {
	byKey := make(map[EntityDay]Outcome, len(existing)+len(incoming))
	for _, set := range [][]Outcome{existing, incoming} {
		for _, o := range set {
			o.Date = DayOf(o.Date)
			k := o.Key()
			if cur, ok := byKey[k]; ok && o.RecordedAt.Before(cur.RecordedAt) {
				continue
			}
			byKey[k] = o
		}
	}
	out := make([]Outcome, 0, len(byKey))
	for _, o := range byKey {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

// ProtectionEntry locks an entity out of scoring until LockUntil (inclusive).
type ProtectionEntry struct {
	EntityID  int64     `json:"entity_id" db:"entity_id"`
	LockUntil time.Time `json:"lock_until" db:"lock_until"`
}

// AccuracyDay aggregates resolved predictions of one prediction date.
type AccuracyDay struct {
	Date     time.Time `json:"date"`
	Total    int       `json:"total"`
	Correct  int       `json:"correct"`
	Accuracy float64   `json:"accuracy"`
}

// AccuracyReport is the read-only accuracy view over prediction history.
type AccuracyReport struct {
	Days        []AccuracyDay `json:"days"`
	Total       int           `json:"total"`
	Correct     int           `json:"correct"`
	Accuracy    float64       `json:"accuracy"`
	Horizon     int           `json:"horizon_days"`
	GeneratedAt time.Time     `json:"generated_at"`
}
