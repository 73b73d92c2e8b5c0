package calibration

import (
	"sort"
	"time"

	"PricePulse/internal/domain/models"
)

// Pair is a prediction matched to the outcome that resolved it.
type Pair struct {
	Prediction models.Prediction
	Outcome    models.Outcome
}

// Correct reports whether the predicted direction was realised.
func (p Pair) Correct() bool { return p.Prediction.Direction == p.Outcome.ActualChange }

// CausalJoin matches each in-scope prediction to at most one outcome of the
// same entity dated strictly after the prediction day and no later than
// horizonDays after it. The earliest non-none outcome in that window wins;
// failing that, the earliest outcome. Predictions without a match are dropped.
func CausalJoin(preds []models.Prediction, outs []models.Outcome, scope models.Scope, horizonDays int) []Pair {
	if horizonDays < 1 {
		horizonDays = 1
	}

	byEntity := make(map[int64][]models.Outcome)
	for _, o := range outs {
		o.Date = models.DayOf(o.Date)
		byEntity[o.EntityID] = append(byEntity[o.EntityID], o)
	}
	for id := range byEntity {
		list := byEntity[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}

	pairs := make([]Pair, 0, len(preds))
	for _, p := range preds {
		if !scope.Includes(p) {
			continue
		}
		day := models.DayOf(p.Date)
		if o, ok := resolve(byEntity[p.EntityID], day, day.AddDate(0, 0, horizonDays)); ok {
			p.Date = day
			pairs = append(pairs, Pair{Prediction: p, Outcome: o})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i].Prediction, pairs[j].Prediction
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.EntityID < b.EntityID
	})
	return pairs
}

// resolve picks the outcome for a prediction made on day from sorted outcomes.
func resolve(sorted []models.Outcome, day, until time.Time) (models.Outcome, bool) {
	var first *models.Outcome
	for i := range sorted {
		o := sorted[i]
		if !o.Date.After(day) {
			continue
		}
		if o.Date.After(until) {
			break
		}
		if o.ActualChange.Actionable() {
			return o, true
		}
		if first == nil {
			first = &sorted[i]
		}
	}
	if first != nil {
		return *first, true
	}
	return models.Outcome{}, false
}
