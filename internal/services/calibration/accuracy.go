package calibration

import (
	"sort"
	"time"

	"PricePulse/internal/domain/models"
)

// ReportFilter narrows the accuracy report to a prediction-date range (inclusive).
type ReportFilter struct {
	From time.Time
	To   time.Time
}

func (f ReportFilter) includes(day time.Time) bool {
	if !f.From.IsZero() && day.Before(models.DayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(models.DayOf(f.To)) {
		return false
	}
	return true
}

// Accuracy aggregates causally resolved predictions per prediction date using
// the same join as calibration. It never writes anything.
func Accuracy(preds []models.Prediction, outs []models.Outcome, scope models.Scope, horizonDays int, filter ReportFilter, now time.Time) models.AccuracyReport {
	pairs := CausalJoin(preds, outs, scope, horizonDays)

	byDay := make(map[time.Time]*models.AccuracyDay)
	report := models.AccuracyReport{Horizon: horizonDays, GeneratedAt: now}
	for _, p := range pairs {
		day := p.Prediction.Date
		if !filter.includes(day) {
			continue
		}
		d, ok := byDay[day]
		if !ok {
			d = &models.AccuracyDay{Date: day}
			byDay[day] = d
		}
		d.Total++
		report.Total++
		if p.Correct() {
			d.Correct++
			report.Correct++
		}
	}

	report.Days = make([]models.AccuracyDay, 0, len(byDay))
	for _, d := range byDay {
		d.Accuracy = ratio(d.Correct, d.Total)
		report.Days = append(report.Days, *d)
	}
	sort.Slice(report.Days, func(i, j int) bool { return report.Days[i].Date.Before(report.Days[j].Date) })
	report.Accuracy = ratio(report.Correct, report.Total)
	if horizonDays < 1 {
		report.Horizon = 1
	}
	return report
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
