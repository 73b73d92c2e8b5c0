package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/services/calibration"
)

// ReportUseCase serves the read-only views: accuracy, current thresholds and
// stored predictions. It never writes.
type ReportUseCase struct {
	predictions domrepo.PredictionLedger
	outcomes    domrepo.OutcomeLedger
	thresholds  domrepo.ThresholdStore
	scope       models.Scope
	horizon     int
	now         func() time.Time
}

func NewReportUseCase(
	predictions domrepo.PredictionLedger,
	outcomes domrepo.OutcomeLedger,
	thresholds domrepo.ThresholdStore,
	scope models.Scope,
	horizon int,
) *ReportUseCase {
	if horizon < 1 {
		horizon = 1
	}
	if !models.IsValidScope(scope) {
		scope = models.DefaultReportScope()
	}
	return &ReportUseCase{
		predictions: predictions,
		outcomes:    outcomes,
		thresholds:  thresholds,
		scope:       scope,
		horizon:     horizon,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AccuracyParams filter the accuracy report. An empty Scope uses the
// configured report scope.
type AccuracyParams struct {
	From    time.Time
	To      time.Time
	Horizon int
	Scope   models.Scope
}

func (uc *ReportUseCase) Accuracy(ctx context.Context, p AccuracyParams) (models.AccuracyReport, error) {
	preds, err := uc.predictions.Load(ctx)
	if err != nil {
		return models.AccuracyReport{}, fmt.Errorf("accuracy report: %w", err)
	}
	outs, err := uc.outcomes.Load(ctx)
	if err != nil {
		return models.AccuracyReport{}, fmt.Errorf("accuracy report: %w", err)
	}
	horizon := p.Horizon
	if horizon < 1 {
		horizon = uc.horizon
	}
	scope := uc.scope
	if models.IsValidScope(p.Scope) {
		scope = p.Scope
	}
	return calibration.Accuracy(preds, outs, scope, horizon, calibration.ReportFilter{From: p.From, To: p.To}, uc.now()), nil
}

func (uc *ReportUseCase) Thresholds(ctx context.Context) (models.ThresholdSet, error) {
	set, err := uc.thresholds.Current(ctx)
	if err != nil {
		return models.ThresholdSet{}, fmt.Errorf("current thresholds: %w", err)
	}
	return set, nil
}

func (uc *ReportUseCase) Audits(ctx context.Context) ([]models.CalibrationAudit, error) {
	audits, err := uc.thresholds.Audits(ctx)
	if err != nil {
		return nil, fmt.Errorf("calibration audit: %w", err)
	}
	return audits, nil
}

type PredictionsParams struct {
	// Date selects one prediction day; zero means the latest stored day.
	Date      time.Time
	Direction models.Direction
	Alert     models.AlertLevel
	Limit     int
}

// Predictions returns one day's predictions ordered by confidence, highest
// first.
func (uc *ReportUseCase) Predictions(ctx context.Context, p PredictionsParams) ([]models.Prediction, error) {
	preds, err := uc.predictions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	day := p.Date
	if day.IsZero() {
		for _, pr := range preds {
			if pr.Date.After(day) {
				day = pr.Date
			}
		}
	}
	day = models.DayOf(day)

	out := make([]models.Prediction, 0)
	for _, pr := range preds {
		if !models.DayOf(pr.Date).Equal(day) {
			continue
		}
		if p.Direction != "" && pr.Direction != p.Direction {
			continue
		}
		if p.Alert != "" && pr.AlertLevel != p.Alert {
			continue
		}
		out = append(out, pr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].EntityID < out[j].EntityID
	})
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}
