package usecase

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/services/calibration"
	applogger "PricePulse/pkg/logger"
)

// CalibrateUseCase backtests the prediction history and persists the next
// threshold set together with an audit entry.
type CalibrateUseCase struct {
	predictions domrepo.PredictionLedger
	outcomes    domrepo.OutcomeLedger
	thresholds  domrepo.ThresholdStore
	calibrator  *calibration.Calibrator
	metrics     domrepo.Metrics
	l           *applogger.Logger
}

func NewCalibrateUseCase(
	predictions domrepo.PredictionLedger,
	outcomes domrepo.OutcomeLedger,
	thresholds domrepo.ThresholdStore,
	calibrator *calibration.Calibrator,
	metrics domrepo.Metrics,
) *CalibrateUseCase {
	return &CalibrateUseCase{
		predictions: predictions,
		outcomes:    outcomes,
		thresholds:  thresholds,
		calibrator:  calibrator,
		metrics:     metrics,
		l:           applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (uc *CalibrateUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// Calibrate runs one calibration attempt. Cold start leaves the current set
// untouched but still records an audit entry.
func (uc *CalibrateUseCase) Calibrate(ctx context.Context) (calibration.Result, error) {
	start := time.Now()
	preds, err := uc.predictions.Load(ctx)
	if err != nil {
		return calibration.Result{}, fmt.Errorf("calibrate: %w", err)
	}
	outs, err := uc.outcomes.Load(ctx)
	if err != nil {
		return calibration.Result{}, fmt.Errorf("calibrate: %w", err)
	}
	current, err := uc.thresholds.Current(ctx)
	if err != nil {
		return calibration.Result{}, fmt.Errorf("calibrate: %w", err)
	}

	res := uc.calibrator.Calibrate(current, preds, outs)
	// the audit goes first so a live set always has its audit entry
	if err := uc.thresholds.AppendAudit(ctx, res.Audit); err != nil {
		return res, fmt.Errorf("calibrate: %w", err)
	}
	if res.Changed {
		if err := uc.thresholds.Save(ctx, res.Set); err != nil {
			return res, fmt.Errorf("calibrate: %w", err)
		}
	}

	acc, samples := 0.0, 0
	if res.Best != nil {
		acc, samples = res.Best.Accuracy, res.Best.Classified
	}
	if uc.metrics != nil {
		uc.metrics.RecordCalibration(res.Status, acc, samples)
	}
	uc.l.Info("calibration finished",
		applogger.String("status", res.Status),
		applogger.Int("pairs", res.Pairs),
		applogger.Int("classified", samples),
		applogger.Float64("accuracy", acc),
		applogger.String("version", res.Set.Version),
		applogger.String("reason", res.Audit.Reason),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}

// Status maps a calibration result to the stage status. Keeping the current
// set because no candidate beat it is a completed calibration.
func (uc *CalibrateUseCase) Status(res calibration.Result) models.StageStatus {
	if res.Changed || res.Status == models.AuditNotImproved {
		return models.StageOK
	}
	return models.StageInconclusive
}
