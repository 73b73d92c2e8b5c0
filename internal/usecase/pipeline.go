package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/service/notify"
	"PricePulse/internal/services/analytics"
	"PricePulse/internal/services/calibration"
	"PricePulse/internal/services/features"
	"PricePulse/internal/services/outcomes"
	"PricePulse/internal/services/protection"
	applogger "PricePulse/pkg/logger"

	"github.com/google/uuid"
)

// PipelineOptions tune one pipeline run.
type PipelineOptions struct {
	Momentum      features.MomentumConfig
	CooldownDays  int
	LockTTL       time.Duration
	RunTimeout    time.Duration
	NotifyTimeout time.Duration
	TopN          int
	ReportScope   models.Scope
	HorizonDays   int
}

// PipelineDeps are the collaborators of a run.
type PipelineDeps struct {
	Snapshots   domrepo.SnapshotRepository
	Predictions domrepo.PredictionLedger
	Outcomes    domrepo.OutcomeLedger
	Thresholds  domrepo.ThresholdStore
	Protection  domrepo.ProtectionStore
	Lock        domrepo.RunLock
	Metrics     domrepo.Metrics
	Regime      domsvc.RegimeDetector
	Scorer      *analytics.Scorer
	Recorder    *outcomes.Recorder
	Calibrate   *CalibrateUseCase
	Notifiers   []domsvc.Notifier
	Watchlist   domsvc.Watchlist
}

// PipelineUseCase runs the daily batch: protection, scoring, outcomes,
// calibration, accuracy and notification, in that order.
type PipelineUseCase struct {
	d     PipelineDeps
	opts  PipelineOptions
	l     *applogger.Logger
	now   func() time.Time
	runID func() string
}

func NewPipelineUseCase(d PipelineDeps, opts PipelineOptions) *PipelineUseCase {
	if opts.Momentum.Window < 1 {
		opts.Momentum = features.DefaultMomentumConfig()
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 10 * time.Minute
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.RunTimeout
	}
	if opts.HorizonDays < 1 {
		opts.HorizonDays = 1
	}
	if !models.IsValidScope(opts.ReportScope) {
		opts.ReportScope = models.DefaultReportScope()
	}
	return &PipelineUseCase{
		d:     d,
		opts:  opts,
		l:     applogger.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
		runID: uuid.NewString,
	}
}

// SetLogger injects a structured logger.
func (uc *PipelineUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// SetClock overrides the time source.
func (uc *PipelineUseCase) SetClock(now func() time.Time) { uc.now = now }

// runState carries what earlier stages hand to later ones.
type runState struct {
	runID      string
	snaps      []models.Snapshot
	snapErr    error
	thresholds models.ThresholdSet
	ledger     *protection.Ledger
	preds      []models.Prediction
	accuracy   *models.AccuracyDay
}

// Run executes one pipeline run. A held lock returns models.ErrLockHeld.
// Stage failures do not abort the run; inspect RunReport.Failed.
func (uc *PipelineUseCase) Run(ctx context.Context) (models.RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.opts.RunTimeout)
	defer cancel()

	report := models.RunReport{RunID: uc.runID(), StartedAt: uc.now()}
	l := uc.l.With(applogger.String("run_id", report.RunID))

	if uc.d.Lock != nil {
		ok, err := uc.d.Lock.Acquire(ctx, uc.opts.LockTTL)
		if err != nil {
			return report, fmt.Errorf("pipeline: %w", err)
		}
		if !ok {
			l.Warn("pipeline skipped, another run holds the lock")
			return report, models.ErrLockHeld
		}
		defer func() {
			if err := uc.d.Lock.Release(context.WithoutCancel(ctx)); err != nil {
				l.Warn("run lock release failed", applogger.Error(err))
			}
		}()
	}

	st := &runState{runID: report.RunID}
	st.snaps, st.snapErr = uc.loadSnapshots(ctx)
	if len(st.snaps) > 0 {
		report.SnapshotAt = st.snaps[len(st.snaps)-1].Timestamp
	}

	stages := []struct {
		name string
		fn   func(context.Context, *runState) models.StageResult
	}{
		{models.StageProtection, uc.stageProtection},
		{models.StageScoring, uc.stageScoring},
		{models.StageOutcomes, uc.stageOutcomes},
		{models.StageCalibration, uc.stageCalibration},
		{models.StageAccuracy, uc.stageAccuracy},
		{models.StageNotify, uc.stageNotify},
	}
	for _, s := range stages {
		report.Add(uc.runStage(ctx, l, s.name, st, s.fn))
	}

	if uc.d.Metrics != nil {
		if m, ok := uc.d.Metrics.(interface{ MarkRunSucceeded(time.Time) }); ok && !report.Failed() {
			m.MarkRunSucceeded(uc.now())
		}
	}
	l.Info("pipeline finished",
		applogger.Bool("failed", report.Failed()),
		applogger.Duration("duration_ms", uc.now().Sub(report.StartedAt)),
	)
	return report, nil
}

func (uc *PipelineUseCase) runStage(ctx context.Context, l *applogger.Logger, name string, st *runState, fn func(context.Context, *runState) models.StageResult) models.StageResult {
	start := time.Now()
	l.Debug("stage started", applogger.String("stage", name))

	var res models.StageResult
	if err := ctx.Err(); err != nil {
		res = stageFailed(fmt.Errorf("run deadline: %w", err))
	} else {
		res = fn(ctx, st)
	}
	res.Stage = name
	res.Duration = time.Since(start)

	fields := []applogger.Field{
		applogger.String("stage", name),
		applogger.String("status", string(res.Status)),
		applogger.Int("rows", res.Rows),
		applogger.Duration("duration_ms", res.Duration),
	}
	if res.Reason != "" {
		fields = append(fields, applogger.String("reason", res.Reason))
	}
	switch res.Status {
	case models.StageFailed:
		l.Error("stage finished", fields...)
		if uc.d.Metrics != nil {
			uc.d.Metrics.RecordError(name)
		}
	case models.StageSkipped, models.StageInconclusive:
		l.Warn("stage finished", fields...)
	default:
		l.Info("stage finished", fields...)
	}
	if uc.d.Metrics != nil {
		uc.d.Metrics.ObserveStage(name, res.Status, res.Rows, res.Duration)
	}
	return res
}

func stageOK(rows int) models.StageResult { return models.StageResult{Status: models.StageOK, Rows: rows} }

func stageSkipped(reason string) models.StageResult {
	return models.StageResult{Status: models.StageSkipped, Reason: reason}
}

func stageFailed(err error) models.StageResult {
	return models.StageResult{Status: models.StageFailed, Reason: err.Error()}
}

func (uc *PipelineUseCase) loadSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	snaps, err := uc.d.Snapshots.Latest(ctx, uc.opts.Momentum.Window+1)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	if len(snaps) < 2 {
		return snaps, nil
	}
	ordered, err := features.OrderSnapshots(snaps)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return ordered, nil
}

// snapshotGate reports why snapshot-driven stages cannot run.
func (st *runState) snapshotGate() (models.StageResult, bool) {
	if st.snapErr != nil {
		return stageFailed(st.snapErr), false
	}
	if len(st.snaps) < 2 {
		return stageSkipped(models.ErrInsufficientSnapshots.Error()), false
	}
	return models.StageResult{}, true
}

func (st *runState) lastTwo() (models.Snapshot, models.Snapshot) {
	n := len(st.snaps)
	return st.snaps[n-2], st.snaps[n-1]
}

func (uc *PipelineUseCase) stageProtection(ctx context.Context, st *runState) models.StageResult {
	if res, ok := st.snapshotGate(); !ok {
		return res
	}
	entries, err := uc.d.Protection.Load(ctx)
	if err != nil {
		return stageFailed(err)
	}
	st.ledger = protection.NewLedger(entries, uc.opts.CooldownDays)
	prev, curr := st.lastTwo()
	changed := st.ledger.Update(prev, curr)
	if err := uc.d.Protection.Upsert(ctx, changed); err != nil {
		st.ledger = nil
		return stageFailed(err)
	}
	return stageOK(len(changed))
}

func (uc *PipelineUseCase) stageScoring(ctx context.Context, st *runState) models.StageResult {
	if res, ok := st.snapshotGate(); !ok {
		return res
	}
	if st.ledger == nil {
		return stageSkipped("protection ledger unavailable")
	}
	thresholds, err := uc.d.Thresholds.Current(ctx)
	if err != nil {
		return stageFailed(err)
	}
	st.thresholds = thresholds

	series, err := features.DeltaSeries(st.snaps)
	if err != nil {
		return stageFailed(err)
	}
	momentum := features.ComputeMomentum(series, uc.opts.Momentum)

	_, curr := st.lastTwo()
	history, err := uc.d.Outcomes.Load(ctx)
	if err != nil {
		return stageFailed(err)
	}
	regime, err := uc.d.Regime.Detect(ctx, history, curr.Timestamp)
	if err != nil {
		return stageFailed(err)
	}

	preds, err := uc.d.Scorer.Score(analytics.ScoreInput{
		Snapshot:   curr,
		Momentum:   momentum,
		Thresholds: thresholds,
		Protection: st.ledger,
		Regime:     regime,
		Now:        uc.now(),
	})
	if err != nil {
		return stageFailed(err)
	}
	if _, err := uc.d.Predictions.Append(ctx, preds); err != nil {
		return stageFailed(err)
	}
	st.preds = preds
	uc.recordPredictions(preds)
	res := stageOK(len(preds))
	res.Reason = fmt.Sprintf("regime %s, thresholds %s", regime.Regime, thresholds.Version)
	return res
}

func (uc *PipelineUseCase) recordPredictions(preds []models.Prediction) {
	if uc.d.Metrics == nil {
		return
	}
	type key struct {
		d models.Direction
		a models.AlertLevel
	}
	counts := make(map[key]int)
	for _, p := range preds {
		counts[key{p.Direction, p.AlertLevel}]++
	}
	for k, n := range counts {
		uc.d.Metrics.RecordPredictions(k.d, k.a, n)
	}
}

func (uc *PipelineUseCase) stageOutcomes(ctx context.Context, st *runState) models.StageResult {
	if res, ok := st.snapshotGate(); !ok {
		return res
	}
	prev, curr := st.lastTwo()
	outs, err := uc.d.Recorder.Record(prev, curr)
	if err != nil {
		return stageFailed(err)
	}
	if _, err := uc.d.Outcomes.Append(ctx, outs); err != nil {
		return stageFailed(err)
	}
	return stageOK(len(outs))
}

func (uc *PipelineUseCase) stageCalibration(ctx context.Context, _ *runState) models.StageResult {
	res, err := uc.d.Calibrate.Calibrate(ctx)
	if err != nil {
		return stageFailed(err)
	}
	out := models.StageResult{Status: uc.d.Calibrate.Status(res), Rows: res.Pairs, Reason: res.Audit.Reason}
	if res.Changed {
		out.Reason = "new thresholds " + res.Set.Version
	}
	return out
}

func (uc *PipelineUseCase) stageAccuracy(ctx context.Context, st *runState) models.StageResult {
	preds, err := uc.d.Predictions.Load(ctx)
	if err != nil {
		return stageFailed(err)
	}
	if len(preds) == 0 {
		return stageSkipped("no prediction history")
	}
	outs, err := uc.d.Outcomes.Load(ctx)
	if err != nil {
		return stageFailed(err)
	}
	report := calibration.Accuracy(preds, outs, uc.opts.ReportScope, uc.opts.HorizonDays, calibration.ReportFilter{}, uc.now())
	if n := len(report.Days); n > 0 {
		last := report.Days[n-1]
		st.accuracy = &last
	}
	res := stageOK(report.Total)
	res.Reason = fmt.Sprintf("%d/%d correct", report.Correct, report.Total)
	return res
}

// stageNotify is best effort: sink failures are logged and counted but never
// fail the stage.
func (uc *PipelineUseCase) stageNotify(ctx context.Context, st *runState) models.StageResult {
	if len(uc.d.Notifiers) == 0 {
		return stageSkipped("no notifiers configured")
	}
	if len(st.preds) == 0 {
		return stageSkipped("no predictions this run")
	}
	_, curr := st.lastTwo()
	digest := notify.BuildDigest(st.runID, st.preds, curr, uc.d.Watchlist, uc.opts.TopN, st.accuracy, st.thresholds.Version)

	sent := 0
	var errs []error
	for _, n := range uc.d.Notifiers {
		nctx, cancel := context.WithTimeout(ctx, uc.opts.NotifyTimeout)
		err := n.Notify(nctx, digest)
		cancel()
		if err != nil {
			uc.l.Warn("notification failed", applogger.String("sink", n.Name()), applogger.Error(err))
			if uc.d.Metrics != nil {
				uc.d.Metrics.RecordError("notify_" + n.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		sent++
	}
	res := stageOK(sent)
	if len(errs) > 0 {
		res.Reason = errors.Join(errs...).Error()
	}
	return res
}
