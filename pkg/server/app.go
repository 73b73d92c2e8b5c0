package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/calibration"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"
)

// App encapsulates the application lifecycle. Each CLI command maps to one
// method.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	recorder    *metrics.Recorder
	pipeline    *usecase.PipelineUseCase
	calibrate   *usecase.CalibrateUseCase
	report      *usecase.ReportUseCase
	ingest      *usecase.IngestUseCase
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	recorder *metrics.Recorder,
	pipeline *usecase.PipelineUseCase,
	calibrate *usecase.CalibrateUseCase,
	report *usecase.ReportUseCase,
	ingest *usecase.IngestUseCase,
	h xhttp.Handler,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:         cfg,
		l:           l,
		recorder:    recorder,
		pipeline:    pipeline,
		calibrate:   calibrate,
		report:      report,
		ingest:      ingest,
		httpHandler: h,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// RunPipeline executes one daily batch and pushes run metrics when a
// Pushgateway is configured.
func (a *App) RunPipeline(ctx context.Context) (models.RunReport, error) {
	ctx, stop := signalContext(ctx)
	defer stop()

	report, err := a.pipeline.Run(ctx)
	if err != nil {
		if errors.Is(err, models.ErrLockHeld) {
			a.l.Warn("pipeline skipped, another run holds the lock")
		}
		return report, err
	}
	for _, s := range report.Stages {
		a.l.Info("stage",
			applogger.String("stage", s.Stage),
			applogger.String("status", string(s.Status)),
			applogger.Int("rows", s.Rows),
			applogger.String("reason", s.Reason),
			applogger.Duration("took", s.Duration),
		)
	}
	a.pushMetrics(ctx)
	return report, nil
}

// Calibrate runs the threshold calibrator on its own.
func (a *App) Calibrate(ctx context.Context) (calibration.Result, error) {
	res, err := a.calibrate.Calibrate(ctx)
	if err != nil {
		return res, err
	}
	a.pushMetrics(ctx)
	return res, nil
}

// Accuracy builds the accuracy report for the CLI.
func (a *App) Accuracy(ctx context.Context, p usecase.AccuracyParams) (models.AccuracyReport, error) {
	return a.report.Accuracy(ctx, p)
}

// Ingest stores a snapshot CSV captured at the given time.
func (a *App) Ingest(ctx context.Context, path string, at time.Time) (models.Snapshot, error) {
	return a.ingest.Ingest(ctx, path, at)
}

// Serve runs the read-only HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	}
	var srv *xhttp.Server
	if a.cfg.Metrics.Enabled {
		srv = xhttp.NewServer(a.httpHandler, a.l, a.recorder.Registry(), opts...)
	} else {
		srv = xhttp.NewServer(a.httpHandler, a.l, nil, opts...)
	}
	err := srv.Run(ctx)
	a.l.Info("shutdown complete")
	return err
}

func (a *App) pushMetrics(ctx context.Context) {
	if a.cfg.Metrics.PushgatewayURL == "" || a.recorder == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.recorder.Push(pushCtx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.l.Warn("metrics push failed", applogger.Error(err))
	}
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
