package metrics

import (
	"context"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var _ domrepo.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	reg            *prometheus.Registry
	stageDuration  *prometheus.HistogramVec
	stageRows      *prometheus.GaugeVec
	stageTotal     *prometheus.CounterVec
	predictions    *prometheus.GaugeVec
	calibrations   *prometheus.CounterVec
	accuracy       prometheus.Gauge
	calibSamples   prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
	lastRunSuccess prometheus.Gauge
}

// New creates a recorder bound to its own registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the pipeline metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricepulse_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		stageRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricepulse_stage_rows",
			Help: "Rows produced by the last run of a stage",
		}, []string{"stage"}),
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_stage_runs_total",
			Help: "Pipeline stage executions by status",
		}, []string{"stage", "status"}),
		predictions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricepulse_predictions",
			Help: "Predictions emitted by the last scoring run",
		}, []string{"direction", "alert_level"}),
		calibrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_calibrations_total",
			Help: "Calibration attempts by status",
		}, []string{"status"}),
		accuracy: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_calibration_accuracy",
			Help: "Backtest accuracy of the last successful calibration",
		}),
		calibSamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_calibration_samples",
			Help: "Classified samples behind the last successful calibration",
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pricepulse_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"type"}),
		lastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "pricepulse_last_run_success_timestamp_seconds",
			Help: "Unix time of the last pipeline run without failed stages",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) ObserveStage(stage string, status models.StageStatus, rows int, d time.Duration) {
	r.stageDuration.WithLabelValues(stage, string(status)).Observe(d.Seconds())
	r.stageTotal.WithLabelValues(stage, string(status)).Inc()
	r.stageRows.WithLabelValues(stage).Set(float64(rows))
}

func (r *Recorder) RecordPredictions(direction models.Direction, alert models.AlertLevel, n int) {
	r.predictions.WithLabelValues(string(direction), string(alert)).Set(float64(n))
}

func (r *Recorder) RecordCalibration(status string, accuracy float64, samples int) {
	r.calibrations.WithLabelValues(status).Inc()
	if status == models.AuditCalibrated {
		r.accuracy.Set(accuracy)
		r.calibSamples.Set(float64(samples))
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// MarkRunSucceeded stamps the success gauge.
func (r *Recorder) MarkRunSucceeded(at time.Time) {
	r.lastRunSuccess.Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway. Batch runs exit before any
// scrape, so this is how their metrics reach Prometheus.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(r.reg)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushgateway: %w", err)
	}
	return nil
}
