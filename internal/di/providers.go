package di

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/handler/api"
	internalrepo "PricePulse/internal/repository"
	"PricePulse/internal/service/notify"
	"PricePulse/internal/service/telegram"
	"PricePulse/internal/services/analytics"
	"PricePulse/internal/services/calibration"
	"PricePulse/internal/services/features"
	"PricePulse/internal/services/outcomes"
	"PricePulse/internal/usecase"
	"PricePulse/pkg/cache"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"
	"PricePulse/pkg/postgres"
	"PricePulse/pkg/server"
)

const (
	backendFile       = "file"
	backendClickHouse = "clickhouse"
	backendPostgres   = "postgres"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on its own registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetricsSink exposes the recorder through the domain interface.
func ProvideMetricsSink(r *metrics.Recorder) domrepo.Metrics {
	return r
}

// ProvideCache returns the Redis cache when enabled, otherwise an in-process one.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, cache.RedisFromConfig(cfg.Redis)...)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis connected", applogger.String("host", cfg.Redis.Host), applogger.Int("port", cfg.Redis.Port))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideClickHouseClient connects only when snapshots live in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Storage.Snapshots != backendClickHouse {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx, pkgch.FromConfig(cfg.ClickHouse)...)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresClient connects only when ledgers live in Postgres.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	if cfg.Storage.Ledgers != backendPostgres {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSnapshotRepository selects the snapshot backend.
func ProvideSnapshotRepository(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) domrepo.SnapshotRepository {
	if cfg.Storage.Snapshots == backendClickHouse && ch != nil {
		s := internalrepo.NewCHSnapshotStore(ch)
		s.SetLogger(l)
		return s
	}
	s := internalrepo.NewFileSnapshotStore(filepath.Join(cfg.Storage.DataDir, "snapshots"))
	s.SetLogger(l)
	return s
}

func ProvidePredictionLedger(cfg *config.Config, pg *postgres.Client, l *applogger.Logger) domrepo.PredictionLedger {
	if pg != nil {
		s := internalrepo.NewPGPredictionLedger(pg)
		s.SetLogger(l)
		return s
	}
	return internalrepo.NewFilePredictionLedger(cfg.Storage.DataDir)
}

func ProvideOutcomeLedger(cfg *config.Config, pg *postgres.Client, l *applogger.Logger) domrepo.OutcomeLedger {
	if pg != nil {
		s := internalrepo.NewPGOutcomeLedger(pg)
		s.SetLogger(l)
		return s
	}
	return internalrepo.NewFileOutcomeLedger(cfg.Storage.DataDir)
}

func ProvideProtectionStore(cfg *config.Config, pg *postgres.Client, l *applogger.Logger) domrepo.ProtectionStore {
	if pg != nil {
		s := internalrepo.NewPGProtectionStore(pg)
		s.SetLogger(l)
		return s
	}
	return internalrepo.NewFileProtectionStore(cfg.Storage.DataDir)
}

// ProvideThresholdStore fronts the threshold ledger with the shared cache.
func ProvideThresholdStore(cfg *config.Config, pg *postgres.Client, c cache.Service, l *applogger.Logger) domrepo.ThresholdStore {
	var next domrepo.ThresholdStore = internalrepo.NewFileThresholdStore(cfg.Storage.DataDir)
	if pg != nil {
		s := internalrepo.NewPGThresholdStore(pg)
		s.SetLogger(l)
		next = s
	}
	cached := internalrepo.NewCachedThresholdStore(next, c, cfg.Redis.CacheTTL)
	cached.SetLogger(l)
	return cached
}

func ProvideRunLock(c cache.Service) domrepo.RunLock {
	return internalrepo.NewCacheRunLock(c)
}

func ProvidePolicy(cfg *config.Config) analytics.Policy {
	return analytics.NewPolicy(cfg)
}

func ProvideScorer(p analytics.Policy) *analytics.Scorer {
	return analytics.NewScorer(p)
}

func ProvideRegimeDetector(p analytics.Policy) domsvc.RegimeDetector {
	return analytics.NewOutcomeRegimeDetector(p)
}

func ProvideOutcomeRecorder(cfg *config.Config) *outcomes.Recorder {
	return outcomes.NewRecorder(cfg.Pipeline.SkipUnchanged)
}

func ProvideCalibrator(cfg *config.Config) *calibration.Calibrator {
	return calibration.NewCalibrator(calibration.NewOptions(cfg.Calibration, cfg.Scoring.ConfidenceBound))
}

// ProvideKafkaProducer creates the digest producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, r *metrics.Recorder) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(r.Registry(), pkgkafka.FromConfig(cfg.Kafka)...)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideTelegramClient creates the Bot API client when Telegram is enabled.
func ProvideTelegramClient(cfg *config.Config) (*telegram.Client, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}
	return telegram.NewClient(telegram.Config{
		APIURL:      cfg.Telegram.APIURL,
		BotToken:    cfg.Telegram.BotToken,
		Timeout:     cfg.Telegram.Timeout,
		RatePerSec:  cfg.Telegram.RatePerSec,
		FailureTrip: cfg.Telegram.FailureTrip,
	})
}

// ProvideNotifiers collects the enabled digest sinks.
func ProvideNotifiers(cfg *config.Config, tg *telegram.Client, producer *pkgkafka.Producer) []domsvc.Notifier {
	var out []domsvc.Notifier
	if tg != nil {
		out = append(out, notify.NewTelegramNotifier(tg, cfg.Telegram.ChatID, cfg.Telegram.MaxMessage))
	}
	if producer != nil {
		out = append(out, notify.NewKafkaNotifier(producer, cfg.Kafka.Topic))
	}
	return out
}

// ProvideWatchlist merges the configured names with the watchlist CSV.
func ProvideWatchlist(cfg *config.Config) (domsvc.Watchlist, error) {
	path := cfg.Notify.WatchlistPath
	if path == "" {
		path = filepath.Join(cfg.Storage.DataDir, "watchlist.csv")
	}
	names, err := internalrepo.LoadWatchlistNames(path)
	if err != nil {
		return nil, err
	}
	return notify.NewWatchlist(cfg.Notify.Watchlist, names), nil
}

func ProvideCalibrateUseCase(
	preds domrepo.PredictionLedger,
	outs domrepo.OutcomeLedger,
	thresholds domrepo.ThresholdStore,
	cal *calibration.Calibrator,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.CalibrateUseCase {
	uc := usecase.NewCalibrateUseCase(preds, outs, thresholds, cal, m)
	uc.SetLogger(l)
	return uc
}

func ProvidePipelineUseCase(
	cfg *config.Config,
	snapshots domrepo.SnapshotRepository,
	preds domrepo.PredictionLedger,
	outs domrepo.OutcomeLedger,
	thresholds domrepo.ThresholdStore,
	prot domrepo.ProtectionStore,
	lock domrepo.RunLock,
	m domrepo.Metrics,
	regime domsvc.RegimeDetector,
	scorer *analytics.Scorer,
	recorder *outcomes.Recorder,
	cal *usecase.CalibrateUseCase,
	notifiers []domsvc.Notifier,
	wl domsvc.Watchlist,
	l *applogger.Logger,
) *usecase.PipelineUseCase {
	uc := usecase.NewPipelineUseCase(usecase.PipelineDeps{
		Snapshots:   snapshots,
		Predictions: preds,
		Outcomes:    outs,
		Thresholds:  thresholds,
		Protection:  prot,
		Lock:        lock,
		Metrics:     m,
		Regime:      regime,
		Scorer:      scorer,
		Recorder:    recorder,
		Calibrate:   cal,
		Notifiers:   notifiers,
		Watchlist:   wl,
	}, usecase.PipelineOptions{
		Momentum:      features.MomentumConfig{Window: cfg.Pipeline.VelocityWindow, Decay: cfg.Pipeline.VelocityDecay},
		CooldownDays:  cfg.Pipeline.CooldownDays,
		LockTTL:       cfg.Redis.LockTTL,
		RunTimeout:    cfg.Pipeline.RunTimeout,
		NotifyTimeout: cfg.Notify.Timeout,
		TopN:          cfg.Notify.TopN,
		ReportScope:   models.Scope(cfg.Calibration.ReportScope),
		HorizonDays:   cfg.Calibration.HorizonDays,
	})
	uc.SetLogger(l)
	return uc
}

func ProvideReportUseCase(
	cfg *config.Config,
	preds domrepo.PredictionLedger,
	outs domrepo.OutcomeLedger,
	thresholds domrepo.ThresholdStore,
) *usecase.ReportUseCase {
	return usecase.NewReportUseCase(preds, outs, thresholds, models.Scope(cfg.Calibration.ReportScope), cfg.Calibration.HorizonDays)
}

func ProvideIngestUseCase(snapshots domrepo.SnapshotRepository, l *applogger.Logger) *usecase.IngestUseCase {
	uc := usecase.NewIngestUseCase(snapshots)
	uc.SetLogger(l)
	return uc
}

// ProvideHandler builds the HTTP handler with a health check per live backend.
func ProvideHandler(
	l *applogger.Logger,
	report *usecase.ReportUseCase,
	ch *pkgch.Client,
	pg *postgres.Client,
	c cache.Service,
) *api.Handler {
	var checks []api.HealthCheck
	if ch != nil {
		checks = append(checks, api.HealthCheck{Name: "clickhouse", Check: ch.Health})
	}
	if pg != nil {
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: pg.Health})
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}})
	}
	return api.NewHandler(l, report, checks...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	recorder *metrics.Recorder,
	pipeline *usecase.PipelineUseCase,
	cal *usecase.CalibrateUseCase,
	report *usecase.ReportUseCase,
	ingest *usecase.IngestUseCase,
	h *api.Handler,
) *server.App {
	return server.New(cfg, l, recorder, pipeline, cal, report, ingest, h)
}
