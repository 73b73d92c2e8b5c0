//go:build wireinject
// +build wireinject

package di

import (
	"PricePulse/pkg/config"
	"PricePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideMetrics,
		ProvideMetricsSink,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideKafkaProducer,
		ProvideTelegramClient,

		// Repositories
		ProvideSnapshotRepository,
		ProvidePredictionLedger,
		ProvideOutcomeLedger,
		ProvideProtectionStore,
		ProvideThresholdStore,
		ProvideRunLock,

		// Domain services
		ProvidePolicy,
		ProvideScorer,
		ProvideRegimeDetector,
		ProvideOutcomeRecorder,
		ProvideCalibrator,
		ProvideNotifiers,
		ProvideWatchlist,

		// Use cases
		ProvideCalibrateUseCase,
		ProvidePipelineUseCase,
		ProvideReportUseCase,
		ProvideIngestUseCase,

		// Application server
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
