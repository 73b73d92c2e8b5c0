package repository

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
)

// SnapshotRepository is the append-only, timestamp-ordered snapshot store.
type SnapshotRepository interface {
	// Latest returns up to n most recent snapshots in ascending timestamp order.
	Latest(ctx context.Context, n int) ([]models.Snapshot, error)
	// Put stores a snapshot; an existing timestamp is left untouched.
	Put(ctx context.Context, snap models.Snapshot) error
}

// PredictionLedger is the prediction history, unique per (entity, day).
type PredictionLedger interface {
	Load(ctx context.Context) ([]models.Prediction, error)
	// Append merges predictions into the history in a single atomic write.
	Append(ctx context.Context, preds []models.Prediction) (int, error)
}

// OutcomeLedger is the realised-outcome history, unique per (entity, day).
type OutcomeLedger interface {
	Load(ctx context.Context) ([]models.Outcome, error)
	Append(ctx context.Context, outcomes []models.Outcome) (int, error)
}

// ThresholdStore holds the current ThresholdSet and the calibration audit trail.
type ThresholdStore interface {
	// Current returns the current set, or the default set if none was saved.
	Current(ctx context.Context) (models.ThresholdSet, error)
	Save(ctx context.Context, set models.ThresholdSet) error
	AppendAudit(ctx context.Context, audit models.CalibrationAudit) error
	Audits(ctx context.Context) ([]models.CalibrationAudit, error)
}

// ProtectionStore is the protection ledger. Entries are never deleted.
type ProtectionStore interface {
	Load(ctx context.Context) (map[int64]models.ProtectionEntry, error)
	// Upsert stores entries, keeping the later LockUntil per entity.
	Upsert(ctx context.Context, entries []models.ProtectionEntry) error
}

// RunLock guards against overlapping pipeline runs.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Metrics records pipeline telemetry.
type Metrics interface {
	ObserveStage(stage string, status models.StageStatus, rows int, d time.Duration)
	RecordPredictions(direction models.Direction, alert models.AlertLevel, n int)
	RecordCalibration(status string, accuracy float64, samples int)
	RecordError(kind string)
}
