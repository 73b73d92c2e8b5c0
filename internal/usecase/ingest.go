package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/internal/repository"
	applogger "PricePulse/pkg/logger"
)

// IngestUseCase validates an external CSV against the canonical schema and
// stores it as a new snapshot.
type IngestUseCase struct {
	snapshots domrepo.SnapshotRepository
	l         *applogger.Logger
	now       func() time.Time
}

func NewIngestUseCase(snapshots domrepo.SnapshotRepository) *IngestUseCase {
	return &IngestUseCase{
		snapshots: snapshots,
		l:         applogger.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger injects a structured logger.
func (uc *IngestUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// Ingest reads path and stores it with timestamp at, or now when at is zero.
// Schema violations come back as *models.SchemaError and nothing is written.
func (uc *IngestUseCase) Ingest(ctx context.Context, path string, at time.Time) (models.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()

	entities, err := repository.ReadSnapshotCSV(f, filepath.Base(path))
	if err != nil {
		uc.l.Error("ingest rejected", applogger.String("file", path), applogger.Error(err))
		return models.Snapshot{}, fmt.Errorf("ingest: %w", err)
	}
	if at.IsZero() {
		at = uc.now()
	}
	snap := models.Snapshot{Timestamp: at.UTC().Truncate(time.Second), Entities: entities}
	if err := uc.snapshots.Put(ctx, snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("ingest: %w", err)
	}
	uc.l.Info("snapshot ingested",
		applogger.String("file", path),
		applogger.Time("timestamp", snap.Timestamp),
		applogger.Int("entities", len(entities)),
	)
	return snap, nil
}
