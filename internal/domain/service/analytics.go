package service

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
)

// RegimeDetector classifies the market regime from outcomes observed before asOf.
type RegimeDetector interface {
	Detect(ctx context.Context, outcomes []models.Outcome, asOf time.Time) (models.RegimeReading, error)
}

// Notifier delivers a run digest to an external sink.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, digest models.Digest) error
}

// Watchlist is a read-only predicate over entity names.
type Watchlist interface {
	Contains(name string) bool
	Empty() bool
}
