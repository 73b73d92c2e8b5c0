package repository

import (
	"context"
	"errors"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/cache"
	applogger "PricePulse/pkg/logger"
)

var currentThresholdKey = cache.Key("thresholds", "current")

var _ domrepo.ThresholdStore = (*CachedThresholdStore)(nil)

// CachedThresholdStore fronts a ThresholdStore with the shared cache so the
// HTTP API does not hit the ledger on every request. Cache failures fall
// through to the backing store.
type CachedThresholdStore struct {
	next  domrepo.ThresholdStore
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedThresholdStore(next domrepo.ThresholdStore, c cache.Service, ttl time.Duration) *CachedThresholdStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedThresholdStore{next: next, cache: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (s *CachedThresholdStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CachedThresholdStore) Current(ctx context.Context) (models.ThresholdSet, error) {
	var set models.ThresholdSet
	err := s.cache.Get(ctx, currentThresholdKey, &set)
	if err == nil && len(set.Cutoffs) > 0 {
		return set, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) && s.l != nil {
		s.l.Warn("threshold cache read failed", applogger.Error(err))
	}

	set, err = s.next.Current(ctx)
	if err != nil {
		return models.ThresholdSet{}, err
	}
	if err := s.cache.Set(ctx, currentThresholdKey, set, s.ttl); err != nil && s.l != nil {
		s.l.Warn("threshold cache write failed", applogger.Error(err))
	}
	return set, nil
}

func (s *CachedThresholdStore) Save(ctx context.Context, set models.ThresholdSet) error {
	if err := s.next.Save(ctx, set); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, currentThresholdKey); err != nil && s.l != nil {
		s.l.Warn("threshold cache invalidate failed", applogger.Error(err))
	}
	return nil
}

func (s *CachedThresholdStore) AppendAudit(ctx context.Context, audit models.CalibrationAudit) error {
	return s.next.AppendAudit(ctx, audit)
}

func (s *CachedThresholdStore) Audits(ctx context.Context) ([]models.CalibrationAudit, error) {
	return s.next.Audits(ctx)
}
