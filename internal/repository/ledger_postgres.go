package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/postgres"

	"github.com/jmoiron/sqlx"
)

var (
	_ domrepo.PredictionLedger = (*PGLedger)(nil)
	_ domrepo.ThresholdStore   = (*PGThresholdStore)(nil)
	_ domrepo.ProtectionStore  = (*PGProtectionStore)(nil)
	_ domrepo.OutcomeLedger    = (*PGOutcomeLedger)(nil)
)

const (
	upsertPredictionSQL = `
		INSERT INTO predictions (entity_id, date, name, direction, raw_score, confidence, alert_level, bucket,
			ownership, pressure, velocity, trend, regime, locked, threshold_version, policy_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (entity_id, date) DO UPDATE SET
			name = EXCLUDED.name, direction = EXCLUDED.direction, raw_score = EXCLUDED.raw_score,
			confidence = EXCLUDED.confidence, alert_level = EXCLUDED.alert_level, bucket = EXCLUDED.bucket,
			ownership = EXCLUDED.ownership, pressure = EXCLUDED.pressure, velocity = EXCLUDED.velocity,
			trend = EXCLUDED.trend, regime = EXCLUDED.regime, locked = EXCLUDED.locked,
			threshold_version = EXCLUDED.threshold_version, policy_version = EXCLUDED.policy_version,
			created_at = EXCLUDED.created_at
		WHERE EXCLUDED.confidence > predictions.confidence
			OR (EXCLUDED.confidence = predictions.confidence AND EXCLUDED.created_at >= predictions.created_at)`

	selectPredictionsSQL = `
		SELECT entity_id, date, name, direction, raw_score, confidence, alert_level, bucket, ownership,
			pressure, velocity, trend, regime, locked, threshold_version, policy_version, created_at
		FROM predictions ORDER BY date, entity_id`

	upsertOutcomeSQL = `
		INSERT INTO outcomes (entity_id, date, actual_change, price_before, price_after, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entity_id, date) DO UPDATE SET
			actual_change = EXCLUDED.actual_change, price_before = EXCLUDED.price_before,
			price_after = EXCLUDED.price_after, recorded_at = EXCLUDED.recorded_at
		WHERE EXCLUDED.recorded_at >= outcomes.recorded_at`

	selectOutcomesSQL = `
		SELECT entity_id, date, actual_change, price_before, price_after, recorded_at
		FROM outcomes ORDER BY date, entity_id`

	upsertProtectionSQL = `
		INSERT INTO protection (entity_id, lock_until) VALUES ($1, $2)
		ON CONFLICT (entity_id) DO UPDATE SET lock_until = GREATEST(protection.lock_until, EXCLUDED.lock_until)`

	selectProtectionSQL = `SELECT entity_id, lock_until FROM protection`

	upsertThresholdSQL = `
		INSERT INTO threshold_sets (version, created_at, body) VALUES ($1, $2, $3)
		ON CONFLICT (version) DO UPDATE SET created_at = EXCLUDED.created_at, body = EXCLUDED.body`

	currentThresholdSQL = `SELECT body FROM threshold_sets ORDER BY created_at DESC LIMIT 1`

	insertAuditSQL = `
		INSERT INTO calibration_audit (run_at, status, samples, classified, accuracy, rise_quantile,
			fall_quantile, horizon_days, scope, threshold_version, reason)
		VALUES (:run_at, :status, :samples, :classified, :accuracy, :rise_quantile,
			:fall_quantile, :horizon_days, :scope, :threshold_version, :reason)`

	selectAuditSQL = `
		SELECT run_at, status, samples, classified, accuracy, rise_quantile, fall_quantile,
			horizon_days, scope, threshold_version, reason
		FROM calibration_audit ORDER BY run_at, id`
)

type pgBase struct {
	db      *sqlx.DB
	timeout time.Duration
	l       *applogger.Logger
}

// SetLogger injects a structured logger.
func (b *pgBase) SetLogger(l *applogger.Logger) { b.l = l }

func (b *pgBase) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// inTx runs every row of a batch through one prepared statement inside a
// single transaction.
func (b *pgBase) inTx(ctx context.Context, query string, n int, args func(i int) []interface{}) error {
	ctx, cancel := b.ctx(ctx)
	defer cancel()

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("exec row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PGLedger is the Postgres prediction ledger.
type PGLedger struct{ pgBase }

func NewPGPredictionLedger(c *postgres.Client) *PGLedger {
	return &PGLedger{pgBase{db: c.DB(), timeout: c.QueryTimeout()}}
}

func (s *PGLedger) Load(ctx context.Context) ([]models.Prediction, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var preds []models.Prediction
	if err := s.db.SelectContext(ctx, &preds, selectPredictionsSQL); err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	for i := range preds {
		preds[i].Date = models.DayOf(preds[i].Date)
	}
	return preds, nil
}

func (s *PGLedger) Append(ctx context.Context, preds []models.Prediction) (int, error) {
	if len(preds) == 0 {
		return 0, nil
	}
	err := s.inTx(ctx, upsertPredictionSQL, len(preds), func(i int) []interface{} {
		p := preds[i]
		return []interface{}{
			p.EntityID, models.DayOf(p.Date), p.Name, string(p.Direction), p.RawScore, p.Confidence,
			string(p.AlertLevel), string(p.Bucket), p.Ownership, p.Pressure, p.Velocity, p.Trend,
			string(p.Regime), p.Locked, p.ThresholdVersion, p.PolicyVersion, p.CreatedAt,
		}
	})
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres append predictions failed", applogger.Int("rows", len(preds)), applogger.Error(err))
		}
		return 0, fmt.Errorf("append predictions: %w", err)
	}
	return len(preds), nil
}

// PGOutcomeLedger is the Postgres outcome ledger.
type PGOutcomeLedger struct{ pgBase }

func NewPGOutcomeLedger(c *postgres.Client) *PGOutcomeLedger {
	return &PGOutcomeLedger{pgBase{db: c.DB(), timeout: c.QueryTimeout()}}
}

func (s *PGOutcomeLedger) Load(ctx context.Context) ([]models.Outcome, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var outs []models.Outcome
	if err := s.db.SelectContext(ctx, &outs, selectOutcomesSQL); err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	for i := range outs {
		outs[i].Date = models.DayOf(outs[i].Date)
	}
	return outs, nil
}

func (s *PGOutcomeLedger) Append(ctx context.Context, outcomes []models.Outcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}
	err := s.inTx(ctx, upsertOutcomeSQL, len(outcomes), func(i int) []interface{} {
		o := outcomes[i]
		return []interface{}{o.EntityID, models.DayOf(o.Date), string(o.ActualChange), o.PriceBefore, o.PriceAfter, o.RecordedAt}
	})
	if err != nil {
		return 0, fmt.Errorf("append outcomes: %w", err)
	}
	return len(outcomes), nil
}

// PGProtectionStore is the Postgres protection ledger.
type PGProtectionStore struct{ pgBase }

func NewPGProtectionStore(c *postgres.Client) *PGProtectionStore {
	return &PGProtectionStore{pgBase{db: c.DB(), timeout: c.QueryTimeout()}}
}

func (s *PGProtectionStore) Load(ctx context.Context) (map[int64]models.ProtectionEntry, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var list []models.ProtectionEntry
	if err := s.db.SelectContext(ctx, &list, selectProtectionSQL); err != nil {
		return nil, fmt.Errorf("load protection: %w", err)
	}
	out := make(map[int64]models.ProtectionEntry, len(list))
	for _, e := range list {
		e.LockUntil = models.DayOf(e.LockUntil)
		out[e.EntityID] = e
	}
	return out, nil
}

func (s *PGProtectionStore) Upsert(ctx context.Context, entries []models.ProtectionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.inTx(ctx, upsertProtectionSQL, len(entries), func(i int) []interface{} {
		return []interface{}{entries[i].EntityID, models.DayOf(entries[i].LockUntil)}
	})
	if err != nil {
		return fmt.Errorf("upsert protection: %w", err)
	}
	return nil
}

// PGThresholdStore keeps every threshold set as JSONB; the newest is current.
type PGThresholdStore struct{ pgBase }

func NewPGThresholdStore(c *postgres.Client) *PGThresholdStore {
	return &PGThresholdStore{pgBase{db: c.DB(), timeout: c.QueryTimeout()}}
}

func (s *PGThresholdStore) Current(ctx context.Context) (models.ThresholdSet, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var body []byte
	err := s.db.QueryRowxContext(ctx, currentThresholdSQL).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultThresholdSet(), nil
	}
	if err != nil {
		return models.ThresholdSet{}, fmt.Errorf("load thresholds: %w", err)
	}
	var set models.ThresholdSet
	if err := json.Unmarshal(body, &set); err != nil {
		return models.ThresholdSet{}, fmt.Errorf("decode thresholds: %w", err)
	}
	return set, nil
}

func (s *PGThresholdStore) Save(ctx context.Context, set models.ThresholdSet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	createdAt := set.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, upsertThresholdSQL, set.Version, createdAt, body); err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}

func (s *PGThresholdStore) AppendAudit(ctx context.Context, audit models.CalibrationAudit) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if _, err := s.db.NamedExecContext(ctx, insertAuditSQL, audit); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *PGThresholdStore) Audits(ctx context.Context) ([]models.CalibrationAudit, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var audits []models.CalibrationAudit
	if err := s.db.SelectContext(ctx, &audits, selectAuditSQL); err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	return audits, nil
}
