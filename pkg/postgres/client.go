package postgres

import (
	"context"
	"fmt"
	"time"

	"PricePulse/pkg/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Client owns the ledger connection pool.
type Client struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewClient opens the pool and pings it.
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return NewFromDB(db, cfg.QueryTimeout), nil
}

// NewFromDB wraps an existing handle.
func NewFromDB(db *sqlx.DB, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{db: db, timeout: timeout}
}

func (c *Client) DB() *sqlx.DB { return c.db }

// QueryTimeout bounds every ledger statement.
func (c *Client) QueryTimeout() time.Duration { return c.timeout }

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Migrate creates the ledger tables if they do not exist.
func (c *Client) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	for _, stmt := range Schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// Schema is the idempotent DDL for the ledgers.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		entity_id         BIGINT NOT NULL,
		date              DATE NOT NULL,
		name              TEXT NOT NULL DEFAULT '',
		direction         TEXT NOT NULL,
		raw_score         DOUBLE PRECISION NOT NULL,
		confidence        DOUBLE PRECISION NOT NULL,
		alert_level       TEXT NOT NULL,
		bucket            TEXT NOT NULL,
		ownership         DOUBLE PRECISION NOT NULL,
		pressure          DOUBLE PRECISION NOT NULL,
		velocity          DOUBLE PRECISION NOT NULL,
		trend             DOUBLE PRECISION NOT NULL,
		regime            TEXT NOT NULL,
		locked            BOOLEAN NOT NULL DEFAULT FALSE,
		threshold_version TEXT NOT NULL,
		policy_version    TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (entity_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		entity_id     BIGINT NOT NULL,
		date          DATE NOT NULL,
		actual_change TEXT NOT NULL,
		price_before  DOUBLE PRECISION NOT NULL,
		price_after   DOUBLE PRECISION NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (entity_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS protection (
		entity_id  BIGINT PRIMARY KEY,
		lock_until DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS threshold_sets (
		version    TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		body       JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calibration_audit (
		id                BIGSERIAL PRIMARY KEY,
		run_at            TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL,
		samples           INTEGER NOT NULL,
		classified        INTEGER NOT NULL,
		accuracy          DOUBLE PRECISION NOT NULL,
		rise_quantile     DOUBLE PRECISION NOT NULL,
		fall_quantile     DOUBLE PRECISION NOT NULL,
		horizon_days      INTEGER NOT NULL,
		scope             TEXT NOT NULL,
		threshold_version TEXT NOT NULL,
		reason            TEXT NOT NULL DEFAULT ''
	)`,
}
