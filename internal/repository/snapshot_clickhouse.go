package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	pkgch "PricePulse/pkg/clickhouse"
	applogger "PricePulse/pkg/logger"
)

var _ domrepo.SnapshotRepository = (*CHSnapshotStore)(nil)

// CHSnapshotStore implements SnapshotRepository backed by ClickHouse.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSnapshotStore(ch *pkgch.Client) *CHSnapshotStore {
	return NewCHSnapshotStoreFromDB(ch.DB(), ch.Database())
}

// NewCHSnapshotStoreFromDB builds a store over an existing handle.
func NewCHSnapshotStoreFromDB(db *sql.DB, database string) *CHSnapshotStore {
	table := "snapshots"
	if database != "" {
		table = database + ".snapshots"
	}
	return &CHSnapshotStore{db: db, table: table}
}

// SetLogger injects a structured logger.
func (s *CHSnapshotStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSnapshotStore) Latest(ctx context.Context, n int) ([]models.Snapshot, error) {
	start := time.Now()
	stamps, err := s.latestStamps(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(stamps))
	args := make([]interface{}, len(stamps))
	for i, ts := range stamps {
		placeholders[i] = "?"
		args[i] = ts
	}
	q := fmt.Sprintf(`
        SELECT captured_at, entity_id, name, team, ownership, price, transfers_in, transfers_out, status
        FROM %s FINAL
        WHERE captured_at IN (%s)
        ORDER BY captured_at ASC, entity_id ASC
    `, s.table, strings.Join(placeholders, ", "))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshots query error", applogger.String("table", s.table), applogger.Error(err))
		}
		return nil, fmt.Errorf("get snapshots: %w", err)
	}
	defer rows.Close()

	byTS := make(map[int64]*models.Snapshot, len(stamps))
	out := make([]models.Snapshot, 0, len(stamps))
	for _, ts := range stamps {
		out = append(out, models.Snapshot{Timestamp: ts.UTC()})
	}
	for i := range out {
		byTS[out[i].Timestamp.UnixNano()] = &out[i]
	}
	for rows.Next() {
		var (
			ts     time.Time
			e      models.Entity
			status string
		)
		if err := rows.Scan(&ts, &e.ID, &e.Name, &e.Team, &e.Ownership, &e.Price, &e.TransfersIn, &e.TransfersOut, &status); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse snapshots scan error", applogger.String("table", s.table), applogger.Error(err))
			}
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		e.Status = models.Status(status)
		snap, ok := byTS[ts.UnixNano()]
		if !ok {
			continue
		}
		snap.Entities = append(snap.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse snapshots ok",
			applogger.String("table", s.table),
			applogger.Int("snapshots", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// latestStamps returns the n most recent capture times, oldest first.
func (s *CHSnapshotStore) latestStamps(ctx context.Context, n int) ([]time.Time, error) {
	q := fmt.Sprintf(`
        SELECT DISTINCT captured_at
        FROM %s
        ORDER BY captured_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse snapshot stamps query error", applogger.String("table", s.table), applogger.Int("limit", n), applogger.Error(err))
		}
		return nil, fmt.Errorf("get snapshot stamps: %w", err)
	}
	defer rows.Close()

	var tmp []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan snapshot stamp: %w", err)
		}
		tmp = append(tmp, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ascending
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

// Put inserts the snapshot rows in one batch. A timestamp already present is
// skipped.
func (s *CHSnapshotStore) Put(ctx context.Context, snap models.Snapshot) error {
	ts := snap.Timestamp.UTC()
	var existing uint64
	q := fmt.Sprintf("SELECT count() FROM %s WHERE captured_at = ?", s.table)
	if err := s.db.QueryRowContext(ctx, q, ts).Scan(&existing); err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	if existing > 0 {
		if s.l != nil {
			s.l.Info("snapshot already stored", applogger.Time("captured_at", ts))
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (captured_at, entity_id, name, team, ownership, price, transfers_in, transfers_out, status)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}
	defer stmt.Close()
	for _, e := range snap.Entities {
		if _, err := stmt.ExecContext(ctx, ts, e.ID, e.Name, e.Team, e.Ownership, e.Price, e.TransfersIn, e.TransfersOut, string(e.Status)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append snapshot row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot batch: %w", err)
	}
	if s.l != nil {
		s.l.Info("snapshot stored",
			applogger.Time("captured_at", ts),
			applogger.Int("rows", len(snap.Entities)),
		)
	}
	return nil
}
