package postgres

import (
	"context"
	"testing"
	"time"

	"PricePulse/pkg/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresDSN(t *testing.T) {
	_, err := NewClient(context.Background(), config.PostgresConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	for range Schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	c := NewFromDB(sqlx.NewDb(mockDB, "postgres"), time.Second)
	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthPing(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)
	c := NewFromDB(sqlx.NewDb(mockDB, "postgres"), 0)
	assert.Equal(t, 30*time.Second, c.QueryTimeout())
	assert.Error(t, c.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
