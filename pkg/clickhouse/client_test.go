package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "pricepulse", User: "default", Password: "p@ss",
		DialTimeout: 5 * time.Second, MaxExecTime: time.Minute, AsyncInsert: true, WaitForAsync: true,
	})
	assert.True(t, strings.HasPrefix(dsn, "clickhouse://default:p%40ss@ch:9000/pricepulse?"), dsn)
	assert.Contains(t, dsn, "dial_timeout=5s")
	assert.Contains(t, dsn, "max_execution_time=60")
	assert.Contains(t, dsn, "async_insert=1")
	assert.Contains(t, dsn, "wait_for_async_insert=1")
	assert.NotContains(t, dsn, "write_timeout")
}

func TestSnapshotSchemaUsesDatabase(t *testing.T) {
	stmts := SnapshotSchema("pp_test")
	assert.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "pp_test.snapshots")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}
