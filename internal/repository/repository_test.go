package repository

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `entity_id,name,team,ownership,price,transfers_in,transfers_out,status
1,Alpha,ARS,12.5,6.0,1000,200,a
2,Beta,CHE,3.1,4.5,10,400,i
`

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestReadSnapshotCSV(t *testing.T) {
	ents, err := ReadSnapshotCSV(strings.NewReader(sampleCSV), "sample.csv")
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, int64(1), ents[0].ID)
	assert.Equal(t, models.StatusNormal, ents[0].Status)
	assert.Equal(t, models.StatusExcluded, ents[1].Status)
	assert.Equal(t, int64(400), ents[1].TransfersOut)
}

func TestReadSnapshotCSVSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"missing column": "entity_id,name,team,ownership,price,transfers_in,status\n1,A,T,1,1,1,a\n",
		"bad number":     "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,x,1,1,1,a\n",
		"duplicate":      "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,1,1,1,1,a\n1,B,T,1,1,1,1,a\n",
		"unknown status": "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,1,1,1,1,zz\n",
		"nan ownership":  "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,NaN,1,1,1,a\n",
		"inf price":      "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,1,+Inf,1,1,a\n",
		"negative price": "entity_id,name,team,ownership,price,transfers_in,transfers_out,status\n1,A,T,1,-0.5,1,1,a\n",
		"dup column":     "entity_id,name,team,ownership,price,transfers_in,transfers_out,status,Price\n1,A,T,1,1,1,1,a,9\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSnapshotCSV(strings.NewReader(body), "bad.csv")
			require.Error(t, err)
			assert.True(t, models.IsSchemaError(err), err.Error())
		})
	}
}

func TestReadSnapshotCSVRepeatedColumnNamesField(t *testing.T) {
	body := "entity_id,name,team,ownership,price,transfers_in,transfers_out,status, PRICE \n1,A,T,1,5,1,1,a,9\n"
	_, err := ReadSnapshotCSV(strings.NewReader(body), "dup.csv")
	require.Error(t, err)
	var se *models.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "price", se.Field)
	assert.Contains(t, se.Reason, "duplicate column")
}

func TestSnapshotCSVRoundTrip(t *testing.T) {
	ents, err := ReadSnapshotCSV(strings.NewReader(sampleCSV), "sample.csv")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshotCSV(&buf, ents))
	again, err := ReadSnapshotCSV(&buf, "roundtrip.csv")
	require.NoError(t, err)
	assert.Equal(t, ents, again)
}

func TestFileSnapshotStoreLatestAscending(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)

	ents, err := ReadSnapshotCSV(strings.NewReader(sampleCSV), "sample.csv")
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)
	for _, off := range []int{2, 0, 1} {
		require.NoError(t, store.Put(ctx, models.Snapshot{Timestamp: base.AddDate(0, 0, off), Entities: ents}))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	snaps, err := store.Latest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Timestamp.Equal(base.AddDate(0, 0, 1)))
	assert.True(t, snaps[1].Timestamp.Equal(base.AddDate(0, 0, 2)))
	assert.Len(t, snaps[1].Entities, 2)

	all, err := store.Latest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFileSnapshotStorePutExistingIsNoop(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileSnapshotStore(dir)
	ts := time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)

	first := []models.Entity{{ID: 1, Name: "A", Status: models.StatusNormal, Price: 5}}
	second := []models.Entity{{ID: 2, Name: "B", Status: models.StatusNormal, Price: 7}}
	require.NoError(t, store.Put(ctx, models.Snapshot{Timestamp: ts, Entities: first}))
	require.NoError(t, store.Put(ctx, models.Snapshot{Timestamp: ts, Entities: second}))

	snaps, err := store.Latest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(1), snaps[0].Entities[0].ID)
	assert.Equal(t, "snapshot_2024-03-01_02-30-00.csv", SnapshotFileName(ts))
}

func TestFileSnapshotStoreMissingDir(t *testing.T) {
	store := NewFileSnapshotStore(filepath.Join(t.TempDir(), "nope"))
	snaps, err := store.Latest(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestFilePredictionLedgerDedup(t *testing.T) {
	ctx := context.Background()
	ledger := NewFilePredictionLedger(t.TempDir())
	d := day(2024, 3, 2)

	_, err := ledger.Append(ctx, []models.Prediction{
		{EntityID: 1, Date: d, Direction: models.DirectionRise, Confidence: 0.5},
		{EntityID: 2, Date: d, Direction: models.DirectionFall, Confidence: 0.7},
	})
	require.NoError(t, err)
	_, err = ledger.Append(ctx, []models.Prediction{
		{EntityID: 1, Date: d.Add(5 * time.Hour), Direction: models.DirectionRise, Confidence: 0.8},
		{EntityID: 2, Date: d, Direction: models.DirectionFall, Confidence: 0.6},
	})
	require.NoError(t, err)

	preds, err := ledger.Load(ctx)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, 0.8, preds[0].Confidence)
	assert.Equal(t, 0.7, preds[1].Confidence)
}

func TestFileOutcomeLedgerIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := NewFileOutcomeLedger(t.TempDir())
	out := []models.Outcome{{EntityID: 3, Date: day(2024, 3, 2), ActualChange: models.DirectionRise, PriceBefore: 5, PriceAfter: 5.1}}

	for i := 0; i < 2; i++ {
		_, err := ledger.Append(ctx, out)
		require.NoError(t, err)
	}
	got, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileThresholdStoreDefaultAndAudit(t *testing.T) {
	ctx := context.Background()
	store := NewFileThresholdStore(t.TempDir())

	cur, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultThresholdVersion, cur.Version)

	set := models.DefaultThresholdSet()
	set.Version = "v2"
	require.NoError(t, store.Save(ctx, set))
	cur, err = store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", cur.Version)

	require.NoError(t, store.AppendAudit(ctx, models.CalibrationAudit{Status: models.AuditInsufficientData}))
	require.NoError(t, store.AppendAudit(ctx, models.CalibrationAudit{Status: models.AuditCalibrated}))
	audits, err := store.Audits(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, models.AuditCalibrated, audits[1].Status)
}

func TestFileProtectionStoreKeepsLaterLock(t *testing.T) {
	ctx := context.Background()
	store := NewFileProtectionStore(t.TempDir())

	require.NoError(t, store.Upsert(ctx, []models.ProtectionEntry{{EntityID: 1, LockUntil: day(2024, 3, 10)}}))
	require.NoError(t, store.Upsert(ctx, []models.ProtectionEntry{
		{EntityID: 1, LockUntil: day(2024, 3, 8)},
		{EntityID: 2, LockUntil: day(2024, 3, 9)},
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].LockUntil.Equal(day(2024, 3, 10)))
	assert.True(t, got[2].LockUntil.Equal(day(2024, 3, 9)))
}

func TestCacheRunLock(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()

	a := NewCacheRunLock(mc)
	b := NewCacheRunLock(mc)
	assert.NotEqual(t, a.Owner(), b.Owner())

	ok, err := a.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, b.Release(ctx))

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type countingStore struct {
	*FileThresholdStore
	reads int
}

func (c *countingStore) Current(ctx context.Context) (models.ThresholdSet, error) {
	c.reads++
	return c.FileThresholdStore.Current(ctx)
}

func TestCachedThresholdStore(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	backing := &countingStore{FileThresholdStore: NewFileThresholdStore(t.TempDir())}
	store := NewCachedThresholdStore(backing, mc, time.Minute)

	for i := 0; i < 3; i++ {
		cur, err := store.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultThresholdVersion, cur.Version)
	}
	assert.Equal(t, 1, backing.reads)

	set := models.DefaultThresholdSet()
	set.Version = "v9"
	require.NoError(t, store.Save(ctx, set))
	cur, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v9", cur.Version)
	assert.Equal(t, 2, backing.reads)
}

func TestReadWatchlistCSV(t *testing.T) {
	names, err := ReadWatchlistCSV(strings.NewReader("team,name\nARS,Alpha\nCHE, Beta \nMUN,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names)

	_, err = ReadWatchlistCSV(strings.NewReader("player\nAlpha\n"))
	assert.Error(t, err)

	names, err = LoadWatchlistNames(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
