package protection

import (
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)

func entity(id int64, status models.Status) models.Entity {
	return models.Entity{ID: id, Status: status}
}

func TestUpdateLocksReinstatedEntity(t *testing.T) {
	l := NewLedger(nil, 8)
	prev := models.Snapshot{Timestamp: day0, Entities: []models.Entity{
		entity(1, models.StatusExcluded),
		entity(2, models.StatusNormal),
		entity(3, models.StatusExcluded),
	}}
	curr := models.Snapshot{Timestamp: day0.AddDate(0, 0, 1), Entities: []models.Entity{
		entity(1, models.StatusNormal),
		entity(2, models.StatusNormal),
		entity(3, models.StatusExcluded),
	}}

	changed := l.Update(prev, curr)
	require.Len(t, changed, 1)
	assert.Equal(t, int64(1), changed[0].EntityID)
	assert.Equal(t, time.Date(2025, 4, 19, 0, 0, 0, 0, time.UTC), changed[0].LockUntil)

	// rerun over the same pair changes nothing
	assert.Empty(t, l.Update(prev, curr))
}

func TestIsLockedBoundary(t *testing.T) {
	d := time.Date(2025, 4, 19, 0, 0, 0, 0, time.UTC)
	l := NewLedger(map[int64]models.ProtectionEntry{7: {EntityID: 7, LockUntil: d}}, 8)
	e := entity(7, models.StatusNormal)

	assert.True(t, l.IsLocked(e, d.AddDate(0, 0, -3)))
	assert.True(t, l.IsLocked(e, d))
	assert.True(t, l.IsLocked(e, d.Add(23*time.Hour)), "same day later snapshot is still locked")
	assert.False(t, l.IsLocked(e, d.AddDate(0, 0, 1)))
}

func TestIsLockedWhileExcluded(t *testing.T) {
	l := NewLedger(nil, 8)
	assert.True(t, l.IsLocked(entity(9, models.StatusExcluded), day0))
	assert.False(t, l.IsLocked(entity(9, models.StatusNormal), day0))
}

func TestUpdateNeverShortensLock(t *testing.T) {
	far := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	l := NewLedger(map[int64]models.ProtectionEntry{1: {EntityID: 1, LockUntil: far}}, 8)
	prev := models.Snapshot{Timestamp: day0, Entities: []models.Entity{entity(1, models.StatusExcluded)}}
	curr := models.Snapshot{Timestamp: day0.AddDate(0, 0, 1), Entities: []models.Entity{entity(1, models.StatusNormal)}}

	assert.Empty(t, l.Update(prev, curr))
	e, ok := l.Entry(1)
	require.True(t, ok)
	assert.Equal(t, far, e.LockUntil)
}
