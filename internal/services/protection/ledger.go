package protection

import (
	"sort"
	"time"

	"PricePulse/internal/domain/models"
)

// DefaultCooldownDays is how long an entity stays locked after reinstatement.
const DefaultCooldownDays = 8

// Ledger answers "is this entity locked on this date" and records
// excluded-to-normal transitions. Entries are only ever extended.
type Ledger struct {
	entries  map[int64]models.ProtectionEntry
	cooldown int
}

// NewLedger wraps previously persisted entries.
func NewLedger(entries map[int64]models.ProtectionEntry, cooldownDays int) *Ledger {
	if cooldownDays < 0 {
		cooldownDays = DefaultCooldownDays
	}
	m := make(map[int64]models.ProtectionEntry, len(entries))
	for id, e := range entries {
		e.LockUntil = models.DayOf(e.LockUntil)
		m[id] = e
	}
	return &Ledger{entries: m, cooldown: cooldownDays}
}

// Update records entities that went from excluded in prev to normal in curr,
// locking them until curr's date plus the cooldown. It returns the entries
// that were inserted or extended, sorted by entity id.
func (l *Ledger) Update(prev, curr models.Snapshot) []models.ProtectionEntry {
	before := prev.Index()
	lockUntil := models.DayOf(curr.Date().AddDate(0, 0, l.cooldown))

	var changed []models.ProtectionEntry
	for _, e := range curr.Entities {
		p, ok := before[e.ID]
		if !ok || !p.Excluded() || e.Excluded() {
			continue
		}
		if cur, ok := l.entries[e.ID]; ok && !cur.LockUntil.Before(lockUntil) {
			continue
		}
		entry := models.ProtectionEntry{EntityID: e.ID, LockUntil: lockUntil}
		l.entries[e.ID] = entry
		changed = append(changed, entry)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].EntityID < changed[j].EntityID })
	return changed
}

// IsLocked reports whether e must be suppressed on date: either it is
// currently excluded, or its lock runs through date (inclusive).
func (l *Ledger) IsLocked(e models.Entity, date time.Time) bool {
	if e.Excluded() {
		return true
	}
	entry, ok := l.entries[e.ID]
	if !ok {
		return false
	}
	return !entry.LockUntil.Before(models.DayOf(date))
}

// Entry returns the stored entry for an entity.
func (l *Ledger) Entry(id int64) (models.ProtectionEntry, bool) {
	e, ok := l.entries[id]
	return e, ok
}

// Entries returns all entries sorted by entity id.
func (l *Ledger) Entries() []models.ProtectionEntry {
	out := make([]models.ProtectionEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}
