package models

import (
	"strings"
	"time"

	"PricePulse/pkg/util"
)

// Status is the normalised availability flag of an entity.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusExcluded Status = "excluded"
)

// ParseStatus maps raw upstream status codes to a Status.
// a/d are available (d = doubtful but still selectable); i/s/u/n are unavailable.
func ParseStatus(raw string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "a", "d", "normal":
		return StatusNormal, true
	case "i", "s", "u", "n", "excluded":
		return StatusExcluded, true
	default:
		return "", false
	}
}

// Entity is the state of one tracked entity inside a snapshot.
type Entity struct {
	ID           int64   `json:"entity_id" db:"entity_id"`
	Name         string  `json:"name" db:"name"`
	Team         string  `json:"team" db:"team"`
	Ownership    float64 `json:"ownership" db:"ownership"`
	Price        float64 `json:"price" db:"price"`
	TransfersIn  int64   `json:"transfers_in" db:"transfers_in"`
	TransfersOut int64   `json:"transfers_out" db:"transfers_out"`
	Status       Status  `json:"status" db:"status"`
}

// Excluded reports whether the entity is currently unavailable.
func (e Entity) Excluded() bool { return e.Status == StatusExcluded }

// Snapshot is an immutable point-in-time capture of the whole population.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Entities  []Entity  `json:"entities"`
}

// Date returns the UTC calendar day of the snapshot.
func (s Snapshot) Date() time.Time { return DayOf(s.Timestamp) }

// Index returns entities keyed by id.
func (s Snapshot) Index() map[int64]Entity {
	out := make(map[int64]Entity, len(s.Entities))
	for _, e := range s.Entities {
		out[e.ID] = e
	}
	return out
}

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time { return util.Day(t) }
