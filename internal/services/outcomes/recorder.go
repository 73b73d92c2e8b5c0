package outcomes

import (
	"fmt"
	"sort"
	"time"

	"PricePulse/internal/domain/models"
)

const priceEpsilon = 1e-9

// Recorder derives realised outcomes from two snapshots. It never looks at
// predictions.
type Recorder struct {
	skipUnchanged bool
}

// NewRecorder builds a recorder. With skipUnchanged, entities whose value did
// not move are not recorded as "none".
func NewRecorder(skipUnchanged bool) *Recorder {
	return &Recorder{skipUnchanged: skipUnchanged}
}

// Record classifies the price move of every entity present in both snapshots.
// Outcomes are dated on curr's day and stamped with curr's timestamp, so
// recording the same pair twice yields identical rows.
func (r *Recorder) Record(prev, curr models.Snapshot) ([]models.Outcome, error) {
	if !curr.Timestamp.After(prev.Timestamp) {
		return nil, fmt.Errorf("record outcomes: snapshot %s is not after %s",
			curr.Timestamp.Format(time.RFC3339), prev.Timestamp.Format(time.RFC3339))
	}

	before := prev.Index()
	date := curr.Date()
	out := make([]models.Outcome, 0, len(curr.Entities))
	for _, e := range curr.Entities {
		p, ok := before[e.ID]
		if !ok {
			continue
		}
		change := Classify(p.Price, e.Price)
		if change == models.DirectionNone && r.skipUnchanged {
			continue
		}
		out = append(out, models.Outcome{
			EntityID:     e.ID,
			Date:         date,
			ActualChange: change,
			PriceBefore:  p.Price,
			PriceAfter:   e.Price,
			RecordedAt:   curr.Timestamp.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// Classify maps a value transition to a direction.
func Classify(before, after float64) models.Direction {
	switch d := after - before; {
	case d > priceEpsilon:
		return models.DirectionRise
	case d < -priceEpsilon:
		return models.DirectionFall
	default:
		return models.DirectionNone
	}
}
