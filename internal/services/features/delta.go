package features

import (
	"fmt"
	"sort"
	"time"

	"PricePulse/internal/domain/models"
)

// Diff returns the signed change of every tracked counter going from a to b.
// Diff(a, b) is the exact negation of Diff(b, a).
func Diff(from, to models.Entity, ts time.Time) models.Delta {
	in := to.TransfersIn - from.TransfersIn
	out := to.TransfersOut - from.TransfersOut
	return models.Delta{
		EntityID:     to.ID,
		Timestamp:    ts,
		TransfersIn:  in,
		TransfersOut: out,
		NetTransfers: in - out,
		Price:        to.Price - from.Price,
		Ownership:    to.Ownership - from.Ownership,
	}
}

// ComputeDeltas diffs entities present in both snapshots. curr must be strictly
// later than prev. The result is sorted by entity id.
func ComputeDeltas(prev, curr models.Snapshot) ([]models.Delta, error) {
	if !curr.Timestamp.After(prev.Timestamp) {
		return nil, fmt.Errorf("compute deltas: snapshot %s is not after %s",
			curr.Timestamp.Format(time.RFC3339), prev.Timestamp.Format(time.RFC3339))
	}

	before := prev.Index()
	out := make([]models.Delta, 0, len(curr.Entities))
	for _, e := range curr.Entities {
		p, ok := before[e.ID]
		if !ok {
			continue
		}
		out = append(out, Diff(p, e, curr.Timestamp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// OrderSnapshots returns a copy sorted by timestamp, rejecting duplicates.
func OrderSnapshots(snaps []models.Snapshot) ([]models.Snapshot, error) {
	if len(snaps) < 2 {
		return nil, models.ErrInsufficientSnapshots
	}
	out := make([]models.Snapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Equal(out[i-1].Timestamp) {
			return nil, fmt.Errorf("order snapshots: duplicate timestamp %s", out[i].Timestamp.Format(time.RFC3339))
		}
	}
	return out, nil
}

// DeltaSeries computes deltas for each consecutive snapshot pair, oldest first.
func DeltaSeries(snaps []models.Snapshot) ([][]models.Delta, error) {
	ordered, err := OrderSnapshots(snaps)
	if err != nil {
		return nil, err
	}
	series := make([][]models.Delta, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		ds, err := ComputeDeltas(ordered[i-1], ordered[i])
		if err != nil {
			return nil, err
		}
		series = append(series, ds)
	}
	return series, nil
}
