package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

func snap(day int, entities ...models.Entity) models.Snapshot {
	return models.Snapshot{Timestamp: t0.AddDate(0, 0, day), Entities: entities}
}

func ent(id, in, out int64, price, own float64) models.Entity {
	return models.Entity{ID: id, TransfersIn: in, TransfersOut: out, Price: price, Ownership: own, Status: models.StatusNormal}
}

func TestDiffIsAntisymmetric(t *testing.T) {
	a := ent(1, 1000, 400, 5.5, 2.1)
	b := ent(1, 5200, 900, 5.6, 3.4)

	ab := Diff(a, b, t0)
	ba := Diff(b, a, t0)

	assert.Equal(t, -ab.TransfersIn, ba.TransfersIn)
	assert.Equal(t, -ab.TransfersOut, ba.TransfersOut)
	assert.Equal(t, -ab.NetTransfers, ba.NetTransfers)
	assert.InDelta(t, -ab.Price, ba.Price, 1e-12)
	assert.InDelta(t, -ab.Ownership, ba.Ownership, 1e-12)
	assert.Equal(t, int64(4200-500), ab.NetTransfers)
}

func TestComputeDeltasInnerJoin(t *testing.T) {
	prev := snap(0, ent(1, 10, 0, 5, 1), ent(2, 20, 0, 6, 1))
	curr := snap(1, ent(2, 25, 5, 6, 1), ent(3, 1, 0, 4, 1))

	ds, err := ComputeDeltas(prev, curr)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, int64(2), ds[0].EntityID)
	assert.Equal(t, int64(0), ds[0].NetTransfers)
	assert.Equal(t, curr.Timestamp, ds[0].Timestamp)
}

func TestComputeDeltasRejectsOutOfOrder(t *testing.T) {
	_, err := ComputeDeltas(snap(1), snap(0))
	require.Error(t, err)
	_, err = ComputeDeltas(snap(1), snap(1))
	require.Error(t, err)
}

func TestDeltaSeriesNeedsTwoSnapshots(t *testing.T) {
	_, err := DeltaSeries([]models.Snapshot{snap(0)})
	assert.True(t, errors.Is(err, models.ErrInsufficientSnapshots))
}

func TestDeltaSeriesSortsInput(t *testing.T) {
	series, err := DeltaSeries([]models.Snapshot{
		snap(2, ent(1, 30, 0, 5, 1)),
		snap(0, ent(1, 10, 0, 5, 1)),
		snap(1, ent(1, 15, 0, 5, 1)),
	})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, int64(5), series[0][0].NetTransfers)
	assert.Equal(t, int64(15), series[1][0].NetTransfers)
}

func TestDecayWeights(t *testing.T) {
	assert.Equal(t, []float64{1, 0.5, 0.25, 0.125}, DecayWeights(4, 0.5))
}

func TestComputeMomentumWeightsRecentDeltasHighest(t *testing.T) {
	series := [][]models.Delta{
		{{EntityID: 1, NetTransfers: 100}},
		{{EntityID: 1, NetTransfers: 300}},
	}
	ms := ComputeMomentum(series, MomentumConfig{Window: 4, Decay: 0.5})
	require.Len(t, ms, 1)
	// (1*300 + 0.5*100) / 1.5
	assert.InDelta(t, 350.0/1.5, ms[0].Velocity, 1e-9)
	assert.Equal(t, int64(300), ms[0].NetNow)
	assert.Equal(t, 2, ms[0].Samples)
}

func TestComputeMomentumUsesOnlyWindow(t *testing.T) {
	series := [][]models.Delta{
		{{EntityID: 1, NetTransfers: 1_000_000}},
		{{EntityID: 1, NetTransfers: 10}},
		{{EntityID: 1, NetTransfers: 10}},
	}
	ms := ComputeMomentum(series, MomentumConfig{Window: 2, Decay: 0.5})
	require.Len(t, ms, 1)
	assert.InDelta(t, 10, ms[0].Velocity, 1e-9)
}

func TestTrendIsBoundedAndZeroWhenFlat(t *testing.T) {
	series := [][]models.Delta{{
		{EntityID: 1, NetTransfers: 1_000_000},
		{EntityID: 2, NetTransfers: 10},
		{EntityID: 3, NetTransfers: -10},
	}}
	ms := ComputeMomentum(series, DefaultMomentumConfig())
	for _, m := range ms {
		assert.True(t, m.Trend > -1 && m.Trend < 1, "trend %v out of range", m.Trend)
	}
	assert.Greater(t, ms[0].Trend, 0.9)
	assert.InDelta(t, -ms[1].Trend, ms[2].Trend, 1e-12)

	flat := ComputeMomentum([][]models.Delta{{{EntityID: 1}, {EntityID: 2}}}, DefaultMomentumConfig())
	for _, m := range flat {
		assert.Equal(t, 0.0, m.Trend)
	}
}

func TestComputeMomentumIsDeterministic(t *testing.T) {
	snaps := []models.Snapshot{
		snap(0, ent(1, 0, 0, 5, 1), ent(2, 0, 0, 5, 1), ent(3, 0, 0, 5, 1)),
		snap(1, ent(3, 50, 1, 5, 1), ent(1, 10, 3, 5, 1), ent(2, 7, 70, 5, 1)),
		snap(2, ent(2, 9, 90, 5, 1), ent(1, 40, 5, 5, 1), ent(3, 60, 2, 5, 1)),
	}
	s1, err := DeltaSeries(snaps)
	require.NoError(t, err)
	s2, err := DeltaSeries(snaps)
	require.NoError(t, err)
	assert.Equal(t, ComputeMomentum(s1, DefaultMomentumConfig()), ComputeMomentum(s2, DefaultMomentumConfig()))
}

func TestQuantileInterpolates(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	assert.Equal(t, 1.0, Quantile(xs, 0))
	assert.Equal(t, 4.0, Quantile(xs, 1))
	assert.InDelta(t, 2.5, Quantile(xs, 0.5), 1e-12)
	assert.InDelta(t, 3.7, Quantile(xs, 0.9), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs)
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestSaturate(t *testing.T) {
	out := Saturate([]float64{2, -2})
	assert.InDelta(t, math.Tanh(1), out[0], 1e-12)
	assert.InDelta(t, -math.Tanh(1), out[1], 1e-12)
}
