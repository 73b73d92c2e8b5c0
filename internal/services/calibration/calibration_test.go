package calibration

import (
	"encoding/json"
	"testing"
	"time"

	"PricePulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d0 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return d0.AddDate(0, 0, n) }

func pred(id int64, at time.Time, dir models.Direction, conf float64, alert models.AlertLevel) models.Prediction {
	return models.Prediction{
		EntityID: id, Date: at, Direction: dir, Confidence: conf, AlertLevel: alert,
		Bucket: models.BucketLow, Ownership: 2,
	}
}

func outcome(id int64, at time.Time, change models.Direction) models.Outcome {
	return models.Outcome{EntityID: id, Date: at, ActualChange: change, RecordedAt: at}
}

func TestCausalJoinIsStrict(t *testing.T) {
	preds := []models.Prediction{pred(1, day(0).Add(7*time.Hour), models.DirectionRise, 0.9, models.AlertImminent)}
	outs := []models.Outcome{
		outcome(1, day(-1), models.DirectionRise),
		outcome(1, day(0), models.DirectionRise),
		outcome(1, day(2), models.DirectionRise),
	}

	assert.Empty(t, CausalJoin(preds, outs, models.ScopeImminent, 1), "same-day and earlier outcomes must never match")

	pairs := CausalJoin(preds, outs, models.ScopeImminent, 2)
	require.Len(t, pairs, 1)
	assert.Equal(t, day(2), pairs[0].Outcome.Date)
	for _, p := range pairs {
		assert.True(t, p.Outcome.Date.After(p.Prediction.Date))
	}
}

func TestCausalJoinPrefersEarliestDirectionalOutcome(t *testing.T) {
	preds := []models.Prediction{pred(1, day(0), models.DirectionFall, 0.9, models.AlertImminent)}
	outs := []models.Outcome{
		outcome(1, day(3), models.DirectionRise),
		outcome(1, day(1), models.DirectionNone),
		outcome(1, day(2), models.DirectionFall),
	}
	pairs := CausalJoin(preds, outs, models.ScopeImminent, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, day(2), pairs[0].Outcome.Date)
	assert.True(t, pairs[0].Correct())

	pairs = CausalJoin(preds, outs[1:2], models.ScopeImminent, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, models.DirectionNone, pairs[0].Outcome.ActualChange)
	assert.False(t, pairs[0].Correct())
}

func TestCausalJoinScope(t *testing.T) {
	preds := []models.Prediction{
		pred(1, day(0), models.DirectionRise, 0.9, models.AlertImminent),
		pred(2, day(0), models.DirectionRise, 0.5, models.AlertWarming),
		pred(3, day(0), models.DirectionNone, 0.0, models.AlertNone),
	}
	outs := []models.Outcome{
		outcome(1, day(1), models.DirectionRise),
		outcome(2, day(1), models.DirectionRise),
		outcome(3, day(1), models.DirectionRise),
	}
	assert.Len(t, CausalJoin(preds, outs, models.ScopeImminent, 1), 1)
	assert.Len(t, CausalJoin(preds, outs, models.ScopeActionable, 1), 2)
}

// history builds ten rise and ten fall imminent predictions on day 0. Only the
// two most confident of each side are right; the rest resolve to none.
func history() ([]models.Prediction, []models.Outcome) {
	var preds []models.Prediction
	var outs []models.Outcome
	for i := 0; i < 10; i++ {
		riseID, fallID := int64(100+i), int64(200+i)
		preds = append(preds,
			pred(riseID, day(0), models.DirectionRise, 0.60+0.04*float64(i), models.AlertImminent),
			pred(fallID, day(0), models.DirectionFall, 0.70+0.03*float64(i), models.AlertImminent),
		)
		riseOut, fallOut := models.DirectionNone, models.DirectionNone
		if i >= 8 {
			riseOut, fallOut = models.DirectionRise, models.DirectionFall
		}
		outs = append(outs, outcome(riseID, day(1), riseOut), outcome(fallID, day(1), fallOut))
		// same-day outcomes contradicting every prediction must be ignored
		outs = append(outs, outcome(riseID, day(0), models.DirectionFall), outcome(fallID, day(0), models.DirectionRise))
	}
	return preds, outs
}

func newTestCalibrator() *Calibrator {
	return NewCalibrator(DefaultOptions(),
		WithClock(func() time.Time { return day(5) }),
		WithVersioner(func() string { return "v-test" }),
	)
}

func TestCalibrateColdStartLeavesThresholdsUntouched(t *testing.T) {
	current := models.DefaultThresholdSet()
	before, err := json.Marshal(current)
	require.NoError(t, err)

	preds, outs := history()
	res := newTestCalibrator().Calibrate(current, preds[:3], outs)

	assert.Equal(t, models.AuditInsufficientData, res.Status)
	assert.False(t, res.Changed)
	assert.Equal(t, 3, res.Pairs)
	after, err := json.Marshal(res.Set)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, models.AuditInsufficientData, res.Audit.Status)
	assert.Equal(t, models.DefaultThresholdVersion, res.Audit.ThresholdVersion)
	assert.NotEmpty(t, res.Audit.Reason)
}

func TestCalibrateNoViableCandidate(t *testing.T) {
	preds, outs := history()
	res := newTestCalibrator().Calibrate(models.DefaultThresholdSet(), preds[:6], outs)
	assert.Equal(t, models.AuditInsufficientData, res.Status)
	assert.Nil(t, res.Best)
	assert.Len(t, res.Candidates, len(DefaultGrid))
}

func TestCalibrateDerivesNewSet(t *testing.T) {
	preds, outs := history()
	current := models.DefaultThresholdSet()
	res := newTestCalibrator().Calibrate(current, preds, outs)

	require.Equal(t, models.AuditCalibrated, res.Status)
	require.NotNil(t, res.Best)
	assert.True(t, res.Changed)
	assert.Equal(t, 20, res.Pairs)
	assert.Equal(t, 0.90, res.Best.RiseQuantile)
	assert.Equal(t, 4, res.Best.Classified)
	assert.Equal(t, 1.0, res.Best.Accuracy)
	assert.InDelta(t, 0.884, res.Best.RiseCutoff, 1e-9)
	assert.InDelta(t, -0.913, res.Best.FallCutoff, 1e-9)

	set := res.Set
	assert.Equal(t, "v-test", set.Version)
	assert.Equal(t, models.ThresholdCalibrated, set.Provenance.Status)
	assert.Equal(t, models.DefaultThresholdVersion, set.Provenance.ParentVersion)
	assert.Equal(t, 1, set.Provenance.HorizonDays)
	assert.Equal(t, "imminent", set.Provenance.Scope)

	low := set.Cutoffs[models.BucketLow]
	assert.InDelta(t, 0.884, low[models.DirectionRise].Imminent, 1e-9)
	assert.InDelta(t, 0.884*0.35/0.60, low[models.DirectionRise].Warming, 1e-9)
	assert.InDelta(t, 0.913, low[models.DirectionFall].Imminent, 1e-9)
	assert.InDelta(t, 0.913*0.45/0.70, low[models.DirectionFall].Warming, 1e-9)

	// buckets without their own samples fall back to the global cutoff
	high := set.Cutoffs[models.BucketHigh]
	assert.InDelta(t, 0.884, high[models.DirectionRise].Imminent, 1e-9)

	// the input set is not mutated
	assert.Equal(t, models.DefaultThresholdSet(), current)
	assert.Equal(t, "v-test", res.Audit.ThresholdVersion)
}

func TestCalibrateKeepsCurrentSetWhenNoCandidateBeatsIt(t *testing.T) {
	var preds []models.Prediction
	var outs []models.Outcome
	for i := 0; i < 60; i++ {
		id := int64(300 + i)
		preds = append(preds, pred(id, day(0), models.DirectionRise, 0.60+0.006*float64(i), models.AlertImminent))
		outs = append(outs, outcome(id, day(1), models.DirectionFall))
	}

	current := models.DefaultThresholdSet()
	c := newTestCalibrator()
	res := c.Calibrate(current, preds, outs)

	require.NotNil(t, res.Best)
	assert.Equal(t, 0.0, res.Best.Accuracy)
	assert.Equal(t, 60, res.Baseline.Classified)
	assert.Equal(t, 0.0, res.Baseline.Accuracy)
	assert.Equal(t, models.AuditNotImproved, res.Status)
	assert.False(t, res.Changed)
	assert.Equal(t, current, res.Set)
	assert.Equal(t, models.AuditNotImproved, res.Audit.Status)
	assert.Equal(t, models.DefaultThresholdVersion, res.Audit.ThresholdVersion)
	assert.Contains(t, res.Audit.Reason, "does not beat current")

	// repeated rounds do not ratchet the cutoffs toward the bound
	again := c.Calibrate(res.Set, preds, outs)
	assert.False(t, again.Changed)
	assert.InDelta(t, 0.60, again.Set.Lookup(models.BucketLow, models.DirectionRise).Imminent, 1e-12)
}

func TestCalibrateBaselineUsesCurrentCutoffs(t *testing.T) {
	preds, outs := history()
	res := newTestCalibrator().Calibrate(models.DefaultThresholdSet(), preds, outs)
	assert.Equal(t, 20, res.Baseline.Classified)
	assert.Equal(t, 4, res.Baseline.Correct)
	assert.InDelta(t, 0.2, res.Baseline.Accuracy, 1e-12)
}

func TestCutoffsOutOfRangeKeepPrevious(t *testing.T) {
	c := newTestCalibrator()
	prev := models.Cutoffs{Imminent: 0.7, Warming: 0.4}
	assert.Equal(t, prev, c.cutoffs(prev, 0))
	assert.Equal(t, prev, c.cutoffs(prev, 1.5))
	got := c.cutoffs(prev, 0.5)
	assert.InDelta(t, 0.5, got.Imminent, 1e-12)
	assert.InDelta(t, 0.5*0.4/0.7, got.Warming, 1e-12)
}

func TestBetterTieBreaksOnSampleSize(t *testing.T) {
	a := Candidate{Accuracy: 0.8, Classified: 10}
	b := Candidate{Accuracy: 0.8, Classified: 5}
	assert.True(t, better(a, b))
	assert.False(t, better(b, a))
	assert.True(t, better(Candidate{Accuracy: 0.9, Classified: 4}, a))
}

func TestAccuracyReport(t *testing.T) {
	preds := []models.Prediction{
		pred(1, day(0), models.DirectionRise, 0.9, models.AlertImminent),
		pred(2, day(0), models.DirectionFall, 0.9, models.AlertImminent),
		pred(3, day(1), models.DirectionRise, 0.9, models.AlertImminent),
		pred(4, day(1), models.DirectionRise, 0.9, models.AlertImminent),
	}
	outs := []models.Outcome{
		outcome(1, day(1), models.DirectionRise),
		outcome(2, day(1), models.DirectionRise),
		outcome(3, day(2), models.DirectionRise),
		outcome(4, day(1), models.DirectionRise), // same day, not causal
	}

	r := Accuracy(preds, outs, models.ScopeImminent, 1, ReportFilter{}, day(3))
	require.Len(t, r.Days, 2)
	assert.Equal(t, models.AccuracyDay{Date: day(0), Total: 2, Correct: 1, Accuracy: 0.5}, r.Days[0])
	assert.Equal(t, models.AccuracyDay{Date: day(1), Total: 1, Correct: 1, Accuracy: 1}, r.Days[1])
	assert.Equal(t, 3, r.Total)
	assert.InDelta(t, 2.0/3.0, r.Accuracy, 1e-12)

	filtered := Accuracy(preds, outs, models.ScopeImminent, 1, ReportFilter{From: day(1)}, day(3))
	assert.Len(t, filtered.Days, 1)
	assert.Equal(t, 1, filtered.Total)
}

func TestAccuracyDirectionalScopeCountsEveryTier(t *testing.T) {
	preds := []models.Prediction{
		pred(1, day(0), models.DirectionRise, 0.9, models.AlertImminent),
		pred(2, day(0), models.DirectionRise, 0.5, models.AlertWarming),
		pred(3, day(0), models.DirectionFall, 0.2, models.AlertNone),
		pred(4, day(0), models.DirectionNone, 0.0, models.AlertNone),
	}
	outs := []models.Outcome{
		outcome(1, day(1), models.DirectionRise),
		outcome(2, day(1), models.DirectionFall),
		outcome(3, day(1), models.DirectionFall),
		outcome(4, day(1), models.DirectionNone),
	}

	r := Accuracy(preds, outs, models.ScopeDirectional, 1, ReportFilter{}, day(3))
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Correct)
	assert.InDelta(t, 2.0/3.0, r.Accuracy, 1e-12)

	imminent := Accuracy(preds, outs, models.ScopeImminent, 1, ReportFilter{}, day(3))
	assert.Equal(t, 1, imminent.Total)
	assert.Len(t, CausalJoin(preds, outs, models.ScopeActionable, 1), 2)
}
