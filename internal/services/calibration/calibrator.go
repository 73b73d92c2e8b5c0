package calibration

import (
	"fmt"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/services/features"
	"PricePulse/pkg/config"

	"github.com/google/uuid"
)

// QuantilePair is one (rise, fall) candidate of the search grid.
type QuantilePair struct {
	Rise float64
	Fall float64
}

// DefaultGrid is the candidate grid searched when none is configured.
var DefaultGrid = []QuantilePair{
	{0.90, 0.10}, {0.92, 0.08}, {0.94, 0.06}, {0.95, 0.05}, {0.96, 0.04}, {0.97, 0.03},
}

// Options configure a Calibrator.
type Options struct {
	MinSamples       int
	MinBucketSamples int
	HorizonDays      int
	Scope            models.Scope
	Grid             []QuantilePair
	Bound            float64
}

// DefaultOptions mirror the production defaults.
func DefaultOptions() Options {
	return Options{
		MinSamples:       4,
		MinBucketSamples: 8,
		HorizonDays:      1,
		Scope:            models.ScopeImminent,
		Grid:             DefaultGrid,
		Bound:            1,
	}
}

// NewOptions builds calibrator options from config. bound is the scorer's
// confidence bound.
func NewOptions(cfg config.CalibrationConfig, bound float64) Options {
	grid := make([]QuantilePair, 0, len(cfg.Grid))
	for _, q := range cfg.Grid {
		grid = append(grid, QuantilePair{Rise: q.Rise, Fall: q.Fall})
	}
	return Options{
		MinSamples:       cfg.MinSamples,
		MinBucketSamples: cfg.MinBucketSamples,
		HorizonDays:      cfg.HorizonDays,
		Scope:            models.NormalizeScope(cfg.Scope),
		Grid:             grid,
		Bound:            bound,
	}
}

// Candidate is the backtest result of one grid point.
type Candidate struct {
	RiseQuantile float64 `json:"rise_quantile"`
	FallQuantile float64 `json:"fall_quantile"`
	RiseCutoff   float64 `json:"rise_cutoff"`
	FallCutoff   float64 `json:"fall_cutoff"`
	Classified   int     `json:"classified"`
	Correct      int     `json:"correct"`
	Accuracy     float64 `json:"accuracy"`
	Viable       bool    `json:"viable"`
}

// Result is the outcome of a calibration attempt.
type Result struct {
	Status     string
	Changed    bool
	Set        models.ThresholdSet
	Pairs      int
	Best       *Candidate
	Baseline   Candidate
	Candidates []Candidate
	Audit      models.CalibrationAudit
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Calibrator) { c.now = now }
}

// WithVersioner overrides how new threshold versions are named.
func WithVersioner(next func() string) Option {
	return func(c *Calibrator) { c.version = next }
}

// Calibrator backtests quantile cutoffs over causally resolved predictions
// and derives a new ThresholdSet.
type Calibrator struct {
	opts    Options
	now     func() time.Time
	version func() string
}

func NewCalibrator(opts Options, optFns ...Option) *Calibrator {
	d := DefaultOptions()
	if opts.MinSamples < 1 {
		opts.MinSamples = d.MinSamples
	}
	if opts.MinBucketSamples < 1 {
		opts.MinBucketSamples = d.MinBucketSamples
	}
	if opts.HorizonDays < 1 {
		opts.HorizonDays = d.HorizonDays
	}
	if !models.IsValidScope(opts.Scope) {
		opts.Scope = d.Scope
	}
	if len(opts.Grid) == 0 {
		opts.Grid = d.Grid
	}
	if opts.Bound <= 0 {
		opts.Bound = d.Bound
	}
	c := &Calibrator{
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		version: func() string { return uuid.NewString() },
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Options returns the effective options.
func (c *Calibrator) Options() Options { return c.opts }

// Calibrate runs the search. The best candidate replaces the current set only
// when it is strictly more accurate than the current cutoffs on the same
// pairs. Otherwise the returned Set is current and Changed is false.
func (c *Calibrator) Calibrate(current models.ThresholdSet, preds []models.Prediction, outs []models.Outcome) Result {
	now := c.now()
	pairs := CausalJoin(preds, outs, c.opts.Scope, c.opts.HorizonDays)
	res := Result{Set: current, Pairs: len(pairs)}

	if len(pairs) < c.opts.MinSamples {
		return c.insufficient(res, now, fmt.Sprintf("%d causal pairs, need %d", len(pairs), c.opts.MinSamples))
	}

	scores := make([]float64, len(pairs))
	for i, p := range pairs {
		scores[i] = p.Prediction.SignedConfidence()
	}

	res.Candidates = make([]Candidate, 0, len(c.opts.Grid))
	for _, q := range c.opts.Grid {
		cand := c.evaluate(pairs, scores, q)
		res.Candidates = append(res.Candidates, cand)
		if !cand.Viable {
			continue
		}
		if res.Best == nil || better(cand, *res.Best) {
			best := cand
			res.Best = &best
		}
	}
	if res.Best == nil {
		return c.insufficient(res, now, fmt.Sprintf("no candidate classified %d samples", c.opts.MinSamples))
	}

	res.Baseline = c.backtest(current, pairs, scores)
	if res.Best.Accuracy <= res.Baseline.Accuracy {
		res.Status = models.AuditNotImproved
		res.Audit = c.audit(res, now, fmt.Sprintf("best accuracy %.3f does not beat current %.3f (%d/%d)",
			res.Best.Accuracy, res.Baseline.Accuracy, res.Baseline.Correct, res.Baseline.Classified))
		return res
	}

	res.Set = c.derive(current, pairs, *res.Best, now)
	res.Status = models.AuditCalibrated
	res.Changed = true
	res.Audit = c.audit(res, now, "")
	return res
}

func (c *Calibrator) insufficient(res Result, now time.Time, reason string) Result {
	res.Status = models.AuditInsufficientData
	res.Changed = false
	res.Audit = c.audit(res, now, reason)
	return res
}

func (c *Calibrator) audit(res Result, now time.Time, reason string) models.CalibrationAudit {
	a := models.CalibrationAudit{
		RunAt:            now,
		Status:           res.Status,
		Samples:          res.Pairs,
		HorizonDays:      c.opts.HorizonDays,
		Scope:            string(c.opts.Scope),
		ThresholdVersion: res.Set.Version,
		Reason:           reason,
	}
	if res.Best != nil {
		a.Classified = res.Best.Classified
		a.Accuracy = res.Best.Accuracy
		a.RiseQuantile = res.Best.RiseQuantile
		a.FallQuantile = res.Best.FallQuantile
	}
	return a
}

// evaluate classifies every pair with the candidate's cutoffs. A signed
// score only counts as rise (fall) when it is positive (negative).
func (c *Calibrator) evaluate(pairs []Pair, scores []float64, q QuantilePair) Candidate {
	cand := Candidate{
		RiseQuantile: q.Rise,
		FallQuantile: q.Fall,
		RiseCutoff:   features.Quantile(scores, q.Rise),
		FallCutoff:   features.Quantile(scores, q.Fall),
	}
	for i, p := range pairs {
		dir := classify(scores[i], cand.RiseCutoff, cand.FallCutoff)
		if dir == models.DirectionNone {
			continue
		}
		cand.Classified++
		if dir == p.Outcome.ActualChange {
			cand.Correct++
		}
	}
	if cand.Classified >= c.opts.MinSamples {
		cand.Viable = true
		cand.Accuracy = float64(cand.Correct) / float64(cand.Classified)
	}
	return cand
}

// backtest scores the current set's imminent cutoffs on the same pairs. With
// nothing classified the baseline accuracy is zero.
func (c *Calibrator) backtest(current models.ThresholdSet, pairs []Pair, scores []float64) Candidate {
	var base Candidate
	for i, p := range pairs {
		b := p.Prediction.Bucket
		dir := classify(scores[i], current.Lookup(b, models.DirectionRise).Imminent, -current.Lookup(b, models.DirectionFall).Imminent)
		if dir == models.DirectionNone {
			continue
		}
		base.Classified++
		if dir == p.Outcome.ActualChange {
			base.Correct++
		}
	}
	if base.Classified > 0 {
		base.Accuracy = float64(base.Correct) / float64(base.Classified)
	}
	base.Viable = base.Classified >= c.opts.MinSamples
	return base
}

func classify(score, riseCut, fallCut float64) models.Direction {
	switch {
	case score > 0 && score >= riseCut:
		return models.DirectionRise
	case score < 0 && score <= fallCut:
		return models.DirectionFall
	default:
		return models.DirectionNone
	}
}

func better(a, b Candidate) bool {
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	return a.Classified > b.Classified
}

// derive builds the next set from the winning quantiles. Buckets with enough
// pairs get their own quantile; the rest use the global cutoff. Warming keeps
// the previous warming/imminent ratio. Out-of-range values keep the previous cutoff.
func (c *Calibrator) derive(prev models.ThresholdSet, pairs []Pair, best Candidate, now time.Time) models.ThresholdSet {
	byBucket := make(map[models.Bucket][]float64)
	for _, p := range pairs {
		b := p.Prediction.Bucket
		byBucket[b] = append(byBucket[b], p.Prediction.SignedConfidence())
	}

	next := prev.Clone()
	next.Version = c.version()
	next.CreatedAt = now
	for _, b := range models.Buckets {
		if next.Cutoffs[b] == nil {
			next.Cutoffs[b] = make(map[models.Direction]models.Cutoffs, 2)
		}
		riseCut, fallCut := best.RiseCutoff, best.FallCutoff
		if scores := byBucket[b]; len(scores) >= c.opts.MinBucketSamples {
			riseCut = features.Quantile(scores, best.RiseQuantile)
			fallCut = features.Quantile(scores, best.FallQuantile)
		}
		next.Cutoffs[b][models.DirectionRise] = c.cutoffs(prev.Lookup(b, models.DirectionRise), riseCut)
		next.Cutoffs[b][models.DirectionFall] = c.cutoffs(prev.Lookup(b, models.DirectionFall), -fallCut)
	}
	next.Provenance = models.Provenance{
		Status:        models.ThresholdCalibrated,
		Accuracy:      best.Accuracy,
		Samples:       best.Classified,
		Pairs:         len(pairs),
		RiseQuantile:  best.RiseQuantile,
		FallQuantile:  best.FallQuantile,
		RiseCutoff:    best.RiseCutoff,
		FallCutoff:    best.FallCutoff,
		HorizonDays:   c.opts.HorizonDays,
		Scope:         string(c.opts.Scope),
		ParentVersion: prev.Version,
		CalibratedAt:  now,
	}
	return next
}

func (c *Calibrator) cutoffs(prev models.Cutoffs, imminent float64) models.Cutoffs {
	if !(imminent > 0 && imminent <= c.opts.Bound) {
		return prev
	}
	ratio := 0.6
	if prev.Imminent > 0 && prev.Warming > 0 && prev.Warming <= prev.Imminent {
		ratio = prev.Warming / prev.Imminent
	}
	warming := imminent * ratio
	if !(warming > 0 && warming <= imminent) {
		warming = prev.Warming
	}
	return models.Cutoffs{Imminent: imminent, Warming: warming}
}
