package features

import (
	"math"
	"sort"

	"PricePulse/internal/domain/models"
)

// MomentumConfig controls the decayed velocity window.
type MomentumConfig struct {
	Window int     // number of most recent deltas used
	Decay  float64 // weight ratio between consecutive deltas, in (0, 1]
}

// DefaultMomentumConfig returns a 4-delta window halving weight per step back.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{Window: 4, Decay: 0.5}
}

// DecayWeights returns geometric weights, index 0 being the most recent delta.
func DecayWeights(window int, decay float64) []float64 {
	if window < 1 {
		window = 1
	}
	w := make([]float64, window)
	for k := range w {
		w[k] = math.Pow(decay, float64(k))
	}
	return w
}

// ComputeMomentum aggregates a delta series (oldest first) into per-entity
// velocity, trend and volatility. Only entities present in the latest delta set
// are returned, sorted by id.
func ComputeMomentum(series [][]models.Delta, cfg MomentumConfig) []models.Momentum {
	if len(series) == 0 {
		return nil
	}
	if cfg.Window < 1 {
		cfg.Window = DefaultMomentumConfig().Window
	}
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		cfg.Decay = DefaultMomentumConfig().Decay
	}

	start := len(series) - cfg.Window
	if start < 0 {
		start = 0
	}
	window := series[start:]
	latest := window[len(window)-1]

	// net deltas per entity, most recent first
	byEntity := make([]map[int64]int64, len(window))
	for i, ds := range window {
		m := make(map[int64]int64, len(ds))
		for _, d := range ds {
			m[d.EntityID] = d.NetTransfers
		}
		byEntity[len(window)-1-i] = m
	}

	weights := DecayWeights(cfg.Window, cfg.Decay)
	out := make([]models.Momentum, 0, len(latest))
	velocities := make([]float64, 0, len(latest))
	for _, d := range latest {
		var num, den float64
		nets := make([]float64, 0, len(window))
		for k, m := range byEntity {
			net, ok := m[d.EntityID]
			if !ok {
				continue
			}
			num += weights[k] * float64(net)
			den += weights[k]
			nets = append(nets, float64(net))
		}
		v := 0.0
		if den > 0 {
			v = num / den
		}
		out = append(out, models.Momentum{
			EntityID:   d.EntityID,
			Timestamp:  d.Timestamp,
			NetNow:     d.NetTransfers,
			Velocity:   v,
			Volatility: noiseRatio(nets),
			Samples:    len(nets),
		})
		velocities = append(velocities, v)
	}

	trends := Saturate(velocities)
	for i := range out {
		out[i].Trend = trends[i]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// noiseRatio is the dispersion of deltas relative to their typical magnitude.
func noiseRatio(nets []float64) float64 {
	if len(nets) < 2 {
		return 0
	}
	scale := MeanAbs(nets)
	if scale < 1 {
		scale = 1
	}
	return StdDev(nets) / scale
}
