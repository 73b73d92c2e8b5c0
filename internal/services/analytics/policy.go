package analytics

import "PricePulse/pkg/config"

// Weights of the composite score components.
type Weights struct {
	Pressure float64
	Velocity float64
	Trend    float64
}

// RegimePolicy controls regime classification and dampening.
type RegimePolicy struct {
	WindowDays    int
	Majority      float64
	MinSamples    int
	CounterDampen float64
	NeutralDampen float64
}

// VolatilityPolicy scales confidence by how noisy an entity's deltas have been.
type VolatilityPolicy struct {
	Enabled      bool
	MinSamples   int
	NoisyRatio   float64
	StableRatio  float64
	NoisyFactor  float64
	StableFactor float64
}

// CrowdPolicy damps confidence of widely owned entities with little movement.
type CrowdPolicy struct {
	Enabled       bool
	MinOwnership  float64
	VelocityRatio float64
	Factor        float64
}

// Policy is a versioned scoring configuration. Predictions record the version
// that produced them.
type Policy struct {
	Version              string
	Weights              Weights
	MinOwnership         float64
	VelocityCap          float64
	DeadZone             float64
	ConfidencePercentile float64
	ConfidenceBound      float64
	Regime               RegimePolicy
	Volatility           VolatilityPolicy
	Crowd                CrowdPolicy
}

// DefaultPolicy returns policy v1.
func DefaultPolicy() Policy {
	return Policy{
		Version:              "v1",
		Weights:              Weights{Pressure: 0.20, Velocity: 0.35, Trend: 0.45},
		MinOwnership:         0.1,
		VelocityCap:          3,
		DeadZone:             0.05,
		ConfidencePercentile: 0.95,
		ConfidenceBound:      1,
		Regime: RegimePolicy{
			WindowDays:    3,
			Majority:      0.65,
			MinSamples:    10,
			CounterDampen: 0.6,
			NeutralDampen: 0.9,
		},
		Volatility: VolatilityPolicy{
			MinSamples:   3,
			NoisyRatio:   1.2,
			StableRatio:  0.6,
			NoisyFactor:  0.75,
			StableFactor: 1.15,
		},
		Crowd: CrowdPolicy{
			MinOwnership:  35,
			VelocityRatio: 0.3,
			Factor:        0.7,
		},
	}
}

// NewPolicy builds the scoring policy from config.
func NewPolicy(cfg *config.Config) Policy {
	s := cfg.Scoring
	return Policy{
		Version: s.PolicyVersion,
		Weights: Weights{
			Pressure: s.Weights.Pressure,
			Velocity: s.Weights.Velocity,
			Trend:    s.Weights.Trend,
		},
		MinOwnership:         s.MinOwnership,
		VelocityCap:          s.VelocityCap,
		DeadZone:             s.DeadZone,
		ConfidencePercentile: s.ConfidencePercentile,
		ConfidenceBound:      s.ConfidenceBound,
		Regime: RegimePolicy{
			WindowDays:    s.Regime.WindowDays,
			Majority:      s.Regime.Majority,
			MinSamples:    s.Regime.MinSamples,
			CounterDampen: s.Regime.CounterDampen,
			NeutralDampen: s.Regime.NeutralDampen,
		},
		Volatility: VolatilityPolicy{
			Enabled:      s.Volatility.Enabled,
			MinSamples:   s.Volatility.MinSamples,
			NoisyRatio:   s.Volatility.NoisyRatio,
			StableRatio:  s.Volatility.StableRatio,
			NoisyFactor:  s.Volatility.NoisyFactor,
			StableFactor: s.Volatility.StableFactor,
		},
		Crowd: CrowdPolicy{
			Enabled:       s.Crowd.Enabled,
			MinOwnership:  s.Crowd.MinOwnership,
			VelocityRatio: s.Crowd.VelocityRatio,
			Factor:        s.Crowd.Factor,
		},
	}
}
