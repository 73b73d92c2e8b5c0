package models

import "time"

// Delta is the per-entity difference between two consecutive snapshots.
type Delta struct {
	EntityID     int64
	Timestamp    time.Time // later snapshot
	TransfersIn  int64
	TransfersOut int64
	NetTransfers int64
	Price        float64
	Ownership    float64
}

// Momentum is the decayed velocity and normalised trend of an entity's net transfers.
type Momentum struct {
	EntityID   int64
	Timestamp  time.Time
	NetNow     int64
	Velocity   float64
	Trend      float64 // in (-1, 1)
	Volatility float64 // noise ratio over the window
	Samples    int
}

// Regime is the market-wide directional bias derived from recent outcomes.
type Regime string

const (
	RegimeBullish Regime = "bullish"
	RegimeBearish Regime = "bearish"
	RegimeNeutral Regime = "neutral"
)

// RegimeReading is a regime together with the evidence behind it.
type RegimeReading struct {
	Regime    Regime
	Rises     int
	Falls     int
	Samples   int
	RiseShare float64
	FallShare float64
}
