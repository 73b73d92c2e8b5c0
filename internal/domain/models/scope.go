package models

// Scope selects which predictions take part in calibration and accuracy.
type Scope string

const (
	ScopeImminent   Scope = "imminent"
	ScopeActionable Scope = "actionable"
	// ScopeDirectional covers every rise or fall prediction whatever its tier.
	ScopeDirectional Scope = "directional"
)

// IsValidScope returns true if s is a supported scope.
func IsValidScope(s Scope) bool {
	switch s {
	case ScopeImminent, ScopeActionable, ScopeDirectional:
		return true
	default:
		return false
	}
}

// DefaultScope returns the default calibration scope.
func DefaultScope() Scope { return ScopeImminent }

// DefaultReportScope returns the scope accuracy reports use.
func DefaultReportScope() Scope { return ScopeDirectional }

// NormalizeScope converts a raw string to a valid scope (or the default).
func NormalizeScope(s string) Scope {
	sc := Scope(s)
	if IsValidScope(sc) {
		return sc
	}
	return DefaultScope()
}

// Includes reports whether a prediction belongs to the scope.
func (s Scope) Includes(p Prediction) bool {
	if !p.Direction.Actionable() {
		return false
	}
	switch s {
	case ScopeDirectional:
		return true
	case ScopeActionable:
		return p.AlertLevel == AlertImminent || p.AlertLevel == AlertWarming
	default:
		return p.AlertLevel == AlertImminent
	}
}
