// Package risk scores authorization attempts with a monotonic additive model.
// Every contributing factor is independently inspectable in logs, which keeps
// the policy auditable and deterministic. Scores have no upper clamp and are
// compared against a fixed high-risk threshold.
package risk

import (
	"time"

	"github.com/cradoe/walletguard/internal/models"
)

const (
	// Amount tiers are cumulative: an amount above the second tier
	// contributes AmountTier1Score+AmountTier2Score.
	AmountTier1      = 500.0
	AmountTier1Score = 30
	AmountTier2      = 1500.0
	AmountTier2Score = 40

	// VelocityScore is added when a prior transaction exists, its geo hash
	// differs from the current one and less than VelocityWindow has elapsed —
	// the impossible-travel heuristic.
	VelocityWindow = 10 * time.Minute
	VelocityScore  = 50

	IncidentScore = 10

	HighRiskThreshold = 70

	// LockoutIncidents is the incident count at which the identity is
	// considered locked out of payments.
	LockoutIncidents = 5
)

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the additive risk score for one attempt. The caller supplies
// the evaluation time so every gate of an authorization is judged against the
// same clock.
func (e *Engine) Score(now time.Time, amount float64, geoHash string, state *models.RiskState) int {
	score := 0

	if amount > AmountTier1 {
		score += AmountTier1Score
	}
	if amount > AmountTier2 {
		score += AmountTier2Score
	}

	if e.VelocityTripped(now, geoHash, state) {
		score += VelocityScore
	}

	score += IncidentScore * state.IncidentCount

	return score
}

// VelocityTripped reports whether the geo-velocity heuristic fires on its own.
// A future-dated last transaction never trips it.
func (e *Engine) VelocityTripped(now time.Time, geoHash string, state *models.RiskState) bool {
	if state.LastTransactionAt.IsZero() || state.LastGeoHash == "" {
		return false
	}
	if state.LastGeoHash == geoHash {
		return false
	}

	elapsed := now.Sub(state.LastTransactionAt)
	return elapsed >= 0 && elapsed < VelocityWindow
}

// Locked reports whether accumulated incidents have locked the identity out.
func Locked(state *models.RiskState) bool {
	return state.IncidentCount >= LockoutIncidents
}
