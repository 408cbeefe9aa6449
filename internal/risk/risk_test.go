package risk

import (
	"testing"
	"time"

	"github.com/cradoe/walletguard/internal/models"
	"github.com/stretchr/testify/require"
)

func TestScore_AmountTiers(t *testing.T) {
	engine := NewEngine()
	now := time.Now()
	state := &models.RiskState{}

	require.Equal(t, 0, engine.Score(now, 400, "u4pruyd", state))
	require.Equal(t, AmountTier1Score, engine.Score(now, 600, "u4pruyd", state))

	// Tiers are cumulative above the second threshold.
	require.Equal(t, AmountTier1Score+AmountTier2Score, engine.Score(now, 1600, "u4pruyd", state))
}

func TestScore_VelocityRequiresDifferentGeoWithinWindow(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	state := &models.RiskState{
		LastGeoHash:       "u4pruyd",
		LastTransactionAt: now.Add(-5 * time.Minute),
	}

	require.Equal(t, VelocityScore, engine.Score(now, 100, "ezs42gx", state))

	// Same geo hash never trips velocity.
	require.Equal(t, 0, engine.Score(now, 100, "u4pruyd", state))

	// Outside the window the heuristic is quiet.
	state.LastTransactionAt = now.Add(-VelocityWindow)
	require.Equal(t, 0, engine.Score(now, 100, "ezs42gx", state))
}

func TestScore_VelocityIgnoresFutureTimestamps(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	// A last transaction ahead of the evaluation time is clock skew, not
	// impossible travel.
	state := &models.RiskState{
		LastGeoHash:       "u4pruyd",
		LastTransactionAt: now.Add(time.Hour),
	}

	require.False(t, engine.VelocityTripped(now, "ezs42gx", state))
	require.Equal(t, 0, engine.Score(now, 100, "ezs42gx", state))
}

func TestScore_NoHistoryNoVelocity(t *testing.T) {
	engine := NewEngine()

	require.False(t, engine.VelocityTripped(time.Now(), "ezs42gx", &models.RiskState{}))
}

func TestScore_IncidentsCompound(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	state := &models.RiskState{IncidentCount: 2}
	require.Equal(t, 2*IncidentScore, engine.Score(now, 100, "u4pruyd", state))

	// High amount plus incidents crosses the high-risk threshold.
	state.IncidentCount = 4
	require.GreaterOrEqual(t, engine.Score(now, 600, "u4pruyd", state), HighRiskThreshold)
}

func TestLocked(t *testing.T) {
	require.False(t, Locked(&models.RiskState{IncidentCount: LockoutIncidents - 1}))
	require.True(t, Locked(&models.RiskState{IncidentCount: LockoutIncidents}))
	require.True(t, Locked(&models.RiskState{IncidentCount: LockoutIncidents + 3}))
}
