package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cradoe/walletguard/internal/device"
	"github.com/cradoe/walletguard/internal/mocks"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/risk"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/stream"
	"github.com/cradoe/walletguard/internal/token"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMobile = "+15550001111"

type testRig struct {
	engine    *Engine
	identity  *models.Identity
	card      *models.Card
	simulator *device.Simulator
	publisher *mocks.MockPublisher
	ledger    repository.LedgerRepository

	clock time.Time
}

// advance moves the engine clock forward; sessions run on real time and stay
// active for the duration of a test.
func (rig *testRig) advance(d time.Duration) {
	rig.clock = rig.clock.Add(d)
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	identities := repository.NewIdentityRepository()
	ledger := repository.NewLedgerRepository()
	sessions := session.NewManager()
	minter := token.NewMinter("test_payment_token_secret")
	simulator := device.NewSimulator(minter)
	publisher := mocks.NewMockPublisher()

	card := &models.Card{
		ID:              "card-1",
		Alias:           "everyday",
		EncryptedNumber: "ciphertext-number",
		EncryptedCVV:    "ciphertext-cvv",
		Expiry:          "12/30",
		OwnerNationalID: "123456789",
		DailyLimit:      5000,
		AuthPolicy:      models.PolicyStandard,
	}
	identity := &models.Identity{
		MobileNumber:   testMobile,
		NationalID:     "123456789",
		Email:          "holder@example.com",
		HashedPassword: "hashed",
		Cards:          []*models.Card{card},
		DefaultCardID:  card.ID,
		Status:         models.IdentityActiveStatus,
	}
	require.NoError(t, identities.Insert(identity))

	sessions.Start(testMobile)
	simulator.Seed(card.ID, 10000)

	rig := &testRig{
		identity:  identity,
		card:      card,
		simulator: simulator,
		publisher: publisher,
		ledger:    ledger,
		// A fixed date well in the past: the suite must not depend on where
		// the host clock happens to sit relative to the fixture timeline.
		clock: time.Date(2025, 1, 15, 12, 0, 0, 0, time.Local),
	}

	rig.engine = New(&Engine{
		Identities: identities,
		Ledger:     ledger,
		Sessions:   sessions,
		Risk:       risk.NewEngine(),
		Minter:     minter,
		Device:     simulator,
		Events:     publisher,
	})
	rig.engine.now = func() time.Time { return rig.clock }

	return rig
}

func (rig *testRig) pay(t *testing.T, amount float64, geoHash, pin string, biometric bool) *Outcome {
	t.Helper()

	outcome, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile,
		Amount:       amount,
		GeoHash:      geoHash,
		Pin:          pin,
		Biometric:    biometric,
	})
	require.NoError(t, err)
	return outcome
}

func TestPay_SuccessAppliesFee(t *testing.T) {
	rig := newTestRig(t)

	outcome := rig.pay(t, 1000, "u4pruyd", "1234", false)

	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Equal(t, 990.0, outcome.Amount)
	require.Equal(t, 10.0, outcome.FeeAmount)
	require.Equal(t, risk.AmountTier1Score, outcome.RiskScore)

	// The gross amount is charged against both the device and the limit.
	balance, err := rig.simulator.GetBalance(context.Background(), rig.card.ID)
	require.NoError(t, err)
	require.Equal(t, 9000.0, balance)
	require.Equal(t, 1000.0, rig.card.Spend.TotalFor(rig.clock))

	require.Equal(t, "u4pruyd", rig.identity.Risk.LastGeoHash)
	require.Equal(t, rig.clock, rig.identity.Risk.LastTransactionAt)

	records, err := rig.ledger.ListByCards([]string{rig.card.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 990.0, records[0].Amount)

	require.Eventually(t, func() bool {
		return rig.publisher.Count(stream.TopicAuthorizationCompleted) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPay_PinThresholdBoundary(t *testing.T) {
	rig := newTestRig(t)

	// Exactly at the threshold: no PIN needed.
	outcome := rig.pay(t, PinRequiredThreshold, "u4pruyd", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)

	rig.advance(10 * time.Second)

	// One above: the attempt parks on requires_pin without consuming funds.
	outcome = rig.pay(t, PinRequiredThreshold+1, "u4pruyd", "", false)
	require.Equal(t, models.StatusRequiresPin, outcome.Status)
	require.Equal(t, PinRequiredThreshold, rig.card.Spend.TotalFor(rig.clock))

	// The same payment with a PIN goes through.
	rig.advance(10 * time.Second)
	outcome = rig.pay(t, PinRequiredThreshold+1, "u4pruyd", "1234", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)
}

func TestPay_DailyLimit(t *testing.T) {
	rig := newTestRig(t)

	// 4999 scores above the high-risk threshold, so both proofs are needed.
	outcome := rig.pay(t, 4999, "u4pruyd", "1234", true)
	require.Equal(t, models.StatusSuccess, outcome.Status)

	rig.advance(10 * time.Second)

	outcome = rig.pay(t, 2, "u4pruyd", "", false)
	require.Equal(t, models.StatusPolicyViolation, outcome.Status)
	require.Equal(t, "daily limit exceeded", outcome.Message)

	// The declined attempt left the accumulator untouched.
	require.Equal(t, 4999.0, rig.card.Spend.TotalFor(rig.clock))

	// The limit resets at local-date rollover.
	rig.advance(24 * time.Hour)
	outcome = rig.pay(t, 2, "u4pruyd", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)
}

func TestPay_VelocityFlagsWithoutBlocking(t *testing.T) {
	rig := newTestRig(t)

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)

	rig.advance(6 * time.Second)

	// Different geo hash inside the window: flagged, still authorized.
	outcome = rig.pay(t, 100, "ezs42gx", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Contains(t, outcome.Flags, models.FlagVelocityRisk)
	require.Equal(t, risk.VelocityScore, outcome.RiskScore)

	require.Eventually(t, func() bool {
		return rig.publisher.Count(stream.TopicAuthorizationFlagged) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPay_HighRiskForcesDynamicMFA(t *testing.T) {
	rig := newTestRig(t)

	// Amount above both tiers scores 70: policy is force-escalated, and a
	// PIN alone no longer satisfies it.
	outcome := rig.pay(t, 1600, "u4pruyd", "1234", false)
	require.Equal(t, models.StatusPolicyViolation, outcome.Status)
	require.Contains(t, outcome.Flags, models.FlagForcedMFA)
	require.Equal(t, models.PolicyDynamicMFA, rig.card.AuthPolicy)
	require.True(t, rig.card.AutoEscalated)

	// The failed high-risk attempt counts as an incident.
	require.Equal(t, 1, rig.identity.Risk.IncidentCount)

	// Both proofs satisfy the escalated policy.
	rig.advance(10 * time.Second)
	outcome = rig.pay(t, 1600, "u4pruyd", "1234", true)
	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Contains(t, outcome.Flags, models.FlagHighValue)

	// Once the risk signals clear, the escalation heals itself.
	rig.advance(10 * time.Second)
	outcome = rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Equal(t, models.PolicyStandard, rig.card.AuthPolicy)
	require.False(t, rig.card.AutoEscalated)
}

func TestPay_ConsecutiveHighRiskDeclinesLockIdentity(t *testing.T) {
	rig := newTestRig(t)

	// Each attempt scores above both amount tiers, is declined for the
	// missing PIN and raises the incident count by one.
	for i := 0; i < risk.LockoutIncidents; i++ {
		outcome := rig.pay(t, 1600, "u4pruyd", "", false)
		require.Equal(t, models.StatusRequiresPin, outcome.Status)
		require.Greater(t, outcome.RiskScore, IncidentRiskFloor)
		require.Equal(t, i+1, rig.identity.Risk.IncidentCount)

		rig.advance(10 * time.Second)
	}

	// The fifth incident locks the identity record itself.
	require.Equal(t, models.IdentityLockedStatus, rig.identity.Status)

	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrAccountLocked)

	// Resetting the counter does not unlock the record.
	rig.identity.Risk.IncidentCount = 0
	_, err = rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestPay_LockedIdentity(t *testing.T) {
	rig := newTestRig(t)

	rig.identity.Risk.IncidentCount = risk.LockoutIncidents
	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrAccountLocked)

	rig.identity.Risk.IncidentCount = 0
	rig.identity.Status = models.IdentityLockedStatus
	_, err = rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestPay_Cooldown(t *testing.T) {
	rig := newTestRig(t)

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusSuccess, outcome.Status)

	rig.advance(2 * time.Second)

	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrCooldown)
}

func TestPay_ExpiredCard(t *testing.T) {
	rig := newTestRig(t)
	rig.card.Expiry = "01/20"

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusCardExpired, outcome.Status)
}

func TestPay_SuspendedCard(t *testing.T) {
	rig := newTestRig(t)
	rig.card.Suspended = true

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusPolicyViolation, outcome.Status)
	require.Equal(t, "card is suspended", outcome.Message)
}

func TestPay_InsufficientFunds(t *testing.T) {
	rig := newTestRig(t)
	rig.simulator.Seed(rig.card.ID, 50)

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusInsufficientFunds, outcome.Status)
	require.Contains(t, outcome.Flags, models.FlagInsufficientFunds)

	// Nothing mutated: no spend, no cooldown anchor.
	require.Equal(t, 0.0, rig.card.Spend.TotalFor(rig.clock))
	require.True(t, rig.identity.Risk.LastTransactionAt.IsZero())
}

func TestPay_DeviceFailureIsFatalAndLogged(t *testing.T) {
	rig := newTestRig(t)

	failing := new(mocks.MockDevice)
	failing.On("Transmit", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("antenna fault"))
	rig.engine.Device = failing

	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrDeviceFailure)

	records, err := rig.ledger.ListByCards([]string{rig.card.ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.StatusNFCError, records[0].Status)
	require.Contains(t, records[0].Flags, models.FlagDeviceFailure)
}

func TestPay_UnknownDeviceStatusDeclines(t *testing.T) {
	rig := newTestRig(t)

	odd := new(mocks.MockDevice)
	odd.On("Transmit", mock.Anything, mock.Anything, mock.Anything).
		Return(&device.Result{Status: "mystery", Message: "??"}, nil)
	rig.engine.Device = odd

	outcome := rig.pay(t, 100, "u4pruyd", "", false)
	require.Equal(t, models.StatusDeclined, outcome.Status)
}

func TestPay_Preconditions(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 0, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: "+15550009999", Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrIdentityNotFound)

	rig.identity.DefaultCardID = ""
	_, err = rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, ErrNoDefaultCard)
}

func TestPay_RequiresSession(t *testing.T) {
	rig := newTestRig(t)
	rig.engine.Sessions.End(testMobile)

	_, err := rig.engine.Pay(context.Background(), &PaymentRequest{
		MobileNumber: testMobile, Amount: 100, GeoHash: "u4pruyd",
	})
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestTopUp_SkipsPaymentGates(t *testing.T) {
	rig := newTestRig(t)
	rig.card.DailyLimit = 10
	rig.card.AuthPolicy = models.PolicyMandatoryPin

	outcome, err := rig.engine.TopUp(context.Background(), &TopUpRequest{
		MobileNumber: testMobile,
		Amount:       5000,
		GeoHash:      "u4pruyd",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Equal(t, 0.0, outcome.FeeAmount)

	// Credits do not count against the daily spend limit.
	require.Equal(t, 0.0, rig.card.Spend.TotalFor(rig.clock))

	balance, err := rig.simulator.GetBalance(context.Background(), rig.card.ID)
	require.NoError(t, err)
	require.Equal(t, 15000.0, balance)

	// But they do anchor the cooldown.
	rig.advance(2 * time.Second)
	_, err = rig.engine.TopUp(context.Background(), &TopUpRequest{
		MobileNumber: testMobile, Amount: 100,
	})
	require.ErrorIs(t, err, ErrCooldown)
}

func TestTopUp_ExpiredCard(t *testing.T) {
	rig := newTestRig(t)
	rig.card.Expiry = "01/20"

	outcome, err := rig.engine.TopUp(context.Background(), &TopUpRequest{
		MobileNumber: testMobile, Amount: 100,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCardExpired, outcome.Status)
}

func TestBalance(t *testing.T) {
	rig := newTestRig(t)
	rig.simulator.Seed(rig.card.ID, 750)

	balance, err := rig.engine.Balance(context.Background(), testMobile)
	require.NoError(t, err)
	require.Equal(t, 750.0, balance)

	rig.engine.Sessions.End(testMobile)
	_, err = rig.engine.Balance(context.Background(), testMobile)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}
