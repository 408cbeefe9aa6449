// Package engine drives the payment and top-up state machines:
//
//	Start → SessionChecked → CooldownChecked → CardValidated → LimitChecked →
//	RiskScored → PolicyEnforced → DeviceInvoked → Logged → {Success, Declined, Error}
//
// Declined outcomes are expected business results returned as values and
// always written to the ledger. Fatal errors — precondition violations and
// device communication faults — are raised to the caller, still logged with a
// diagnostic flag where a transaction context exists.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cradoe/walletguard/internal/cards"
	"github.com/cradoe/walletguard/internal/device"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/risk"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/stream"
	"github.com/cradoe/walletguard/internal/token"

	"github.com/google/uuid"
)

const (
	// CooldownInterval is the double-submit guard between transactions on the
	// same identity. Tripping it is a hard error, not a declined result.
	CooldownInterval = 5 * time.Second

	// FeeRate is the flat fee deducted from successful payments.
	FeeRate = 0.01

	// HighValueThreshold tags successful payments above this pre-fee amount.
	HighValueThreshold = 1000.0

	// PinRequiredThreshold forces a PIN for amounts strictly greater than
	// this, regardless of the card's auth policy.
	PinRequiredThreshold = 500.0

	// IncidentRiskFloor: any non-success outcome scoring above this
	// increments the identity's incident counter.
	IncidentRiskFloor = 50

	// DeviceTimeout bounds every device invocation; a timeout is treated
	// identically to a device error.
	DeviceTimeout = 10 * time.Second
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrAccountLocked    = errors.New("account is locked")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrNoDefaultCard    = errors.New("no default card on file")

	// ErrCooldown rejects a second transaction within the cooldown interval.
	ErrCooldown = errors.New("too many requests, please wait a moment")

	// ErrDeviceFailure wraps any device communication fault. It maps to the
	// nfc_error ledger status and is fatal to the caller.
	ErrDeviceFailure = errors.New("nfc device communication failed")
)

// Publisher is the slice of the event stream the engine needs.
type Publisher interface {
	ProduceMessage(topic, message string) error
}

type Engine struct {
	Identities repository.IdentityRepository
	Ledger     repository.LedgerRepository
	Sessions   *session.Manager
	Risk       *risk.Engine
	Minter     *token.Minter
	Device     device.Contract
	Events     Publisher
	Logger     *slog.Logger

	now func() time.Time
}

func New(engine *Engine) *Engine {
	engine.now = time.Now
	return engine
}

type PaymentRequest struct {
	MobileNumber string
	Amount       float64
	GeoHash      string
	Pin          string
	Biometric    bool
}

type TopUpRequest struct {
	MobileNumber string
	Amount       float64
	GeoHash      string
	Pin          string
}

// Outcome is a terminal, ledger-backed result. Amount reflects the net
// (post-fee) amount on success.
type Outcome struct {
	RecordID  string                   `json:"record_id"`
	Status    models.TransactionStatus `json:"status"`
	Message   string                   `json:"message"`
	Amount    float64                  `json:"amount"`
	FeeAmount float64                  `json:"fee_amount"`
	RiskScore int                      `json:"risk_score"`
	Flags     []string                 `json:"flags,omitempty"`
}

// AuthorizationEvent is the payload published to the event stream for every
// logged outcome.
type AuthorizationEvent struct {
	MobileNumber string   `json:"mobile_number"`
	Email        string   `json:"email,omitempty"`
	CardID       string   `json:"card_id"`
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Amount       float64  `json:"amount"`
	RiskScore    int      `json:"risk_score"`
	Flags        []string `json:"flags,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// Pay runs the full payment state machine for the identity's default card.
// The whole sequence holds the identity's serialization lock: two concurrent
// payments cannot both pass the limit check before either commits its spend.
func (e *Engine) Pay(ctx context.Context, req *PaymentRequest) (*Outcome, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	identity, found, err := e.Identities.GetOne(req.MobileNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIdentityNotFound
	}

	mu := e.Identities.Serialize(req.MobileNumber)
	mu.Lock()
	defer mu.Unlock()

	// SessionChecked
	if _, err := e.Sessions.RequireActive(req.MobileNumber); err != nil {
		return nil, err
	}
	e.Sessions.Touch(req.MobileNumber)

	if identity.Status == models.IdentityLockedStatus || risk.Locked(&identity.Risk) {
		return nil, ErrAccountLocked
	}

	// CooldownChecked
	now := e.now()
	if !identity.Risk.LastTransactionAt.IsZero() && now.Sub(identity.Risk.LastTransactionAt) < CooldownInterval {
		return nil, ErrCooldown
	}

	// CardValidated
	card := identity.DefaultCard()
	if card == nil {
		return nil, ErrNoDefaultCard
	}

	if cards.IsExpired(card, now) {
		return e.logged(identity, card, &ledgerEntry{
			status:  models.StatusCardExpired,
			message: "card has expired",
			amount:  req.Amount,
			geoHash: req.GeoHash,
		}), nil
	}

	if card.Suspended {
		return e.logged(identity, card, &ledgerEntry{
			status:  models.StatusPolicyViolation,
			message: "card is suspended",
			amount:  req.Amount,
			geoHash: req.GeoHash,
		}), nil
	}

	// LimitChecked: no state is mutated on a limit breach.
	if card.Spend.TotalFor(now)+req.Amount > card.DailyLimit {
		return e.logged(identity, card, &ledgerEntry{
			status:  models.StatusPolicyViolation,
			message: "daily limit exceeded",
			amount:  req.Amount,
			geoHash: req.GeoHash,
		}), nil
	}

	// RiskScored
	score := e.Risk.Score(now, req.Amount, req.GeoHash, &identity.Risk)
	var flags []string

	switch {
	case score >= risk.HighRiskThreshold:
		card.AuthPolicy = models.PolicyDynamicMFA
		card.AutoEscalated = true
		flags = append(flags, models.FlagForcedMFA)
	case e.Risk.VelocityTripped(now, req.GeoHash, &identity.Risk):
		// Velocity alone flags the attempt without escalating the policy.
		flags = append(flags, models.FlagVelocityRisk)
	case card.AutoEscalated:
		// Self-healing escalation: neither condition holds any more.
		card.AuthPolicy = models.PolicyStandard
		card.AutoEscalated = false
	}

	// PolicyEnforced: PIN and biometric checks apply independently;
	// dynamic MFA demands both. A missing PIN does not consume the attempt.
	needsPin := card.AuthPolicy == models.PolicyMandatoryPin ||
		card.AuthPolicy == models.PolicyDynamicMFA ||
		req.Amount > PinRequiredThreshold
	if needsPin && req.Pin == "" {
		return e.logged(identity, card, &ledgerEntry{
			status:    models.StatusRequiresPin,
			message:   "PIN required for this payment",
			amount:    req.Amount,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     flags,
		}), nil
	}

	needsBiometric := card.AuthPolicy == models.PolicyBiometric ||
		card.AuthPolicy == models.PolicyDynamicMFA
	if needsBiometric && !req.Biometric {
		return e.logged(identity, card, &ledgerEntry{
			status:    models.StatusPolicyViolation,
			message:   "biometric proof required",
			amount:    req.Amount,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     flags,
		}), nil
	}

	// DeviceInvoked
	result, err := e.invokeDevice(ctx, card, req.Amount, req.Pin, false)
	if err != nil {
		e.logged(identity, card, &ledgerEntry{
			status:    models.StatusNFCError,
			message:   err.Error(),
			amount:    req.Amount,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     append(flags, models.FlagDeviceFailure),
		})
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}

	switch result.Status {
	case device.StatusApproved:
		fee := req.Amount * FeeRate
		net := req.Amount - fee

		card.Spend.Add(now, req.Amount)
		identity.Risk.LastTransactionAt = now
		identity.Risk.LastGeoHash = req.GeoHash

		if req.Amount > HighValueThreshold {
			flags = append(flags, models.FlagHighValue)
		}

		return e.logged(identity, card, &ledgerEntry{
			status:    models.StatusSuccess,
			message:   fmt.Sprintf("payment of %.2f approved (fee %.2f)", net, fee),
			amount:    net,
			fee:       fee,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     flags,
		}), nil

	case device.StatusInsufficientFunds:
		// Flag appended, no balances mutate.
		return e.logged(identity, card, &ledgerEntry{
			status:    models.StatusInsufficientFunds,
			message:   result.Message,
			amount:    req.Amount,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     append(flags, models.FlagInsufficientFunds),
		}), nil

	default:
		// Anything outside the known enumeration is a failure.
		return e.logged(identity, card, &ledgerEntry{
			status:    models.StatusDeclined,
			message:   fmt.Sprintf("device declined: %s", result.Message),
			amount:    req.Amount,
			geoHash:   req.GeoHash,
			riskScore: score,
			flags:     flags,
		}), nil
	}
}

// TopUp shares the token-minting, device-invocation and logging skeleton of
// Pay but skips the limit, risk and policy gates: top-ups are not spend
// against the daily limit.
func (e *Engine) TopUp(ctx context.Context, req *TopUpRequest) (*Outcome, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	identity, found, err := e.Identities.GetOne(req.MobileNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIdentityNotFound
	}

	mu := e.Identities.Serialize(req.MobileNumber)
	mu.Lock()
	defer mu.Unlock()

	if _, err := e.Sessions.RequireActive(req.MobileNumber); err != nil {
		return nil, err
	}
	e.Sessions.Touch(req.MobileNumber)

	now := e.now()
	if !identity.Risk.LastTransactionAt.IsZero() && now.Sub(identity.Risk.LastTransactionAt) < CooldownInterval {
		return nil, ErrCooldown
	}

	card := identity.DefaultCard()
	if card == nil {
		return nil, ErrNoDefaultCard
	}

	if cards.IsExpired(card, now) {
		return e.logged(identity, card, &ledgerEntry{
			status:  models.StatusCardExpired,
			message: "card has expired",
			amount:  req.Amount,
			geoHash: req.GeoHash,
		}), nil
	}

	result, err := e.invokeDevice(ctx, card, req.Amount, req.Pin, true)
	if err != nil {
		e.logged(identity, card, &ledgerEntry{
			status:  models.StatusNFCError,
			message: err.Error(),
			amount:  req.Amount,
			geoHash: req.GeoHash,
			flags:   []string{models.FlagDeviceFailure},
		})
		return nil, fmt.Errorf("%w: %v", ErrDeviceFailure, err)
	}

	if result.Status != device.StatusApproved {
		return e.logged(identity, card, &ledgerEntry{
			status:  models.StatusDeclined,
			message: fmt.Sprintf("device declined top-up: %s", result.Message),
			amount:  req.Amount,
			geoHash: req.GeoHash,
		}), nil
	}

	identity.Risk.LastTransactionAt = now
	if req.GeoHash != "" {
		identity.Risk.LastGeoHash = req.GeoHash
	}

	return e.logged(identity, card, &ledgerEntry{
		status:  models.StatusSuccess,
		message: fmt.Sprintf("top-up of %.2f applied", req.Amount),
		amount:  req.Amount,
		geoHash: req.GeoHash,
	}), nil
}

// Balance reads the default card's balance from the device.
func (e *Engine) Balance(ctx context.Context, mobileNumber string) (float64, error) {
	identity, found, err := e.Identities.GetOne(mobileNumber)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrIdentityNotFound
	}

	if _, err := e.Sessions.RequireActive(mobileNumber); err != nil {
		return 0, err
	}
	e.Sessions.Touch(mobileNumber)

	card := identity.DefaultCard()
	if card == nil {
		return 0, ErrNoDefaultCard
	}

	ctx, cancel := context.WithTimeout(ctx, DeviceTimeout)
	defer cancel()

	return e.Device.GetBalance(ctx, card.ID)
}

// invokeDevice mints a fresh one-shot payment token and hands it to the
// device with a bounded timeout. The token carries the card's cipher text;
// plaintext never crosses this boundary.
func (e *Engine) invokeDevice(ctx context.Context, card *models.Card, amount float64, pin string, topUp bool) (*device.Result, error) {
	tok, err := e.Minter.Mint(card.ID, []byte(card.EncryptedNumber))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, DeviceTimeout)
	defer cancel()

	if topUp {
		return e.Device.TopUp(ctx, tok, amount, pin)
	}
	return e.Device.Transmit(ctx, tok, amount, pin)
}

type ledgerEntry struct {
	status    models.TransactionStatus
	message   string
	amount    float64
	fee       float64
	geoHash   string
	riskScore int
	flags     []string
}

// logged appends the terminal outcome to the ledger, feeds the incident
// counter and publishes the outcome to the event stream. Every terminal
// outcome, success or not, passes through here.
func (e *Engine) logged(identity *models.Identity, card *models.Card, entry *ledgerEntry) *Outcome {
	record := &models.TransactionRecord{
		ID:        uuid.NewString(),
		CardID:    card.ID,
		Amount:    entry.amount,
		FeeAmount: entry.fee,
		Status:    entry.status,
		Message:   entry.message,
		Flags:     entry.flags,
		GeoHash:   entry.geoHash,
		RiskScore: entry.riskScore,
		CreatedAt: e.now(),
	}

	if err := e.Ledger.Append(record); err != nil && e.Logger != nil {
		e.Logger.Error("ledger append failed", "error", err, "record_id", record.ID)
	}

	if entry.status != models.StatusSuccess && entry.riskScore > IncidentRiskFloor {
		identity.Risk.IncidentCount++

		// Crossing the lockout threshold locks the identity record itself,
		// so the lock survives any later reset of the incident counter.
		if risk.Locked(&identity.Risk) && identity.Status != models.IdentityLockedStatus {
			if err := e.Identities.Lock(identity.MobileNumber); err != nil && e.Logger != nil {
				e.Logger.Error("locking identity", "error", err, "mobile_number", identity.MobileNumber)
			}
		}
	}

	e.publish(identity, record)

	return &Outcome{
		RecordID:  record.ID,
		Status:    record.Status,
		Message:   record.Message,
		Amount:    record.Amount,
		FeeAmount: record.FeeAmount,
		RiskScore: record.RiskScore,
		Flags:     record.Flags,
	}
}

func (e *Engine) publish(identity *models.Identity, record *models.TransactionRecord) {
	if e.Events == nil {
		return
	}

	event := &AuthorizationEvent{
		MobileNumber: identity.MobileNumber,
		Email:        identity.Email,
		CardID:       record.CardID,
		Status:       string(record.Status),
		Message:      record.Message,
		Amount:       record.Amount,
		RiskScore:    record.RiskScore,
		Flags:        record.Flags,
		CreatedAt:    record.CreatedAt.Format(time.RFC3339),
	}

	message, err := json.Marshal(event)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Error("marshaling authorization event", "error", err)
		}
		return
	}

	// Fire and forget: the stream is an observer of the ledger, not a
	// participant in the state machine.
	if record.Status == models.StatusSuccess {
		go e.Events.ProduceMessage(stream.TopicAuthorizationCompleted, string(message))
	}
	if record.Flagged() {
		go e.Events.ProduceMessage(stream.TopicAuthorizationFlagged, string(message))
	}
}
