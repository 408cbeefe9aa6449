package models

import "time"

// TransactionStatus is a terminal outcome of an authorization attempt.
// Declined statuses are expected business results, returned as values and
// always logged; they are distinct from fatal errors (§ engine package).
type TransactionStatus string

const (
	StatusSuccess           TransactionStatus = "success"
	StatusInsufficientFunds TransactionStatus = "insufficient_funds"
	StatusRequiresPin       TransactionStatus = "requires_pin"
	StatusPolicyViolation   TransactionStatus = "policy_violation"
	StatusCardExpired       TransactionStatus = "card_expired"

	// StatusDeclined covers device responses outside the known enumeration.
	StatusDeclined TransactionStatus = "declined"

	// StatusNFCError records a device communication fault. The fault is still
	// raised to the caller as a fatal error after the record is written.
	StatusNFCError TransactionStatus = "nfc_error"
)

// Security flags attached to transaction records.
const (
	FlagForcedMFA         = "DRS_HIGH_RISK_FORCED_MFA"
	FlagVelocityRisk      = "VELOCITY_FRAUD_RISK_HIGH"
	FlagHighValue         = "HIGH_VALUE_TRANSACTION"
	FlagInsufficientFunds = "INSUFFICIENT_FUNDS"
	FlagDeviceFailure     = "DEVICE_COMM_FAILURE"
)

// TransactionRecord is immutable once appended to the ledger.
type TransactionRecord struct {
	ID        string            `json:"id"`
	CardID    string            `json:"card_id"`
	Amount    float64           `json:"amount"`
	FeeAmount float64           `json:"fee_amount"`
	Status    TransactionStatus `json:"status"`
	Message   string            `json:"message"`
	Flags     []string          `json:"flags,omitempty"`
	GeoHash   string            `json:"geo_hash"`
	RiskScore int               `json:"risk_score"`
	CreatedAt time.Time         `json:"created_at"`
}

// Flagged reports whether the record carries any security flag.
func (r *TransactionRecord) Flagged() bool {
	return len(r.Flags) != 0
}
