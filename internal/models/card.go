package models

import "time"

// AuthPolicy is the per-card rule for what extra proof a payment requires.
type AuthPolicy string

const (
	PolicyStandard     AuthPolicy = "standard"
	PolicyMandatoryPin AuthPolicy = "mandatory_pin"
	PolicyBiometric    AuthPolicy = "biometric_required"

	// PolicyDynamicMFA demands both PIN and biometric proof. The risk engine
	// force-escalates a card to this policy while it scores high risk.
	PolicyDynamicMFA AuthPolicy = "dynamic_mfa"
)

func (p AuthPolicy) Valid() bool {
	switch p {
	case PolicyStandard, PolicyMandatoryPin, PolicyBiometric, PolicyDynamicMFA:
		return true
	}
	return false
}

// Card stores only cipher text for the number and CVV; plaintext is decrypted
// on demand and never retained.
type Card struct {
	ID              string     `json:"id"`
	Alias           string     `json:"alias"`
	EncryptedNumber string     `json:"encrypted_number"`
	EncryptedCVV    string     `json:"encrypted_cvv"`
	Expiry          string     `json:"expiry"` // MM/YY
	OwnerNationalID string     `json:"owner_national_id"`
	DailyLimit      float64    `json:"daily_limit"`
	AuthPolicy      AuthPolicy `json:"auth_policy"`
	Suspended       bool       `json:"suspended"`

	// AutoEscalated marks a policy that was forced to dynamic MFA by the risk
	// engine, so it can be reverted once the risk signals clear.
	AutoEscalated bool `json:"auto_escalated"`

	Spend     DailySpend `json:"spend"`
	CreatedAt time.Time  `json:"created_at"`
}

// DailySpend is the running total of successful payments charged against a
// card's daily limit. The total resets at local-date rollover.
type DailySpend struct {
	Date  string  `json:"date"` // 2006-01-02, local time
	Total float64 `json:"total"`
}

// TotalFor returns the accumulated spend for the local date of now,
// treating a stale accumulator as zero.
func (s *DailySpend) TotalFor(now time.Time) float64 {
	if s.Date != now.Format(time.DateOnly) {
		return 0
	}
	return s.Total
}

// Add records amount against the local date of now, rolling the accumulator
// over first if the stored date is stale.
func (s *DailySpend) Add(now time.Time, amount float64) {
	date := now.Format(time.DateOnly)
	if s.Date != date {
		s.Date = date
		s.Total = 0
	}
	s.Total += amount
}
