package models

import "time"

const (
	// IdentityActiveStatus indicates the identity can authenticate and transact.
	IdentityActiveStatus = "active"

	// IdentityLockedStatus indicates the identity has been locked, either by
	// accumulated security incidents or by administrative action. A locked
	// identity cannot initiate payments until unlocked.
	IdentityLockedStatus = "locked"
)

// Identity is the aggregate root for everything the engine knows about one
// wallet holder. The mobile number is the unique key. Cards are owned by the
// identity and ordered by the time they were added.
type Identity struct {
	MobileNumber   string    `json:"mobile_number"`
	NationalID     string    `json:"national_id"`
	Email          string    `json:"email,omitempty"`
	HashedPassword string    `json:"-"`
	Cards          []*Card   `json:"cards"`
	DefaultCardID  string    `json:"default_card_id"`
	Status         string    `json:"status"`
	Risk           RiskState `json:"risk"`
	CreatedAt      time.Time `json:"created_at"`
}

// Card returns the card with the given id, or nil.
func (i *Identity) Card(cardID string) *Card {
	for _, card := range i.Cards {
		if card.ID == cardID {
			return card
		}
	}
	return nil
}

// DefaultCard resolves the card currently marked as default, or nil when the
// identity has no cards yet.
func (i *Identity) DefaultCard() *Card {
	return i.Card(i.DefaultCardID)
}

// RiskState carries the per-identity counters the risk engine scores against.
// It is mutated only by the authorization engine, after each attempt.
type RiskState struct {
	LastGeoHash       string    `json:"last_geo_hash"`
	LastTransactionAt time.Time `json:"last_transaction_at"`
	IncidentCount     int       `json:"incident_count"`
}
