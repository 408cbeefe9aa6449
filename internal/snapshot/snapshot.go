// Package snapshot is the only way identity state leaves the process:
// persistence durability is an external concern. Exports carry cipher text
// only; plaintext card data never appears in a snapshot.
package snapshot

import (
	"errors"
	"time"

	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrDefaultCardMissing rejects a snapshot whose default card id is not
	// among the included cards.
	ErrDefaultCardMissing = errors.New("default card is not present in snapshot")
)

type CardSnapshot struct {
	ID              string  `json:"id"`
	Alias           string  `json:"alias"`
	EncryptedNumber string  `json:"encrypted_number"`
	EncryptedCVV    string  `json:"encrypted_cvv"`
	Expiry          string  `json:"expiry"`
	OwnerNationalID string  `json:"owner_national_id"`
	DailyLimit      float64 `json:"daily_limit"`
	AuthPolicy      string  `json:"auth_policy"`
	Suspended       bool    `json:"suspended"`
}

type IdentitySnapshot struct {
	MobileNumber   string         `json:"mobile_number"`
	NationalID     string         `json:"national_id"`
	Email          string         `json:"email,omitempty"`
	HashedPassword string         `json:"hashed_password"`
	DefaultCardID  string         `json:"default_card_id"`
	Cards          []CardSnapshot `json:"cards"`
}

// Export captures an identity and its cards (cipher text only).
func Export(repo repository.IdentityRepository, mobileNumber string) (*IdentitySnapshot, error) {
	identity, found, err := repo.GetOne(mobileNumber)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrIdentityNotFound
	}

	mu := repo.Serialize(mobileNumber)
	mu.Lock()
	defer mu.Unlock()

	snap := &IdentitySnapshot{
		MobileNumber:   identity.MobileNumber,
		NationalID:     identity.NationalID,
		Email:          identity.Email,
		HashedPassword: identity.HashedPassword,
		DefaultCardID:  identity.DefaultCardID,
	}

	for _, card := range identity.Cards {
		snap.Cards = append(snap.Cards, CardSnapshot{
			ID:              card.ID,
			Alias:           card.Alias,
			EncryptedNumber: card.EncryptedNumber,
			EncryptedCVV:    card.EncryptedCVV,
			Expiry:          card.Expiry,
			OwnerNationalID: card.OwnerNationalID,
			DailyLimit:      card.DailyLimit,
			AuthPolicy:      string(card.AuthPolicy),
			Suspended:       card.Suspended,
		})
	}

	return snap, nil
}

// Import rebuilds an identity from a snapshot. The snapshot must include the
// default card among its cards.
func Import(repo repository.IdentityRepository, snap *IdentitySnapshot) error {
	// An identity with cards must name one of them as default; a card-less
	// snapshot is the only shape allowed to omit it.
	if snap.DefaultCardID == "" {
		if len(snap.Cards) > 0 {
			return ErrDefaultCardMissing
		}
	} else {
		found := false
		for _, card := range snap.Cards {
			if card.ID == snap.DefaultCardID {
				found = true
				break
			}
		}
		if !found {
			return ErrDefaultCardMissing
		}
	}

	identity := &models.Identity{
		MobileNumber:   snap.MobileNumber,
		NationalID:     snap.NationalID,
		Email:          snap.Email,
		HashedPassword: snap.HashedPassword,
		DefaultCardID:  snap.DefaultCardID,
		Status:         models.IdentityActiveStatus,
		CreatedAt:      time.Now(),
	}

	for _, card := range snap.Cards {
		identity.Cards = append(identity.Cards, &models.Card{
			ID:              card.ID,
			Alias:           card.Alias,
			EncryptedNumber: card.EncryptedNumber,
			EncryptedCVV:    card.EncryptedCVV,
			Expiry:          card.Expiry,
			OwnerNationalID: card.OwnerNationalID,
			DailyLimit:      card.DailyLimit,
			AuthPolicy:      models.AuthPolicy(card.AuthPolicy),
			Suspended:       card.Suspended,
			CreatedAt:       time.Now(),
		})
	}

	return repo.Insert(identity)
}
