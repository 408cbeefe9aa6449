// Package cards validates and stores card records, masks sensitive fields and
// carries the guarded mutations on a wallet's card set. Plaintext numbers and
// CVVs never leave this package unencrypted except through Mask/Decrypt calls
// made on demand.
package cards

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cradoe/walletguard/internal/crypto"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/otp"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/cradoe/walletguard/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/google/uuid"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrCardNotFound     = errors.New("card not found")

	// ErrCannotRemoveDefault guards the invariant that exactly one card per
	// identity is default: set a new default first, then remove.
	ErrCannotRemoveDefault = errors.New("cannot remove the default card; set a new default first")

	ErrInvalidOtp      = errors.New("invalid or expired OTP code")
	ErrInvalidPassword = errors.New("incorrect password")
)

// ValidationError carries field-level messages raised at card construction.
// These never reach the ledger.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "card validation failed: " + strings.Join(e.Errors, "; ")
}

// CardInput is the plaintext card submission. Number and CVV are encrypted
// immediately and the input should not be retained by callers.
type CardInput struct {
	Alias           string
	Number          string
	CVV             string
	Expiry          string // MM/YY
	OwnerNationalID string
	DailyLimit      float64
	AuthPolicy      models.AuthPolicy
}

// GuardInput is the proof required for every card mutation: a valid OTP code
// and the account password, on top of an active session.
type GuardInput struct {
	OtpCode  string
	Password string
}

type Registry struct {
	Identities repository.IdentityRepository
	Cipher     crypto.Cipher
	Sessions   *session.Manager
	Otp        *otp.Service
}

func NewRegistry(registry *Registry) *Registry {
	return &Registry{
		Identities: registry.Identities,
		Cipher:     registry.Cipher,
		Sessions:   registry.Sessions,
		Otp:        registry.Otp,
	}
}

// Validate checks the card fields without touching any state.
func Validate(identity *models.Identity, in *CardInput) *ValidationError {
	var v validator.Validator

	v.Check(validator.Matches(in.Number, validator.RgxCardNumber), "Card number must be exactly 16 digits")
	v.Check(validator.Matches(in.CVV, validator.RgxCardCVV), "CVV must be exactly 3 digits")
	v.Check(validator.Matches(in.Expiry, validator.RgxCardExpiry), "Expiry must be in MM/YY format")
	v.Check(in.DailyLimit > 0, "Daily limit must be greater than zero")

	if in.AuthPolicy != "" {
		v.Check(in.AuthPolicy.Valid(), "Unknown auth policy")
	}

	// The owner national id, when supplied, must equal the owning identity's.
	if in.OwnerNationalID != "" {
		v.Check(in.OwnerNationalID == identity.NationalID, "National ID does not match the account holder")
	}

	if v.HasErrors() {
		return &ValidationError{Errors: v.Errors}
	}

	return nil
}

// IsExpired reports whether at falls on or after the first day of the month
// following the card's expiry month/year. A malformed expiry fails closed.
func IsExpired(card *models.Card, at time.Time) bool {
	expiry, err := time.ParseInLocation("01/06", card.Expiry, at.Location())
	if err != nil {
		return true
	}

	firstInvalidDay := time.Date(expiry.Year(), expiry.Month()+1, 1, 0, 0, 0, 0, at.Location())
	return !at.Before(firstInvalidDay)
}

// MaskNumber renders a plaintext card number as "**** **** **** 1234".
func MaskNumber(number string) string {
	if len(number) < 4 {
		return "**** **** **** ****"
	}
	return "**** **** **** " + number[len(number)-4:]
}

// Mask decrypts the stored number and returns its masked form. A decryption
// failure is a data-integrity error, never an empty mask.
func (r *Registry) Mask(card *models.Card) (string, error) {
	number, err := r.Cipher.Decrypt(card.EncryptedNumber)
	if err != nil {
		return "", fmt.Errorf("card %s: %w", card.ID, err)
	}
	return MaskNumber(number), nil
}

// build encrypts the submitted card and stamps ownership. Validation must
// have passed already.
func (r *Registry) build(identity *models.Identity, in *CardInput) (*models.Card, error) {
	encryptedNumber, err := r.Cipher.Encrypt(in.Number)
	if err != nil {
		return nil, err
	}
	encryptedCVV, err := r.Cipher.Encrypt(in.CVV)
	if err != nil {
		return nil, err
	}

	policy := in.AuthPolicy
	if policy == "" {
		policy = models.PolicyStandard
	}

	return &models.Card{
		ID:              uuid.NewString(),
		Alias:           in.Alias,
		EncryptedNumber: encryptedNumber,
		EncryptedCVV:    encryptedCVV,
		Expiry:          in.Expiry,
		OwnerNationalID: identity.NationalID,
		DailyLimit:      in.DailyLimit,
		AuthPolicy:      policy,
		CreatedAt:       time.Now(),
	}, nil
}

// AttachInitial registers a card during identity registration, before any
// session exists. The first card becomes the default.
func (r *Registry) AttachInitial(identity *models.Identity, in *CardInput) (*models.Card, error) {
	if verr := Validate(identity, in); verr != nil {
		return nil, verr
	}

	card, err := r.build(identity, in)
	if err != nil {
		return nil, err
	}

	identity.Cards = append(identity.Cards, card)
	if identity.DefaultCardID == "" {
		identity.DefaultCardID = card.ID
	}

	return card, nil
}

// guard enforces the three preconditions of every card mutation: an active
// session, a valid OTP and a password match.
func (r *Registry) guard(identity *models.Identity, g *GuardInput) error {
	if _, err := r.Sessions.RequireActive(identity.MobileNumber); err != nil {
		return err
	}
	r.Sessions.Touch(identity.MobileNumber)

	ok, err := r.Otp.Validate(identity.MobileNumber, g.OtpCode)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOtp
	}

	matches, err := gopass.ComparePasswordAndHash(g.Password, identity.HashedPassword)
	if err != nil {
		return err
	}
	if !matches {
		return ErrInvalidPassword
	}

	return nil
}

// mutate runs fn against the identity aggregate under its serialization
// lock, after the guard has passed.
func (r *Registry) mutate(mobileNumber string, g *GuardInput, fn func(*models.Identity) error) error {
	identity, found, err := r.Identities.GetOne(mobileNumber)
	if err != nil {
		return err
	}
	if !found {
		return ErrIdentityNotFound
	}

	mu := r.Identities.Serialize(mobileNumber)
	mu.Lock()
	defer mu.Unlock()

	if err := r.guard(identity, g); err != nil {
		return err
	}

	return fn(identity)
}

// Add registers a new card on the identity.
func (r *Registry) Add(mobileNumber string, g *GuardInput, in *CardInput) (*models.Card, error) {
	var added *models.Card

	err := r.mutate(mobileNumber, g, func(identity *models.Identity) error {
		if verr := Validate(identity, in); verr != nil {
			return verr
		}

		card, err := r.build(identity, in)
		if err != nil {
			return err
		}

		identity.Cards = append(identity.Cards, card)
		if identity.DefaultCardID == "" {
			identity.DefaultCardID = card.ID
		}

		added = card
		return nil
	})

	return added, err
}

// Remove deletes a card. Removing the current default is rejected.
func (r *Registry) Remove(mobileNumber string, g *GuardInput, cardID string) error {
	return r.mutate(mobileNumber, g, func(identity *models.Identity) error {
		if identity.DefaultCardID == cardID {
			return ErrCannotRemoveDefault
		}

		for i, card := range identity.Cards {
			if card.ID == cardID {
				identity.Cards = append(identity.Cards[:i], identity.Cards[i+1:]...)
				return nil
			}
		}

		return ErrCardNotFound
	})
}

// SetDefault marks an existing card as the identity's default.
func (r *Registry) SetDefault(mobileNumber string, g *GuardInput, cardID string) error {
	return r.mutate(mobileNumber, g, func(identity *models.Identity) error {
		if identity.Card(cardID) == nil {
			return ErrCardNotFound
		}

		identity.DefaultCardID = cardID
		return nil
	})
}

// SetDailyLimit changes a card's daily spend ceiling.
func (r *Registry) SetDailyLimit(mobileNumber string, g *GuardInput, cardID string, limit float64) error {
	return r.mutate(mobileNumber, g, func(identity *models.Identity) error {
		if limit <= 0 {
			return &ValidationError{Errors: []string{"Daily limit must be greater than zero"}}
		}

		card := identity.Card(cardID)
		if card == nil {
			return ErrCardNotFound
		}

		card.DailyLimit = limit
		return nil
	})
}

// SetAuthPolicy changes a card's auth policy. A manual change clears any
// risk-engine escalation so the policy will not silently revert.
func (r *Registry) SetAuthPolicy(mobileNumber string, g *GuardInput, cardID string, policy models.AuthPolicy) error {
	return r.mutate(mobileNumber, g, func(identity *models.Identity) error {
		if !policy.Valid() {
			return &ValidationError{Errors: []string{"Unknown auth policy"}}
		}

		card := identity.Card(cardID)
		if card == nil {
			return ErrCardNotFound
		}

		card.AuthPolicy = policy
		card.AutoEscalated = false
		return nil
	})
}
