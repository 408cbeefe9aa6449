// Package token mints the ephemeral payment tokens handed to the device
// contract: a short-lived signed bundle of the encrypted card payload and the
// card id. Tokens are one-shot capabilities, created per transaction attempt
// and never persisted.
package token

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pascaldekloe/jwt"
)

const TTL = 5 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid payment token")
	ErrTokenExpired = errors.New("payment token expired")
)

type PaymentToken struct {
	ID        string
	CardID    string
	Payload   []byte // cipher text of the card number, opaque to the device
	ExpiresAt time.Time
	Signed    string
}

type Minter struct {
	secret []byte
	ttl    time.Duration

	now func() time.Time
}

func NewMinter(secret string) *Minter {
	return &Minter{
		secret: []byte(secret),
		ttl:    TTL,
		now:    time.Now,
	}
}

// Mint signs a fresh token for one device invocation.
func (m *Minter) Mint(cardID string, payload []byte) (*PaymentToken, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	var claims jwt.Claims
	claims.ID = uuid.NewString()
	claims.Subject = cardID
	claims.Issued = jwt.NewNumericTime(now)
	claims.Expires = jwt.NewNumericTime(expiresAt)
	claims.Set = map[string]any{
		"payload": base64.StdEncoding.EncodeToString(payload),
	}

	signed, err := claims.HMACSign(jwt.HS256, m.secret)
	if err != nil {
		return nil, err
	}

	return &PaymentToken{
		ID:        claims.ID,
		CardID:    cardID,
		Payload:   payload,
		ExpiresAt: expiresAt,
		Signed:    string(signed),
	}, nil
}

// Verify checks the signature and expiry of a signed token. The device side
// calls this before moving any funds.
func (m *Minter) Verify(signed string) (*PaymentToken, error) {
	claims, err := jwt.HMACCheck([]byte(signed), m.secret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.Valid(m.now()) {
		return nil, ErrTokenExpired
	}

	encoded, ok := claims.Set["payload"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &PaymentToken{
		ID:        claims.ID,
		CardID:    claims.Subject,
		Payload:   payload,
		ExpiresAt: claims.Expires.Time(),
		Signed:    signed,
	}, nil
}
