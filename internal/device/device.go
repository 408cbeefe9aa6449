// Package device models the contactless payment device as a small capability
// interface. The engine treats any status outside the known enumeration as a
// failure, and any returned error as a communication fault.
package device

import (
	"context"
	"errors"
	"sync"

	"github.com/cradoe/walletguard/internal/token"
)

const (
	StatusApproved          = "approved"
	StatusInsufficientFunds = "insufficient_funds"
	StatusDeclined          = "declined"
)

var (
	ErrUnknownCard   = errors.New("card not provisioned on device")
	ErrTokenRejected = errors.New("payment token rejected by device")
	ErrTokenReplayed = errors.New("payment token already used")
)

type Result struct {
	Status  string
	Message string
	Amount  float64
}

// Contract is the two-operation funds-movement contract plus balance lookup.
// Implementations may block on I/O; calls must honor ctx cancellation.
type Contract interface {
	Transmit(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*Result, error)
	TopUp(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*Result, error)
	GetBalance(ctx context.Context, cardID string) (float64, error)
}

// Simulator is the deterministic in-memory device used in development and
// tests. It validates token signature and expiry, enforces one-shot token
// use and keeps per-card balances.
type Simulator struct {
	mu       sync.Mutex
	balances map[string]float64
	used     map[string]struct{}
	verifier *token.Minter
}

func NewSimulator(verifier *token.Minter) *Simulator {
	return &Simulator{
		balances: make(map[string]float64),
		used:     make(map[string]struct{}),
		verifier: verifier,
	}
}

// Seed provisions a card on the device with an opening balance.
func (s *Simulator) Seed(cardID string, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[cardID] = balance
}

func (s *Simulator) accept(tok *token.PaymentToken) error {
	verified, err := s.verifier.Verify(tok.Signed)
	if err != nil {
		return ErrTokenRejected
	}
	if verified.CardID != tok.CardID {
		return ErrTokenRejected
	}

	if _, replayed := s.used[verified.ID]; replayed {
		return ErrTokenReplayed
	}
	s.used[verified.ID] = struct{}{}

	return nil
}

func (s *Simulator) Transmit(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.accept(tok); err != nil {
		return nil, err
	}

	balance, found := s.balances[tok.CardID]
	if !found {
		return nil, ErrUnknownCard
	}

	if balance < amount {
		return &Result{
			Status:  StatusInsufficientFunds,
			Message: "insufficient funds on card",
			Amount:  amount,
		}, nil
	}

	s.balances[tok.CardID] = balance - amount

	return &Result{
		Status:  StatusApproved,
		Message: "approved",
		Amount:  amount,
	}, nil
}

func (s *Simulator) TopUp(ctx context.Context, tok *token.PaymentToken, amount float64, pin string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.accept(tok); err != nil {
		return nil, err
	}

	if _, found := s.balances[tok.CardID]; !found {
		s.balances[tok.CardID] = 0
	}
	s.balances[tok.CardID] += amount

	return &Result{
		Status:  StatusApproved,
		Message: "top-up applied",
		Amount:  amount,
	}, nil
}

func (s *Simulator) GetBalance(ctx context.Context, cardID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, found := s.balances[cardID]
	if !found {
		return 0, ErrUnknownCard
	}

	return balance, nil
}
