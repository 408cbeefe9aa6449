// Package gateway models the online payment gateway and the in-app purchase
// provider as capability interfaces, with deterministic in-memory simulators
// substituted in development and tests.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrUnknownAuthority = errors.New("unknown payment authority")
	ErrUnknownProduct   = errors.New("unknown product")
)

type VerifyResult struct {
	Success bool
	RefID   string
}

// Gateway is the online top-up contract: a successful Verify is chained into
// a device top-up by the engine.
type Gateway interface {
	Initiate(ctx context.Context, amount float64, description, callbackURL string) (string, error)
	Verify(ctx context.Context, status, authority string, amount float64) (*VerifyResult, error)
}

type Simulated struct {
	mu      sync.Mutex
	pending map[string]float64
	baseURL string
}

func NewSimulated(baseURL string) *Simulated {
	return &Simulated{
		pending: make(map[string]float64),
		baseURL: baseURL,
	}
}

func (g *Simulated) Initiate(ctx context.Context, amount float64, description, callbackURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount <= 0 {
		return "", errors.New("amount must be positive")
	}

	authority := uuid.NewString()

	g.mu.Lock()
	g.pending[authority] = amount
	g.mu.Unlock()

	return fmt.Sprintf("%s/pay/%s", g.baseURL, authority), nil
}

func (g *Simulated) Verify(ctx context.Context, status, authority string, amount float64) (*VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	pendingAmount, found := g.pending[authority]
	if !found {
		return nil, ErrUnknownAuthority
	}

	if status != "OK" || pendingAmount != amount {
		return &VerifyResult{Success: false}, nil
	}

	delete(g.pending, authority)

	return &VerifyResult{Success: true, RefID: uuid.NewString()}, nil
}
