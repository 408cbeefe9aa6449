// Package otp issues and validates one-time passcodes, one outstanding code
// per identity. Issue and Validate are atomic per identity: the code and its
// attempt counter are read-modified-written under one lock, so a concurrent
// validate/invalidate pair cannot race.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const (
	Expiry      = 5 * time.Minute
	MaxAttempts = 3

	codeMin  = 100000
	codeSpan = 900000
)

// ErrTooManyAttempts is returned once the attempt counter has reached the
// maximum; the entry is purged, so even the correct code fails afterwards.
var ErrTooManyAttempts = errors.New("too many OTP attempts")

type entry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

type Service struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	now func() time.Time
}

func NewService() *Service {
	return &Service{
		entries: make(map[string]*entry),
		ttl:     Expiry,
		now:     time.Now,
	}
}

// Issue generates a fresh 6-digit code for the identity, invalidating any
// outstanding one and resetting the attempt counter.
func (s *Service) Issue(mobileNumber string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", codeMin+n.Int64())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[mobileNumber] = &entry{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}

	return code, nil
}

// Validate checks the supplied code. The attempt counter is consulted before
// the expiry check, so attempt exhaustion is enforced even against expired
// codes. An expired or mismatched code increments the counter and returns
// false without purging, leaving the caller free to retry up to the limit.
// A correct, unexpired match purges the entry so the code cannot be replayed.
func (s *Service) Validate(mobileNumber, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[mobileNumber]
	if !found {
		return false, nil
	}

	if e.attempts >= MaxAttempts {
		delete(s.entries, mobileNumber)
		return false, ErrTooManyAttempts
	}

	if s.now().After(e.expiresAt) || e.code != code {
		e.attempts++
		return false, nil
	}

	delete(s.entries, mobileNumber)
	return true, nil
}
