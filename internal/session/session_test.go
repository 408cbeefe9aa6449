package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequireActive_NoSession(t *testing.T) {
	manager := NewManager()

	_, err := manager.RequireActive("+15550001111")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRequireActive_ExpiredSessionIsInvalidated(t *testing.T) {
	manager := NewManager()
	manager.Start("+15550001111")

	manager.now = func() time.Time { return time.Now().Add(IdleTimeout + time.Minute) }

	_, err := manager.RequireActive("+15550001111")
	require.ErrorIs(t, err, ErrExpired)

	// The expired session was deleted, so the next failure is unauthenticated.
	_, err = manager.RequireActive("+15550001111")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestTouch_ExtendsSession(t *testing.T) {
	manager := NewManager()
	base := time.Now()
	manager.now = func() time.Time { return base }

	manager.Start("+15550001111")

	// 20 minutes pass, activity refreshes the clock.
	manager.now = func() time.Time { return base.Add(20 * time.Minute) }
	manager.Touch("+15550001111")

	// 20 more minutes: 40 past login but only 20 past last activity.
	manager.now = func() time.Time { return base.Add(40 * time.Minute) }
	session, err := manager.RequireActive("+15550001111")
	require.NoError(t, err)
	require.Equal(t, "+15550001111", session.MobileNumber)
}

func TestStart_SupersedesPriorSession(t *testing.T) {
	manager := NewManager()

	first := manager.Start("+15550001111")
	second := manager.Start("+15550001111")
	require.NotEqual(t, first.ID, second.ID)

	active, err := manager.RequireActive("+15550001111")
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)
}

func TestEnd_InvalidatesSession(t *testing.T) {
	manager := NewManager()
	manager.Start("+15550001111")
	manager.End("+15550001111")

	_, err := manager.RequireActive("+15550001111")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
