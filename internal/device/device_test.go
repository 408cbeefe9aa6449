package device

import (
	"context"
	"testing"

	"github.com/cradoe/walletguard/internal/token"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) (*Simulator, *token.Minter) {
	t.Helper()
	minter := token.NewMinter("test_payment_token_secret")
	return NewSimulator(minter), minter
}

func TestTransmit_DebitsBalance(t *testing.T) {
	sim, minter := newTestSimulator(t)
	sim.Seed("card-1", 500)

	tok, err := minter.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	result, err := sim.Transmit(context.Background(), tok, 120, "1234")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, result.Status)

	balance, err := sim.GetBalance(context.Background(), "card-1")
	require.NoError(t, err)
	require.Equal(t, 380.0, balance)
}

func TestTransmit_InsufficientFunds(t *testing.T) {
	sim, minter := newTestSimulator(t)
	sim.Seed("card-1", 50)

	tok, err := minter.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	result, err := sim.Transmit(context.Background(), tok, 120, "1234")
	require.NoError(t, err)
	require.Equal(t, StatusInsufficientFunds, result.Status)

	// No funds moved.
	balance, err := sim.GetBalance(context.Background(), "card-1")
	require.NoError(t, err)
	require.Equal(t, 50.0, balance)
}

func TestTransmit_TokenReplayRejected(t *testing.T) {
	sim, minter := newTestSimulator(t)
	sim.Seed("card-1", 500)

	tok, err := minter.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	_, err = sim.Transmit(context.Background(), tok, 100, "1234")
	require.NoError(t, err)

	_, err = sim.Transmit(context.Background(), tok, 100, "1234")
	require.ErrorIs(t, err, ErrTokenReplayed)
}

func TestTransmit_UnknownCard(t *testing.T) {
	sim, minter := newTestSimulator(t)

	tok, err := minter.Mint("card-ghost", []byte("p"))
	require.NoError(t, err)

	_, err = sim.Transmit(context.Background(), tok, 100, "1234")
	require.ErrorIs(t, err, ErrUnknownCard)
}

func TestTransmit_ForeignTokenRejected(t *testing.T) {
	sim, _ := newTestSimulator(t)
	sim.Seed("card-1", 500)

	foreign := token.NewMinter("another_secret_entirely")
	tok, err := foreign.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	_, err = sim.Transmit(context.Background(), tok, 100, "1234")
	require.ErrorIs(t, err, ErrTokenRejected)
}

func TestTopUp_CreditsUnprovisionedCard(t *testing.T) {
	sim, minter := newTestSimulator(t)

	tok, err := minter.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	result, err := sim.TopUp(context.Background(), tok, 300, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, result.Status)

	balance, err := sim.GetBalance(context.Background(), "card-1")
	require.NoError(t, err)
	require.Equal(t, 300.0, balance)
}

func TestContextCancellation(t *testing.T) {
	sim, minter := newTestSimulator(t)
	sim.Seed("card-1", 500)

	tok, err := minter.Mint("card-1", []byte("p"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sim.Transmit(ctx, tok, 100, "1234")
	require.ErrorIs(t, err, context.Canceled)
}
