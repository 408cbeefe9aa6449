package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulated_InitiateThenVerify(t *testing.T) {
	gw := NewSimulated("http://localhost:4444")

	redirectURL, err := gw.Initiate(context.Background(), 250, "wallet top-up", "http://localhost:4444/gateway/callback")
	require.NoError(t, err)

	authority := redirectURL[strings.LastIndex(redirectURL, "/")+1:]
	require.NotEmpty(t, authority)

	result, err := gw.Verify(context.Background(), "OK", authority, 250)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.RefID)

	// The authority token is consumed on success.
	_, err = gw.Verify(context.Background(), "OK", authority, 250)
	require.ErrorIs(t, err, ErrUnknownAuthority)
}

func TestSimulated_VerifyRejectsMismatch(t *testing.T) {
	gw := NewSimulated("http://localhost:4444")

	redirectURL, err := gw.Initiate(context.Background(), 250, "wallet top-up", "")
	require.NoError(t, err)
	authority := redirectURL[strings.LastIndex(redirectURL, "/")+1:]

	// Wrong amount fails verification but keeps the authority pending.
	result, err := gw.Verify(context.Background(), "OK", authority, 999)
	require.NoError(t, err)
	require.False(t, result.Success)

	result, err = gw.Verify(context.Background(), "NOK", authority, 250)
	require.NoError(t, err)
	require.False(t, result.Success)

	result, err = gw.Verify(context.Background(), "OK", authority, 250)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestSimulated_VerifyUnknownAuthority(t *testing.T) {
	gw := NewSimulated("http://localhost:4444")

	_, err := gw.Verify(context.Background(), "OK", "ghost", 100)
	require.ErrorIs(t, err, ErrUnknownAuthority)
}

func testCatalog() []Product {
	return []Product{
		{ID: "topup-10", Name: "Wallet credit 10", Value: 10},
		{ID: "topup-50", Name: "Wallet credit 50", Value: 50},
	}
}

func TestProvider_ListProducts(t *testing.T) {
	provider := NewSimulatedProvider(testCatalog())

	all, err := provider.ListProducts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	some, err := provider.ListProducts(context.Background(), []string{"topup-50", "topup-ghost"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	require.Equal(t, 50.0, some[0].Value)
}

func TestProvider_PurchaseTokenIsOneShot(t *testing.T) {
	provider := NewSimulatedProvider(testCatalog())

	purchase, err := provider.Purchase(context.Background(), "topup-10", "card-1")
	require.NoError(t, err)
	require.Equal(t, "topup-10", purchase.ProductID)

	verified, err := provider.VerifyPurchase(context.Background(), purchase.PurchaseToken)
	require.NoError(t, err)
	require.True(t, verified)

	verified, err = provider.VerifyPurchase(context.Background(), purchase.PurchaseToken)
	require.NoError(t, err)
	require.False(t, verified)
}

func TestProvider_UnknownProduct(t *testing.T) {
	provider := NewSimulatedProvider(testCatalog())

	_, err := provider.Purchase(context.Background(), "topup-ghost", "card-1")
	require.ErrorIs(t, err, ErrUnknownProduct)
}
