package snapshot

import (
	"testing"

	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/stretchr/testify/require"
)

func seedIdentity(t *testing.T) (repository.IdentityRepository, *models.Identity) {
	t.Helper()

	repo := repository.NewIdentityRepository()
	identity := &models.Identity{
		MobileNumber:   "+15550001111",
		NationalID:     "123456789",
		Email:          "holder@example.com",
		HashedPassword: "hashed",
		Status:         models.IdentityActiveStatus,
		DefaultCardID:  "card-1",
		Cards: []*models.Card{
			{
				ID:              "card-1",
				Alias:           "everyday",
				EncryptedNumber: "ciphertext-number",
				EncryptedCVV:    "ciphertext-cvv",
				Expiry:          "12/30",
				OwnerNationalID: "123456789",
				DailyLimit:      5000,
				AuthPolicy:      models.PolicyStandard,
			},
			{
				ID:              "card-2",
				Alias:           "backup",
				EncryptedNumber: "ciphertext-number-2",
				EncryptedCVV:    "ciphertext-cvv-2",
				Expiry:          "06/29",
				OwnerNationalID: "123456789",
				DailyLimit:      1000,
				AuthPolicy:      models.PolicyMandatoryPin,
				Suspended:       true,
			},
		},
	}
	require.NoError(t, repo.Insert(identity))

	return repo, identity
}

func TestExportImport_RoundTrip(t *testing.T) {
	source, _ := seedIdentity(t)

	snap, err := Export(source, "+15550001111")
	require.NoError(t, err)
	require.Equal(t, "card-1", snap.DefaultCardID)
	require.Len(t, snap.Cards, 2)

	// Cipher text crosses as-is; nothing is decrypted on the way out.
	require.Equal(t, "ciphertext-number", snap.Cards[0].EncryptedNumber)

	target := repository.NewIdentityRepository()
	require.NoError(t, Import(target, snap))

	restored, found, err := target.GetOne("+15550001111")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "card-1", restored.DefaultCardID)
	require.Equal(t, models.IdentityActiveStatus, restored.Status)
	require.Len(t, restored.Cards, 2)
	require.True(t, restored.Cards[1].Suspended)
	require.Equal(t, models.PolicyMandatoryPin, restored.Cards[1].AuthPolicy)
}

func TestExport_UnknownIdentity(t *testing.T) {
	repo := repository.NewIdentityRepository()

	_, err := Export(repo, "+15550009999")
	require.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestImport_DefaultCardMustBePresent(t *testing.T) {
	snap := &IdentitySnapshot{
		MobileNumber:  "+15550001111",
		DefaultCardID: "card-ghost",
		Cards: []CardSnapshot{
			{ID: "card-1"},
		},
	}

	err := Import(repository.NewIdentityRepository(), snap)
	require.ErrorIs(t, err, ErrDefaultCardMissing)
}

func TestImport_CardsWithoutDefaultRejected(t *testing.T) {
	snap := &IdentitySnapshot{
		MobileNumber: "+15550001111",
		Cards: []CardSnapshot{
			{ID: "card-1"},
		},
	}

	err := Import(repository.NewIdentityRepository(), snap)
	require.ErrorIs(t, err, ErrDefaultCardMissing)
}

func TestImport_CardlessIdentityAllowed(t *testing.T) {
	repo := repository.NewIdentityRepository()

	err := Import(repo, &IdentitySnapshot{
		MobileNumber:   "+15550002222",
		NationalID:     "987654321",
		HashedPassword: "hashed",
	})
	require.NoError(t, err)

	_, found, err := repo.GetOne("+15550002222")
	require.NoError(t, err)
	require.True(t, found)
}

func TestImport_DuplicateIdentity(t *testing.T) {
	repo, _ := seedIdentity(t)

	snap, err := Export(repo, "+15550001111")
	require.NoError(t, err)

	err = Import(repo, snap)
	require.ErrorIs(t, err, repository.ErrDuplicateIdentity)
}
