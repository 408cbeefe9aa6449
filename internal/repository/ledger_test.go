package repository

import (
	"testing"
	"time"

	"github.com/cradoe/walletguard/internal/models"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T) (LedgerRepository, time.Time) {
	t.Helper()

	ledger := NewLedgerRepository()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	records := []models.TransactionRecord{
		{ID: "rec-1", CardID: "card-1", Status: models.StatusSuccess, CreatedAt: base},
		{ID: "rec-2", CardID: "card-2", Status: models.StatusSuccess, CreatedAt: base.Add(time.Hour)},
		{ID: "rec-3", CardID: "card-1", Status: models.StatusPolicyViolation, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "rec-4", CardID: "card-other", Status: models.StatusSuccess, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range records {
		require.NoError(t, ledger.Append(&records[i]))
	}

	return ledger, base
}

func TestListByCards_NewestFirstAndScoped(t *testing.T) {
	ledger, _ := seedLedger(t)

	records, err := ledger.ListByCards([]string{"card-1", "card-2"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "rec-3", records[0].ID)
	require.Equal(t, "rec-2", records[1].ID)
	require.Equal(t, "rec-1", records[2].ID)
}

func TestListByCards_NoCards(t *testing.T) {
	ledger, _ := seedLedger(t)

	records, err := ledger.ListByCards(nil)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestListByDateRange_InclusiveBounds(t *testing.T) {
	ledger, base := seedLedger(t)

	records, err := ledger.ListByDateRange([]string{"card-1", "card-2"}, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "rec-2", records[0].ID)
	require.Equal(t, "rec-1", records[1].ID)
}

func TestAppend_CopiesRecord(t *testing.T) {
	ledger := NewLedgerRepository()

	record := &models.TransactionRecord{ID: "rec-1", CardID: "card-1", CreatedAt: time.Now()}
	require.NoError(t, ledger.Append(record))

	// Mutating the caller's record must not rewrite ledger history.
	record.Status = models.StatusDeclined

	records, err := ledger.ListByCards([]string{"card-1"})
	require.NoError(t, err)
	require.NotEqual(t, models.StatusDeclined, records[0].Status)
}

func TestIdentityRepository_InsertAndLock(t *testing.T) {
	repo := NewIdentityRepository()

	identity := &models.Identity{MobileNumber: "+15550001111", Status: models.IdentityActiveStatus}
	require.NoError(t, repo.Insert(identity))
	require.ErrorIs(t, repo.Insert(identity), ErrDuplicateIdentity)

	got, found, err := repo.GetOne("+15550001111")
	require.NoError(t, err)
	require.True(t, found)
	require.Same(t, identity, got)

	require.NoError(t, repo.Lock("+15550001111"))
	require.Equal(t, models.IdentityLockedStatus, identity.Status)

	require.Error(t, repo.Lock("+15550009999"))
}

func TestIdentityRepository_SerializeIsStable(t *testing.T) {
	repo := NewIdentityRepository()

	first := repo.Serialize("+15550001111")
	second := repo.Serialize("+15550001111")
	require.Same(t, first, second)

	other := repo.Serialize("+15550002222")
	require.NotSame(t, first, other)
}
