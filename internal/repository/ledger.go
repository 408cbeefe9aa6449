package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/cradoe/walletguard/internal/models"
)

// LedgerRepository is the append-only audit trail. No update or delete
// operation exists. Appends from different identities may interleave; only
// per-identity chronological order matters for queries.
type LedgerRepository interface {
	Append(record *models.TransactionRecord) error
	ListByCards(cardIDs []string) ([]models.TransactionRecord, error)
	ListByDateRange(cardIDs []string, start, end time.Time) ([]models.TransactionRecord, error)
}

type LedgerRepositoryImpl struct {
	mu      sync.Mutex
	records []models.TransactionRecord
}

func NewLedgerRepository() LedgerRepository {
	return &LedgerRepositoryImpl{}
}

func (repo *LedgerRepositoryImpl) Append(record *models.TransactionRecord) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.records = append(repo.records, *record)
	return nil
}

// ListByCards returns the records for the given card ids, newest first.
// Identity-scoped queries pass the set of card ids belonging to the requester.
func (repo *LedgerRepositoryImpl) ListByCards(cardIDs []string) ([]models.TransactionRecord, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	owned := make(map[string]struct{}, len(cardIDs))
	for _, id := range cardIDs {
		owned[id] = struct{}{}
	}

	var matches []models.TransactionRecord
	for _, record := range repo.records {
		if _, ok := owned[record.CardID]; ok {
			matches = append(matches, record)
		}
	}

	sortNewestFirst(matches)
	return matches, nil
}

// ListByDateRange filters like ListByCards, keeping records with
// start <= created_at <= end, newest first.
func (repo *LedgerRepositoryImpl) ListByDateRange(cardIDs []string, start, end time.Time) ([]models.TransactionRecord, error) {
	records, err := repo.ListByCards(cardIDs)
	if err != nil {
		return nil, err
	}

	var matches []models.TransactionRecord
	for _, record := range records {
		if record.CreatedAt.Before(start) || record.CreatedAt.After(end) {
			continue
		}
		matches = append(matches, record)
	}

	return matches, nil
}

func sortNewestFirst(records []models.TransactionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
