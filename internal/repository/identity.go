package repository

import (
	"errors"
	"sync"

	"github.com/cradoe/walletguard/internal/models"
)

var (
	ErrDuplicateIdentity = errors.New("mobile number already registered")
)

// IdentityRepository holds the authoritative in-memory identity aggregates.
// Persistence durability is out of scope; snapshots (internal/snapshot) are
// the only way state leaves the process.
//
// GetOne returns the live aggregate. Any mutation of an aggregate — cards,
// daily spend, risk counters — must happen while holding the mutex returned
// by Serialize for that identity; the repository mutex only guards the map.
type IdentityRepository interface {
	Insert(identity *models.Identity) error
	GetOne(mobileNumber string) (*models.Identity, bool, error)
	Lock(mobileNumber string) error
	Serialize(mobileNumber string) *sync.Mutex
}

type IdentityRepositoryImpl struct {
	mu         sync.RWMutex
	identities map[string]*models.Identity
	locks      sync.Map // mobileNumber -> *sync.Mutex, never deleted
}

func NewIdentityRepository() IdentityRepository {
	return &IdentityRepositoryImpl{
		identities: make(map[string]*models.Identity),
	}
}

func (repo *IdentityRepositoryImpl) Insert(identity *models.Identity) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, exists := repo.identities[identity.MobileNumber]; exists {
		return ErrDuplicateIdentity
	}

	repo.identities[identity.MobileNumber] = identity
	return nil
}

func (repo *IdentityRepositoryImpl) GetOne(mobileNumber string) (*models.Identity, bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	identity, found := repo.identities[mobileNumber]
	if !found {
		return nil, false, nil
	}

	return identity, true, nil
}

func (repo *IdentityRepositoryImpl) Lock(mobileNumber string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	identity, found := repo.identities[mobileNumber]
	if !found {
		return errors.New("identity not found")
	}

	identity.Status = models.IdentityLockedStatus
	return nil
}

// Serialize returns the mutex that serializes all mutating operations on one
// identity's state. The authorization engine holds it for the whole
// Start→Logged sequence; guarded card mutations hold it too.
func (repo *IdentityRepositoryImpl) Serialize(mobileNumber string) *sync.Mutex {
	mu, _ := repo.locks.LoadOrStore(mobileNumber, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
