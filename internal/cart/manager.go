package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// Manager hands out one cart store per owner, rehydrating from storage the
// first time an owner's cart is requested.
type Manager struct {
	mu      sync.Mutex
	stores  map[string]*Store
	storage kvstore.Storage
	logg    *logger.Logger
}

func NewManager(storage kvstore.Storage, logg *logger.Logger) *Manager {
	return &Manager{
		stores:  map[string]*Store{},
		storage: storage,
		logg:    logg,
	}
}

// ForOwner returns the owner's cart, creating and loading it on first use.
func (m *Manager) ForOwner(ctx context.Context, ownerID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[ownerID]; ok {
		return st
	}
	st := NewStore(m.storage, m.logg, SnapshotKey(ownerID))
	st.Load(ctx)
	m.stores[ownerID] = st
	return st
}

// Drop evicts the owner's cart from memory. The persisted snapshot is left
// alone; use Store.Reset to remove it.
func (m *Manager) Drop(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, ownerID)
}

// SnapshotKey is the storage key an owner's cart snapshots under.
func SnapshotKey(ownerID string) string {
	return fmt.Sprintf("cart:%s", ownerID)
}
