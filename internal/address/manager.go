package address

import (
	"context"
	"fmt"
	"sync"

	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// Manager hands out one address store per scope. Authenticated users are
// scoped by their id; guests by a client identifier, with the guest-address
// slot wired in.
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

// ForOwner returns the authenticated owner's store, loading it on first use.
func (m *Manager) ForOwner(ctx context.Context, ownerID string) *Store {
	return m.get(ctx, ownerID, SnapshotKey(ownerID), "")
}

// ForGuest returns the guest store scoped by client id, with its guest slot.
func (m *Manager) ForGuest(ctx context.Context, clientID string) *Store {
	scope := "guest:" + clientID
	return m.get(ctx, scope, SnapshotKey(scope), GuestSlotKey(clientID))
}

// Drop evicts a store from memory without touching its snapshots.
func (m *Manager) Drop(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, scope)
}

func (m *Manager) get(ctx context.Context, scope, key, guestKey string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.stores[scope]; ok {
		return st
	}
	st := NewStore(m.storage, m.logg, key, guestKey)
	st.Load(ctx)
	m.stores[scope] = st
	return st
}

// SnapshotKey is the storage key a scope's address book snapshots under.
func SnapshotKey(scope string) string {
	return fmt.Sprintf("address:%s", scope)
}

// GuestSlotKey is the well-known key holding a client's lone guest address.
func GuestSlotKey(clientID string) string {
	return fmt.Sprintf("guest_address:%s", clientID)
}
