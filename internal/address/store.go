package address

import (
	"context"
	"sync"

	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

type snapshot struct {
	Addresses []Address `json:"addresses"`
	Active    *Address  `json:"active,omitempty"`
}

// Store is an isolated address state container. It keeps the collection, the
// active address, and the cached primary in memory, snapshotting to durable
// storage on every mutation. A guest-owned address is additionally mirrored
// to its own well-known slot so it survives independently of the main
// snapshot.
type Store struct {
	mu        sync.Mutex
	addresses []Address
	active    *Address
	primary   *Address
	storage   kvstore.Storage
	logg      *logger.Logger
	key       string
	guestKey  string
}

// NewStore builds an address store snapshotting under key. guestKey names the
// guest-address slot; pass "" for stores that never hold guest state.
func NewStore(storage kvstore.Storage, logg *logger.Logger, key, guestKey string) *Store {
	return &Store{storage: storage, logg: logg, key: key, guestKey: guestKey}
}

// Load rehydrates from the main snapshot, falling back to the guest slot when
// no snapshot exists. A lone guest address is always active and primary.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap snapshot
	if kvstore.LoadSnapshot(ctx, s.storage, s.logg, s.key, &snap) {
		s.addresses = snap.Addresses
		s.active = snap.Active
		s.primary = s.findPrimary()
		return
	}

	if s.guestKey == "" {
		return
	}
	var guest Address
	if kvstore.LoadSnapshot(ctx, s.storage, s.logg, s.guestKey, &guest) && guest.ID != "" {
		guest.IsPrimary = true
		s.addresses = []Address{guest}
		s.active = &guest
		s.primary = &guest
	}
}

// SetAddresses replaces the whole collection, typically after a remote fetch.
// Primary is recomputed from the flags; an already-set active address is
// never overwritten, otherwise active falls to the primary, then to the first
// entry.
func (s *Store) SetAddresses(ctx context.Context, list []Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.addresses = make([]Address, len(list))
	copy(s.addresses, list)
	s.primary = s.findPrimary()

	if s.active == nil {
		if s.primary != nil {
			s.active = copyOf(*s.primary)
		} else if len(s.addresses) > 0 {
			s.active = copyOf(s.addresses[0])
		}
	}
	s.persist(ctx)
}

// SetActiveAddress sets the browsing/ordering context address. Membership in
// the collection is the caller's responsibility. A primary-flagged address
// also refreshes the primary cache.
func (s *Store) SetActiveAddress(ctx context.Context, addr *Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr == nil {
		s.active = nil
	} else {
		s.active = copyOf(*addr)
		if addr.IsPrimary {
			s.primary = copyOf(*addr)
		}
	}
	s.persist(ctx)
}

// AddOrUpdateAddress upserts by id. A primary-flagged upsert forces every
// other entry's primary flag off. When no active address is set, a primary
// upsert becomes active.
func (s *Store) AddOrUpdateAddress(ctx context.Context, addr Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr.IsPrimary {
		for i := range s.addresses {
			if s.addresses[i].ID != addr.ID {
				s.addresses[i].IsPrimary = false
			}
		}
		s.primary = copyOf(addr)
	}

	replaced := false
	for i := range s.addresses {
		if s.addresses[i].ID == addr.ID {
			s.addresses[i] = addr
			replaced = true
			break
		}
	}
	if !replaced {
		s.addresses = append(s.addresses, addr)
	}

	if s.active != nil && s.active.ID == addr.ID {
		s.active = copyOf(addr)
	} else if s.active == nil && addr.IsPrimary {
		s.active = copyOf(addr)
	}
	s.persist(ctx)
}

// RemoveAddress deletes by id; unknown ids are a no-op. A removed active
// address falls back to the primary, then the first remaining entry. A
// removed primary hands the flag to the first remaining flagged entry, else
// the first remaining entry.
func (s *Store) RemoveAddress(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.addresses {
		if s.addresses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	removed := s.addresses[idx]
	s.addresses = append(s.addresses[:idx], s.addresses[idx+1:]...)

	if s.active != nil && s.active.ID == id {
		switch {
		case s.primary != nil && s.primary.ID != id:
			s.active = copyOf(*s.primary)
		case len(s.addresses) > 0:
			s.active = copyOf(s.addresses[0])
		default:
			s.active = nil
		}
	}

	if s.primary != nil && s.primary.ID == id {
		s.primary = s.findPrimary()
		if s.primary == nil && len(s.addresses) > 0 {
			s.addresses[0].IsPrimary = true
			s.primary = copyOf(s.addresses[0])
		}
	}

	if removed.OwnerID == GuestOwnerID && s.guestKey != "" {
		kvstore.Remove(ctx, s.storage, s.logg, s.guestKey)
	}
	s.persist(ctx)
}

// SetPrimary reassigns the primary flag to exactly the given id. The active
// address is refreshed when it is the target, adopted when none was set, and
// left alone otherwise.
func (s *Store) SetPrimary(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *Address
	for i := range s.addresses {
		s.addresses[i].IsPrimary = s.addresses[i].ID == id
		if s.addresses[i].IsPrimary {
			target = &s.addresses[i]
		}
	}
	if target == nil {
		return
	}

	s.primary = copyOf(*target)
	if s.active == nil || s.active.ID == id {
		s.active = copyOf(*target)
	}
	s.persist(ctx)
}

// Reset clears all state, the main snapshot, and the guest slot.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(ctx)
	if s.guestKey != "" {
		kvstore.Remove(ctx, s.storage, s.logg, s.guestKey)
	}
}

// ResetForNewUser clears all state and the main snapshot but leaves the guest
// slot alone; the auth bridge purges that separately.
func (s *Store) ResetForNewUser(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(ctx)
}

// PurgeGuestStorage drops only the persisted guest-address slot.
func (s *Store) PurgeGuestStorage(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestKey != "" {
		kvstore.Remove(ctx, s.storage, s.logg, s.guestKey)
	}
}

// Addresses returns a copy of the collection.
func (s *Store) Addresses() []Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Address, len(s.addresses))
	copy(out, s.addresses)
	return out
}

// ActiveAddress returns the current browsing/ordering address, or nil.
func (s *Store) ActiveAddress() *Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil
	}
	return copyOf(*s.active)
}

// PrimaryAddress returns the cached primary, or nil.
func (s *Store) PrimaryAddress() *Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.primary == nil {
		return nil
	}
	return copyOf(*s.primary)
}

func (s *Store) clearLocked(ctx context.Context) {
	s.addresses = nil
	s.active = nil
	s.primary = nil
	kvstore.Remove(ctx, s.storage, s.logg, s.key)
}

// findPrimary returns a copy of the first flagged entry. Callers hold s.mu.
func (s *Store) findPrimary() *Address {
	for i := range s.addresses {
		if s.addresses[i].IsPrimary {
			return copyOf(s.addresses[i])
		}
	}
	return nil
}

// persist snapshots the collection and mirrors a guest-owned address to its
// slot. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	kvstore.SaveSnapshot(ctx, s.storage, s.logg, s.key, snapshot{Addresses: s.addresses, Active: s.active})

	if s.guestKey == "" {
		return
	}
	for i := range s.addresses {
		if s.addresses[i].OwnerID == GuestOwnerID {
			kvstore.SaveSnapshot(ctx, s.storage, s.logg, s.guestKey, s.addresses[i])
			return
		}
	}
}

func copyOf(a Address) *Address {
	return &a
}
