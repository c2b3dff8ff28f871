// Package cart owns the client-local order draft: line items, quantities, and
// per-item option selections, with derived totals recomputed on read. The
// draft is never synced to a backend table; it lives in memory and snapshots
// to durable key-value storage on every mutation.
package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// Item is one configured product selection in the draft. The ID is generated
// by the store and is unique within the cart only.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	StoreID      uuid.UUID       `json:"store_id"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	OptionsText  string          `json:"options_text,omitempty"`
	Options      map[string]any  `json:"options,omitempty"`
	BasePrice    decimal.Decimal `json:"base_price"`
	OptionsPrice decimal.Decimal `json:"options_price"`
	Note         *string         `json:"note,omitempty"`
}

// StoreGroup is one vendor's slice of the cart, in insertion order.
type StoreGroup struct {
	StoreID uuid.UUID `json:"store_id"`
	Items   []Item    `json:"items"`
}

type snapshot struct {
	Items []Item `json:"items"`
}

// Store is an isolated cart state container. Every instance is bound to its
// own snapshot key, so callers (and tests) never share process-wide state.
type Store struct {
	mu      sync.Mutex
	items   []Item
	storage kvstore.Storage
	logg    *logger.Logger
	key     string
}

// NewStore builds a cart store snapshotting under the given storage key.
func NewStore(storage kvstore.Storage, logg *logger.Logger, key string) *Store {
	return &Store{storage: storage, logg: logg, key: key}
}

// Load rehydrates the draft from its snapshot, if one exists.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap snapshot
	if kvstore.LoadSnapshot(ctx, s.storage, s.logg, s.key, &snap) {
		s.items = snap.Items
	}
}

// AddItem inserts a new line item with a fresh id. When an existing item
// matches on product id and value-equal selected options, the quantities are
// merged instead of inserting a duplicate row. Returns the id of the entry
// the item landed in; a quantity below 1 is a no-op and returns uuid.Nil.
func (s *Store) AddItem(ctx context.Context, item Item) uuid.UUID {
	if item.Quantity < 1 {
		return uuid.Nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fingerprint := CanonicalOptions(item.Options)
	for i := range s.items {
		if s.items[i].ProductID == item.ProductID && CanonicalOptions(s.items[i].Options) == fingerprint {
			s.items[i].Quantity += item.Quantity
			s.persist(ctx)
			return s.items[i].ID
		}
	}

	item.ID = uuid.New()
	s.items = append(s.items, item)
	s.persist(ctx)
	return item.ID
}

// RemoveItem deletes the line item with the given id. Unknown ids are a
// silent no-op.
func (s *Store) RemoveItem(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// UpdateQuantity sets the quantity of the given line item. Values below 1 are
// rejected as no-ops, not clamped. Unknown ids are also a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) {
	if quantity < 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = quantity
			s.persist(ctx)
			return
		}
	}
}

// ClearCart drops every line item, keeping an empty snapshot.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
}

// Reset drops every line item and removes the persisted snapshot entirely.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	kvstore.Remove(ctx, s.storage, s.logg, s.key)
}

// Items returns a copy of the current line items in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// TotalItemCount is the sum of quantities across all line items.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for i := range s.items {
		total += s.items[i].Quantity
	}
	return total
}

// Subtotal is the sum of (base price + options delta) * quantity.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for i := range s.items {
		unit := s.items[i].BasePrice.Add(s.items[i].OptionsPrice)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(s.items[i].Quantity))))
	}
	return total
}

// ItemsGroupedByStore partitions the line items by vendor, preserving
// insertion order both across groups and within each group.
func (s *Store) ItemsGroupedByStore() []StoreGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := map[uuid.UUID]int{}
	groups := []StoreGroup{}
	for _, item := range s.items {
		pos, ok := index[item.StoreID]
		if !ok {
			pos = len(groups)
			index[item.StoreID] = pos
			groups = append(groups, StoreGroup{StoreID: item.StoreID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}

// persist snapshots the current items. Callers must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	kvstore.SaveSnapshot(ctx, s.storage, s.logg, s.key, snapshot{Items: s.items})
}
