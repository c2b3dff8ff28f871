// Package kvstore is the durable key-value substrate backing client state
// snapshots (cart drafts, address books, the guest-address slot). Both state
// stores persist through the same narrow Storage surface, so a Redis-backed
// deployment and an in-memory test harness behave identically.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// ErrNotFound is returned by GetItem when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Storage is the minimal string-keyed durable storage contract.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// SaveSnapshot serializes v under key. Storage failures are logged and
// swallowed: a failed snapshot must never break the in-memory store.
func SaveSnapshot(ctx context.Context, storage Storage, logg *logger.Logger, key string, v any) {
	if storage == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "key", key), "snapshot serialization failed", err)
		}
		return
	}
	if err := storage.SetItem(ctx, key, string(payload)); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "key", key), "snapshot write failed", err)
		}
	}
}

// LoadSnapshot rehydrates v from the value stored under key. It reports false
// when no snapshot exists or the stored payload cannot be decoded.
func LoadSnapshot(ctx context.Context, storage Storage, logg *logger.Logger, key string, v any) bool {
	if storage == nil {
		return false
	}
	raw, err := storage.GetItem(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && logg != nil {
			logg.Error(logg.WithField(ctx, "key", key), "snapshot read failed", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "key", key), "snapshot decode failed", err)
		}
		return false
	}
	return true
}

// Remove drops the value stored under key, logging (not propagating) failures.
func Remove(ctx context.Context, storage Storage, logg *logger.Logger, key string) {
	if storage == nil {
		return
	}
	if err := storage.RemoveItem(ctx, key); err != nil {
		if logg != nil {
			logg.Error(logg.WithField(ctx, "key", key), "snapshot remove failed", err)
		}
	}
}
