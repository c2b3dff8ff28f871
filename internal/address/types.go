// Package address is the source of truth for a user's delivery addresses:
// the full collection, the active address used for browsing, and the unique
// primary address. It reconciles locally persisted guest state with the
// remote per-user collection.
package address

import (
	"time"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
)

// Sentinels for addresses that exist only in local guest storage and are
// never written to the remote collection.
const (
	GuestOwnerID   = "guest"
	GuestAddressID = "guest-address"
)

// Address is the state-store shape of a deliverable location. IDs are strings
// so the guest sentinel and remote UUIDs share one representation.
type Address struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Street       string   `json:"street"`
	Unit         *string  `json:"unit,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	City         string   `json:"city"`
	PostalCode   string   `json:"postal_code"`
	Country      string   `json:"country"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	PlaceID      *string  `json:"place_id,omitempty"`
	IsPrimary    bool     `json:"is_primary"`
	Instructions *string  `json:"instructions,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// FromModel converts a persisted address row into the state-store shape.
func FromModel(m *models.Address) Address {
	if m == nil {
		return Address{}
	}
	return Address{
		ID:           m.ID.String(),
		OwnerID:      m.OwnerID.String(),
		Street:       m.Street,
		Unit:         m.Unit,
		Neighborhood: m.Neighborhood,
		City:         m.City,
		PostalCode:   m.PostalCode,
		Country:      m.Country,
		Lat:          m.Lat,
		Lng:          m.Lng,
		PlaceID:      m.PlaceID,
		IsPrimary:    m.IsPrimary,
		Instructions: m.Instructions,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
