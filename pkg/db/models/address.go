package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is one row of a user's remote address collection. Guest addresses
// never reach this table; they live only in the key-value substrate.
type Address struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Street       string    `gorm:"column:street;type:text;not null"`
	Unit         *string   `gorm:"column:unit"`
	Neighborhood *string   `gorm:"column:neighborhood"`
	City         string    `gorm:"column:city;not null"`
	PostalCode   string    `gorm:"column:postal_code;not null"`
	Country      string    `gorm:"column:country;not null;default:'MX'"`
	Lat          *float64  `gorm:"column:lat"`
	Lng          *float64  `gorm:"column:lng"`
	PlaceID      *string   `gorm:"column:place_id"`
	IsPrimary    bool      `gorm:"column:is_primary;not null;default:false"`
	Instructions *string   `gorm:"column:instructions"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Address) TableName() string {
	return "addresses"
}
