package address

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
)

// Collection is the remote address collection contract the service mutates
// before touching local state.
type Collection interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error)
	Insert(ctx context.Context, ownerID uuid.UUID, dto CreateAddressDTO) (*models.Address, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, dto UpdateAddressDTO) (*models.Address, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	SetPrimary(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error)
}

// Repository is the Postgres-backed Collection.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repo scoped to the provided transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns the owner's addresses, primary first, oldest first after that.
func (r *Repository) List(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("is_primary DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert persists a new address. A primary-flagged insert flips the owner's
// previous primary off inside the same transaction.
func (r *Repository) Insert(ctx context.Context, ownerID uuid.UUID, dto CreateAddressDTO) (*models.Address, error) {
	row := models.Address{
		OwnerID:      ownerID,
		Street:       strings.TrimSpace(dto.Street),
		Unit:         dto.Unit,
		Neighborhood: dto.Neighborhood,
		City:         strings.TrimSpace(dto.City),
		PostalCode:   strings.TrimSpace(dto.PostalCode),
		Country:      strings.ToUpper(strings.TrimSpace(dto.Country)),
		Lat:          dto.Lat,
		Lng:          dto.Lng,
		PlaceID:      dto.PlaceID,
		IsPrimary:    dto.IsPrimary,
		Instructions: dto.Instructions,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.IsPrimary {
			if err := demoteCurrentPrimary(tx, ownerID, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Update applies a sparse patch to the owner's address and returns the fresh
// row.
func (r *Repository) Update(ctx context.Context, ownerID, id uuid.UUID, dto UpdateAddressDTO) (*models.Address, error) {
	patch := map[string]any{}
	if dto.Street != nil {
		patch["street"] = strings.TrimSpace(*dto.Street)
	}
	if dto.Unit != nil {
		patch["unit"] = *dto.Unit
	}
	if dto.Neighborhood != nil {
		patch["neighborhood"] = *dto.Neighborhood
	}
	if dto.City != nil {
		patch["city"] = strings.TrimSpace(*dto.City)
	}
	if dto.PostalCode != nil {
		patch["postal_code"] = strings.TrimSpace(*dto.PostalCode)
	}
	if dto.Country != nil {
		patch["country"] = strings.ToUpper(strings.TrimSpace(*dto.Country))
	}
	if dto.Lat != nil {
		patch["lat"] = *dto.Lat
	}
	if dto.Lng != nil {
		patch["lng"] = *dto.Lng
	}
	if dto.PlaceID != nil {
		patch["place_id"] = *dto.PlaceID
	}
	if dto.Instructions != nil {
		patch["instructions"] = *dto.Instructions
	}

	var row models.Address
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(patch) > 0 {
			res := tx.Model(&models.Address{}).
				Where("id = ? AND owner_id = ?", id, ownerID).
				Updates(patch)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.First(&row, "id = ? AND owner_id = ?", id, ownerID).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the owner's address by id.
func (r *Repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.Address{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPrimary atomically moves the primary flag to the given address: the
// previous primary is flipped off and the target on in one transaction.
func (r *Repository) SetPrimary(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error) {
	var row models.Address
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := demoteCurrentPrimary(tx, ownerID, id); err != nil {
			return err
		}
		res := tx.Model(&models.Address{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&row, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// demoteCurrentPrimary clears the owner's primary flag, sparing keep. The
// clear must run before promoting a new primary or the partial unique index
// on (owner_id) WHERE is_primary rejects the promotion.
func demoteCurrentPrimary(tx *gorm.DB, ownerID, keep uuid.UUID) error {
	return tx.Model(&models.Address{}).
		Where("owner_id = ? AND is_primary = ? AND id <> ?", ownerID, true, keep).
		Update("is_primary", false).Error
}
