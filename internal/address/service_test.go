package address

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	apperrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/maps"
)

type stubCollection struct {
	rows      []models.Address
	failWith  error
	inserted  int
	deleted   int
	promotion int
}

func (s *stubCollection) List(_ context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.rows, nil
}

func (s *stubCollection) Insert(_ context.Context, ownerID uuid.UUID, dto CreateAddressDTO) (*models.Address, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.inserted++
	row := models.Address{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Street:     dto.Street,
		City:       dto.City,
		PostalCode: dto.PostalCode,
		Country:    dto.Country,
		IsPrimary:  dto.IsPrimary,
	}
	s.rows = append(s.rows, row)
	return &row, nil
}

func (s *stubCollection) Update(_ context.Context, ownerID, id uuid.UUID, dto UpdateAddressDTO) (*models.Address, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	for i := range s.rows {
		if s.rows[i].ID == id {
			if dto.Street != nil {
				s.rows[i].Street = *dto.Street
			}
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCollection) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.deleted++
	return nil
}

func (s *stubCollection) SetPrimary(_ context.Context, ownerID, id uuid.UUID) (*models.Address, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.promotion++
	for i := range s.rows {
		s.rows[i].IsPrimary = s.rows[i].ID == id
		if s.rows[i].IsPrimary {
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T, coll Collection) (Service, *Manager) {
	t.Helper()
	stores := NewManager(kvstore.NewMemory(), nil)
	svc, err := NewService(coll, stores, nil, logger.New(logger.Options{ServiceName: "test"}), "MX")
	require.NoError(t, err)
	return svc, stores
}

func TestAddAddressAppliesLocallyAfterRemoteSuccess(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	coll := &stubCollection{}
	svc, stores := newTestService(t, coll)

	created, err := svc.AddAddress(ctx, owner, CreateAddressDTO{
		Street:     "Av. Reforma 1",
		City:       "CDMX",
		PostalCode: "06600",
		IsPrimary:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, coll.inserted)
	assert.Equal(t, "MX", created.Country)

	st := stores.ForOwner(ctx, owner.String())
	require.Len(t, st.Addresses(), 1)
	require.NotNil(t, st.ActiveAddress())
	assert.Equal(t, created.ID, st.ActiveAddress().ID)
}

func TestAddAddressRemoteFailureLeavesLocalUntouched(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	coll := &stubCollection{failWith: fmt.Errorf("connection refused")}
	svc, stores := newTestService(t, coll)

	_, err := svc.AddAddress(ctx, owner, CreateAddressDTO{
		Street:     "Av. Reforma 1",
		City:       "CDMX",
		PostalCode: "06600",
	})
	require.Error(t, err)

	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeDependency, appErr.Code())
	assert.Empty(t, stores.ForOwner(ctx, owner.String()).Addresses())
}

func TestAddAddressValidatesRequiredFields(t *testing.T) {
	ctx := context.Background()
	coll := &stubCollection{}
	svc, _ := newTestService(t, coll)

	_, err := svc.AddAddress(ctx, uuid.New(), CreateAddressDTO{City: "CDMX", PostalCode: "06600"})
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code())
	assert.Zero(t, coll.inserted)
}

func TestDeleteAddressNotFoundMapsToTypedError(t *testing.T) {
	ctx := context.Background()
	coll := &stubCollection{failWith: gorm.ErrRecordNotFound}
	svc, _ := newTestService(t, coll)

	err := svc.DeleteAddress(ctx, uuid.New(), uuid.New())
	require.Error(t, err)
	appErr := apperrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code())
}

func TestSetPrimaryAddressSyncsLocalFlag(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	coll := &stubCollection{}
	svc, stores := newTestService(t, coll)

	first, err := svc.AddAddress(ctx, owner, CreateAddressDTO{Street: "Calle 1", City: "CDMX", PostalCode: "06600", IsPrimary: true})
	require.NoError(t, err)
	second, err := svc.AddAddress(ctx, owner, CreateAddressDTO{Street: "Calle 2", City: "CDMX", PostalCode: "06600"})
	require.NoError(t, err)

	promoted, err := svc.SetPrimaryAddress(ctx, owner, uuid.MustParse(second.ID))
	require.NoError(t, err)
	assert.True(t, promoted.IsPrimary)
	assert.Equal(t, 1, coll.promotion)

	st := stores.ForOwner(ctx, owner.String())
	for _, a := range st.Addresses() {
		if a.ID == first.ID {
			assert.False(t, a.IsPrimary)
		}
		if a.ID == second.ID {
			assert.True(t, a.IsPrimary)
		}
	}
	assert.Equal(t, second.ID, st.PrimaryAddress().ID)
}

func TestListAddressesFeedsStore(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	row := models.Address{ID: uuid.New(), OwnerID: owner, Street: "Av. Juárez 10", City: "Puebla", PostalCode: "72000", Country: "MX", IsPrimary: true}
	coll := &stubCollection{rows: []models.Address{row}}
	svc, stores := newTestService(t, coll)

	list, err := svc.ListAddresses(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)

	st := stores.ForOwner(ctx, owner.String())
	require.NotNil(t, st.ActiveAddress())
	assert.Equal(t, row.ID.String(), st.ActiveAddress().ID)
}

func TestMapPlaceDetails(t *testing.T) {
	details := &maps.PlaceDetails{
		PlaceID:          "places/abc123",
		FormattedAddress: "Av. Paseo de la Reforma 222, Juárez, 06600 Ciudad de México, CDMX, México",
		Location: maps.LatLng{
			Latitude:  19.4326,
			Longitude: -99.1332,
		},
		AddressComponents: []maps.AddressComponent{
			{LongName: "222", Types: []string{"street_number"}},
			{LongName: "Av. Paseo de la Reforma", Types: []string{"route"}},
			{LongName: "Piso 4", Types: []string{"subpremise"}},
			{LongName: "Juárez", Types: []string{"sublocality_level_1"}},
			{LongName: "Ciudad de México", Types: []string{"locality"}},
			{LongName: "06600", Types: []string{"postal_code"}},
			{LongName: "México", Types: []string{"country"}},
		},
	}

	result, err := mapPlaceDetails(details, "MX")
	if err != nil {
		t.Fatalf("mapPlaceDetails failed: %v", err)
	}
	if result.Street != "Av. Paseo de la Reforma 222" {
		t.Fatalf("unexpected street %q", result.Street)
	}
	if result.Unit == nil || *result.Unit != "Piso 4" {
		t.Fatalf("unexpected unit %v", result.Unit)
	}
	if result.Neighborhood == nil || *result.Neighborhood != "Juárez" {
		t.Fatalf("unexpected neighborhood %v", result.Neighborhood)
	}
	if result.City != "Ciudad de México" {
		t.Fatalf("unexpected city %q", result.City)
	}
	if result.PostalCode != "06600" {
		t.Fatalf("unexpected postal %q", result.PostalCode)
	}
	if result.Country != "México" {
		t.Fatalf("unexpected country %q", result.Country)
	}
	if result.Lat != 19.4326 || result.Lng != -99.1332 {
		t.Fatalf("unexpected location %+v", result)
	}
}

func TestMapPlaceDetailsMissingCity(t *testing.T) {
	details := &maps.PlaceDetails{
		AddressComponents: []maps.AddressComponent{
			{LongName: "222", Types: []string{"street_number"}},
			{LongName: "Av. Paseo de la Reforma", Types: []string{"route"}},
			{LongName: "06600", Types: []string{"postal_code"}},
			{LongName: "México", Types: []string{"country"}},
		},
		Location: maps.LatLng{
			Latitude:  19.4326,
			Longitude: -99.1332,
		},
	}

	if _, err := mapPlaceDetails(details, "MX"); err == nil {
		t.Fatal("expected error when city missing")
	}
}
