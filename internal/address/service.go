package address

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
	"github.com/mercadito-app/mercadito-backend/pkg/maps"
)

// Service wraps the local store operations with the remote collection: every
// write hits the collection first and mutates local state only after the
// remote call succeeds, so a failed call leaves local state untouched.
type Service interface {
	ListAddresses(ctx context.Context, ownerID uuid.UUID) ([]Address, error)
	AddAddress(ctx context.Context, ownerID uuid.UUID, dto CreateAddressDTO) (*Address, error)
	UpdateAddress(ctx context.Context, ownerID, id uuid.UUID, dto UpdateAddressDTO) (*Address, error)
	DeleteAddress(ctx context.Context, ownerID, id uuid.UUID) error
	SetPrimaryAddress(ctx context.Context, ownerID, id uuid.UUID) (*Address, error)
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Resolve(ctx context.Context, req ResolveRequest) (Draft, error)
	Stores() *Manager
}

type service struct {
	collection     Collection
	stores         *Manager
	maps           *maps.Client
	logg           *logger.Logger
	defaultCountry string
}

// NewService validates and wires the address service dependencies. The maps
// client may be nil; Suggest and Resolve then fail with a dependency error.
func NewService(collection Collection, stores *Manager, mapsClient *maps.Client, logg *logger.Logger, defaultCountry string) (Service, error) {
	if collection == nil {
		return nil, fmt.Errorf("address collection is required")
	}
	if stores == nil {
		return nil, fmt.Errorf("address store manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if defaultCountry == "" {
		defaultCountry = "MX"
	}
	return &service{
		collection:     collection,
		stores:         stores,
		maps:           mapsClient,
		logg:           logg,
		defaultCountry: strings.ToUpper(defaultCountry),
	}, nil
}

func (s *service) Stores() *Manager {
	return s.stores
}

// ListAddresses fetches the owner's remote collection and feeds it into the
// local store, preserving any already-active address.
func (s *service) ListAddresses(ctx context.Context, ownerID uuid.UUID) ([]Address, error) {
	rows, err := s.collection.List(ctx, ownerID)
	if err != nil {
		return nil, remoteErr(err, "listing addresses failed")
	}

	list := make([]Address, 0, len(rows))
	for i := range rows {
		list = append(list, FromModel(&rows[i]))
	}

	st := s.stores.ForOwner(ctx, ownerID.String())
	st.SetAddresses(ctx, list)
	return st.Addresses(), nil
}

func (s *service) AddAddress(ctx context.Context, ownerID uuid.UUID, dto CreateAddressDTO) (*Address, error) {
	if strings.TrimSpace(dto.Street) == "" {
		return nil, errors.New(errors.CodeValidation, "street is required")
	}
	if strings.TrimSpace(dto.City) == "" {
		return nil, errors.New(errors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(dto.PostalCode) == "" {
		return nil, errors.New(errors.CodeValidation, "postal_code is required")
	}
	if strings.TrimSpace(dto.Country) == "" {
		dto.Country = s.defaultCountry
	}

	row, err := s.collection.Insert(ctx, ownerID, dto)
	if err != nil {
		return nil, remoteErr(err, "inserting address failed")
	}

	addr := FromModel(row)
	s.stores.ForOwner(ctx, ownerID.String()).AddOrUpdateAddress(ctx, addr)
	return &addr, nil
}

func (s *service) UpdateAddress(ctx context.Context, ownerID, id uuid.UUID, dto UpdateAddressDTO) (*Address, error) {
	row, err := s.collection.Update(ctx, ownerID, id, dto)
	if err != nil {
		return nil, remoteErr(err, "updating address failed")
	}

	addr := FromModel(row)
	s.stores.ForOwner(ctx, ownerID.String()).AddOrUpdateAddress(ctx, addr)
	return &addr, nil
}

func (s *service) DeleteAddress(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.collection.Delete(ctx, ownerID, id); err != nil {
		return remoteErr(err, "deleting address failed")
	}

	s.stores.ForOwner(ctx, ownerID.String()).RemoveAddress(ctx, id.String())
	return nil
}

func (s *service) SetPrimaryAddress(ctx context.Context, ownerID, id uuid.UUID) (*Address, error) {
	row, err := s.collection.SetPrimary(ctx, ownerID, id)
	if err != nil {
		return nil, remoteErr(err, "reassigning primary address failed")
	}

	st := s.stores.ForOwner(ctx, ownerID.String())
	st.SetPrimary(ctx, id.String())
	addr := FromModel(row)
	return &addr, nil
}

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s.maps == nil {
		return nil, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.CodeValidation, "query is required")
	}

	payload := maps.AutocompleteRequest{Input: req.Query}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = s.defaultCountry
	}
	payload.IncludedRegionCodes = []string{strings.ToUpper(country)}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		payload.LanguageCode = lang
	}

	resp, err := s.maps.Autocomplete(ctx, payload)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{
			PlaceID:     item.PlaceID,
			Description: item.Description,
		})
	}
	return suggestions, nil
}

func (s *service) Resolve(ctx context.Context, req ResolveRequest) (Draft, error) {
	if s.maps == nil {
		return Draft{}, errors.New(errors.CodeDependency, "maps client unavailable")
	}
	if strings.TrimSpace(req.PlaceID) == "" {
		return Draft{}, errors.New(errors.CodeValidation, "place_id is required")
	}

	details, err := s.maps.ResolvePlace(ctx, req.PlaceID)
	if err != nil {
		return Draft{}, err
	}
	return mapPlaceDetails(details, s.defaultCountry)
}

func mapPlaceDetails(details *maps.PlaceDetails, defaultCountry string) (Draft, error) {
	if details == nil {
		return Draft{}, errors.New(errors.CodeDependency, "place details missing")
	}
	if details.Location.Latitude == 0 && details.Location.Longitude == 0 {
		return Draft{}, errors.New(errors.CodeDependency, "place location missing")
	}

	find := func(kind string) (string, bool) {
		for _, comp := range details.AddressComponents {
			for _, typ := range comp.Types {
				if typ == kind && comp.LongName != "" {
					return comp.LongName, true
				}
			}
		}
		return "", false
	}

	street := ""
	if route, ok := find("route"); ok {
		street = route
	}
	if number, ok := find("street_number"); ok {
		if street != "" {
			street = fmt.Sprintf("%s %s", street, number)
		} else {
			street = number
		}
	}
	if street == "" && strings.TrimSpace(details.FormattedAddress) != "" {
		parts := strings.Split(details.FormattedAddress, ",")
		street = strings.TrimSpace(parts[0])
	}
	if street == "" {
		return Draft{}, errors.New(errors.CodeDependency, "street missing")
	}

	var unit *string
	if sub, ok := find("subpremise"); ok {
		unit = ptr(sub)
	}

	var neighborhood *string
	if hood, ok := find("sublocality_level_1"); ok {
		neighborhood = ptr(hood)
	} else if hood, ok := find("neighborhood"); ok {
		neighborhood = ptr(hood)
	}

	city, ok := find("locality")
	if !ok {
		if town, ok2 := find("postal_town"); ok2 {
			city = town
		} else if admin2, ok3 := find("administrative_area_level_2"); ok3 {
			city = admin2
		}
	}
	if city == "" {
		return Draft{}, errors.New(errors.CodeDependency, "city missing")
	}

	postalCode, ok := find("postal_code")
	if !ok {
		return Draft{}, errors.New(errors.CodeDependency, "postal code missing")
	}

	country, ok := find("country")
	if !ok {
		country = defaultCountry
	}

	var placeID *string
	if details.PlaceID != "" {
		placeID = ptr(details.PlaceID)
	}

	return Draft{
		Street:       street,
		Unit:         unit,
		Neighborhood: neighborhood,
		City:         city,
		PostalCode:   postalCode,
		Country:      country,
		Lat:          details.Location.Latitude,
		Lng:          details.Location.Longitude,
		PlaceID:      placeID,
	}, nil
}

// remoteErr maps a collection failure to the platform error taxonomy.
func remoteErr(err error, message string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.CodeNotFound, "address not found")
	}
	return errors.Wrap(errors.CodeDependency, err, message)
}

func ptr(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}
