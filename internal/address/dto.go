package address

// CreateAddressDTO carries the fields accepted when inserting an address into
// the remote collection.
type CreateAddressDTO struct {
	Street       string   `json:"street" validate:"required"`
	Unit         *string  `json:"unit,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	City         string   `json:"city" validate:"required"`
	PostalCode   string   `json:"postal_code" validate:"required"`
	Country      string   `json:"country,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	PlaceID      *string  `json:"place_id,omitempty"`
	IsPrimary    bool     `json:"is_primary"`
	Instructions *string  `json:"instructions,omitempty"`
}

// UpdateAddressDTO is a sparse patch; nil fields are left untouched.
type UpdateAddressDTO struct {
	Street       *string  `json:"street,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	City         *string  `json:"city,omitempty"`
	PostalCode   *string  `json:"postal_code,omitempty"`
	Country      *string  `json:"country,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	PlaceID      *string  `json:"place_id,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
}

// SuggestRequest asks the mapping provider for autocomplete suggestions.
type SuggestRequest struct {
	Query    string
	Country  string
	Language string
}

// ResolveRequest asks for the full details of an autocomplete suggestion.
type ResolveRequest struct {
	PlaceID string
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Draft is a resolved place mapped into the platform address shape, ready to
// prefill the address form. It has no identity or owner yet.
type Draft struct {
	Street       string   `json:"street"`
	Unit         *string  `json:"unit,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	City         string   `json:"city"`
	PostalCode   string   `json:"postal_code"`
	Country      string   `json:"country"`
	Lat          float64  `json:"lat"`
	Lng          float64  `json:"lng"`
	PlaceID      *string  `json:"place_id,omitempty"`
}
