package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/api/responses"
	"github.com/mercadito-app/mercadito-backend/api/validators"
	"github.com/mercadito-app/mercadito-backend/internal/address"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

func guestClientID(r *http.Request) (string, error) {
	clientID := middleware.ClientIDFromContext(r.Context())
	if clientID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "missing client id")
	}
	return clientID, nil
}

// GuestAddressGet returns the device's lone guest address, or null when none
// has been saved.
func GuestAddressGet(addresses *address.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := guestClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		st := addresses.ForGuest(r.Context(), clientID)
		responses.WriteSuccess(w, map[string]any{
			"address": st.ActiveAddress(),
		})
	}
}

type guestAddressRequest struct {
	Street       string   `json:"street" validate:"required"`
	Unit         *string  `json:"unit,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	City         string   `json:"city" validate:"required"`
	PostalCode   string   `json:"postal_code" validate:"required"`
	Country      string   `json:"country" validate:"required,len=2"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	PlaceID      *string  `json:"place_id,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
}

// GuestAddressSet replaces the device's guest address. Guests hold exactly one
// address and it is always the primary, so the sentinel id is reused on every
// write.
func GuestAddressSet(addresses *address.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := guestClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body guestAddressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now().UTC().Format(time.RFC3339)
		entry := address.Address{
			ID:           address.GuestAddressID,
			OwnerID:      address.GuestOwnerID,
			Street:       validators.SanitizeString(body.Street, 255),
			Unit:         body.Unit,
			Neighborhood: body.Neighborhood,
			City:         validators.SanitizeString(body.City, 120),
			PostalCode:   validators.SanitizeString(body.PostalCode, 16),
			Country:      strings.ToUpper(validators.SanitizeString(body.Country, 2)),
			Lat:          body.Lat,
			Lng:          body.Lng,
			PlaceID:      body.PlaceID,
			IsPrimary:    true,
			Instructions: body.Instructions,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		st := addresses.ForGuest(r.Context(), clientID)
		st.AddOrUpdateAddress(r.Context(), entry)
		responses.WriteSuccess(w, map[string]any{
			"address": st.ActiveAddress(),
		})
	}
}

// GuestAddressClear removes the device's guest address and its snapshot slot.
func GuestAddressClear(addresses *address.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, err := guestClientID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		st := addresses.ForGuest(r.Context(), clientID)
		st.RemoveAddress(r.Context(), address.GuestAddressID)
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
