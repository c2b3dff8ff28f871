package controllers

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/api/responses"
	"github.com/mercadito-app/mercadito-backend/api/validators"
	"github.com/mercadito-app/mercadito-backend/internal/cart"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// cartScope resolves which cart an authenticated user or guest device owns.
func cartScope(r *http.Request) (string, error) {
	if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
		return userID, nil
	}
	if clientID := middleware.ClientIDFromContext(r.Context()); clientID != "" {
		return "guest:" + clientID, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "missing client id")
}

type cartView struct {
	Items          []cart.Item       `json:"items"`
	TotalItemCount int               `json:"total_item_count"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Stores         []cart.StoreGroup `json:"stores"`
}

func viewOf(st *cart.Store) cartView {
	return cartView{
		Items:          st.Items(),
		TotalItemCount: st.TotalItemCount(),
		Subtotal:       st.Subtotal(),
		Stores:         st.ItemsGroupedByStore(),
	}
}

// CartFetch returns the draft with its derived totals.
func CartFetch(carts *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(carts.ForOwner(r.Context(), scope)))
	}
}

type addItemRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	StoreID      uuid.UUID       `json:"store_id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Quantity     int             `json:"quantity" validate:"required,min=1"`
	OptionsText  string          `json:"options_text,omitempty"`
	Options      map[string]any  `json:"options,omitempty"`
	BasePrice    decimal.Decimal `json:"base_price"`
	OptionsPrice decimal.Decimal `json:"options_price"`
	Note         *string         `json:"note,omitempty"`
}

// CartAddItem inserts or merges a line item.
func CartAddItem(carts *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		st := carts.ForOwner(r.Context(), scope)
		itemID := st.AddItem(r.Context(), cart.Item{
			ProductID:    body.ProductID,
			StoreID:      body.StoreID,
			Name:         body.Name,
			Quantity:     body.Quantity,
			OptionsText:  body.OptionsText,
			Options:      body.Options,
			BasePrice:    body.BasePrice,
			OptionsPrice: body.OptionsPrice,
			Note:         body.Note,
		})
		responses.WriteSuccess(w, map[string]any{
			"item_id": itemID,
			"cart":    viewOf(st),
		})
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

// CartUpdateQuantity sets a line item's quantity; values below 1 leave the
// cart unchanged.
func CartUpdateQuantity(carts *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id"))
			return
		}

		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		st := carts.ForOwner(r.Context(), scope)
		st.UpdateQuantity(r.Context(), id, body.Quantity)
		responses.WriteSuccess(w, viewOf(st))
	}
}

// CartRemoveItem deletes a line item; unknown ids leave the cart unchanged.
func CartRemoveItem(carts *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id"))
			return
		}

		st := carts.ForOwner(r.Context(), scope)
		st.RemoveItem(r.Context(), id)
		responses.WriteSuccess(w, viewOf(st))
	}
}

// CartClear drops every line item.
func CartClear(carts *cart.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, err := cartScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		st := carts.ForOwner(r.Context(), scope)
		st.ClearCart(r.Context())
		responses.WriteSuccess(w, viewOf(st))
	}
}
