package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercadito-app/mercadito-backend/api/middleware"
	"github.com/mercadito-app/mercadito-backend/internal/cart"
	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

func testCartRouter(carts *cart.Manager) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithClientID(req.Context(), "device-test")))
		})
	})
	r.Get("/", CartFetch(carts, logg))
	r.Post("/items", CartAddItem(carts, logg))
	r.Patch("/items/{itemId}", CartUpdateQuantity(carts, logg))
	r.Delete("/items/{itemId}", CartRemoveItem(carts, logg))
	r.Delete("/", CartClear(carts, logg))
	return r
}

type cartResponse struct {
	Data struct {
		Items          []cart.Item `json:"items"`
		TotalItemCount int         `json:"total_item_count"`
		Subtotal       string      `json:"subtotal"`
	} `json:"data"`
}

type addItemResponse struct {
	Data struct {
		ItemID uuid.UUID `json:"item_id"`
		Cart   struct {
			Items          []cart.Item `json:"items"`
			TotalItemCount int         `json:"total_item_count"`
		} `json:"cart"`
	} `json:"data"`
}

func addItemBody(productID uuid.UUID, qty int) string {
	return fmt.Sprintf(`{
		"product_id": %q,
		"store_id": %q,
		"name": "Tacos al pastor",
		"quantity": %d,
		"base_price": "45.50",
		"options_price": "0"
	}`, productID, uuid.New(), qty)
}

func TestCartAddItemMergesEqualLines(t *testing.T) {
	storage := kvstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := testCartRouter(cart.NewManager(storage, logg))

	productID := uuid.New()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(addItemBody(productID, 2)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("add %d: expected 200 got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var payload cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(payload.Data.Items))
	}
	if payload.Data.TotalItemCount != 4 {
		t.Fatalf("expected merged quantity 4, got %d", payload.Data.TotalItemCount)
	}
	subtotal, err := decimal.NewFromString(payload.Data.Subtotal)
	if err != nil {
		t.Fatalf("parse subtotal %q: %v", payload.Data.Subtotal, err)
	}
	if !subtotal.Equal(decimal.RequireFromString("182.00")) {
		t.Fatalf("expected subtotal 182.00, got %q", payload.Data.Subtotal)
	}
}

func TestCartUpdateQuantityAndRemove(t *testing.T) {
	storage := kvstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := testCartRouter(cart.NewManager(storage, logg))

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(addItemBody(uuid.New(), 1)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var added addItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode add: %v", err)
	}
	itemID := added.Data.ItemID
	if itemID == uuid.Nil {
		t.Fatal("expected a landing item id")
	}

	patch := httptest.NewRequest(http.MethodPatch, "/items/"+itemID.String(), strings.NewReader(`{"quantity":5}`))
	patch.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, patch)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200 got %d", rec.Code)
	}

	var payload cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if payload.Data.TotalItemCount != 5 {
		t.Fatalf("expected quantity 5, got %d", payload.Data.TotalItemCount)
	}

	del := httptest.NewRequest(http.MethodDelete, "/items/"+itemID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, del)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if len(payload.Data.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(payload.Data.Items))
	}
}

func TestCartRejectsInvalidItemID(t *testing.T) {
	storage := kvstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := testCartRouter(cart.NewManager(storage, logg))

	req := httptest.NewRequest(http.MethodPatch, "/items/not-a-uuid", strings.NewReader(`{"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad item id, got %d", rec.Code)
	}
}

func TestCartRejectsZeroQuantityAdd(t *testing.T) {
	storage := kvstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	router := testCartRouter(cart.NewManager(storage, logg))

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(addItemBody(uuid.New(), 0)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
	}
}

func TestCartClearPersistsEmptySnapshot(t *testing.T) {
	storage := kvstore.NewMemory()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	carts := cart.NewManager(storage, logg)
	router := testCartRouter(carts)

	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(addItemBody(uuid.New(), 3)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	clear := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, clear)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200 got %d", rec.Code)
	}

	var payload cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode clear: %v", err)
	}
	if payload.Data.TotalItemCount != 0 {
		t.Fatalf("expected empty cart after clear, got %d items", payload.Data.TotalItemCount)
	}
}
