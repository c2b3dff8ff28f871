package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mercadito-app/mercadito-backend/internal/address"
	"github.com/mercadito-app/mercadito-backend/internal/auth"
	"github.com/mercadito-app/mercadito-backend/internal/cart"
	sessionbridge "github.com/mercadito-app/mercadito-backend/internal/session"
	pkgAuth "github.com/mercadito-app/mercadito-backend/pkg/auth"
	"github.com/mercadito-app/mercadito-backend/pkg/auth/session"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/kvstore"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Refresh(ctx context.Context, bearerToken, refreshToken string) (*auth.RefreshResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
}

func (stubAuthService) Logout(ctx context.Context, bearerToken string) error {
	return nil
}

func (stubAuthService) CurrentSession(ctx context.Context, bearerToken string) (*sessionbridge.Session, error) {
	return nil, nil
}

func (stubAuthService) Subscribe(fn auth.Listener) {}

type stubAddressService struct {
	stores *address.Manager
}

func (s stubAddressService) ListAddresses(ctx context.Context, ownerID uuid.UUID) ([]address.Address, error) {
	return []address.Address{}, nil
}

func (s stubAddressService) AddAddress(ctx context.Context, ownerID uuid.UUID, dto address.CreateAddressDTO) (*address.Address, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "not wired")
}

func (s stubAddressService) UpdateAddress(ctx context.Context, ownerID, id uuid.UUID, dto address.UpdateAddressDTO) (*address.Address, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
}

func (s stubAddressService) DeleteAddress(ctx context.Context, ownerID, id uuid.UUID) error {
	return nil
}

func (s stubAddressService) SetPrimaryAddress(ctx context.Context, ownerID, id uuid.UUID) (*address.Address, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
}

func (s stubAddressService) Suggest(ctx context.Context, req address.SuggestRequest) ([]address.Suggestion, error) {
	return []address.Suggestion{}, nil
}

func (s stubAddressService) Resolve(ctx context.Context, req address.ResolveRequest) (address.Draft, error) {
	return address.Draft{}, nil
}

func (s stubAddressService) Stores() *address.Manager {
	return s.stores
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "mercadito",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	storage := kvstore.NewMemory()
	return NewRouter(Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             stubPinger{},
		SessionManager: stubSessionManager{},
		AuthService:    stubAuthService{},
		AddressService: stubAddressService{stores: address.NewManager(storage, logg)},
		Carts:          cart.NewManager(storage, logg),
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := resp.Header().Get("X-Mercadito-Env"); env != "test" {
		t.Fatalf("expected env header, got %q", env)
	}
}

func TestPrivateCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateCartSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart fetch got %d", resp.Code)
	}
}

func TestPrivateAddressesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/addresses/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestGuestCartNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/cart/", nil)
	req.Header.Set("X-Client-Id", "device-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for guest cart got %d", resp.Code)
	}
	if echoed := resp.Header().Get("X-Client-Id"); echoed != "device-123" {
		t.Fatalf("expected client id echoed, got %q", echoed)
	}
}

func TestGuestGetsGeneratedClientID(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest/cart/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Client-Id") == "" {
		t.Fatal("expected a generated client id header")
	}
}

func TestGuestAddressRoundTrip(t *testing.T) {
	router := newTestRouter(testConfig())

	body := `{"street":"Av. Reforma 123","city":"Ciudad de Mexico","postal_code":"06600","country":"MX"}`
	put := httptest.NewRequest(http.MethodPut, "/api/v1/guest/address/", strings.NewReader(body))
	put.Header.Set("Content-Type", "application/json")
	put.Header.Set("X-Client-Id", "device-456")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, put)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 saving guest address got %d: %s", resp.Code, resp.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/api/v1/guest/address/", nil)
	get.Header.Set("X-Client-Id", "device-456")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, get)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 reading guest address got %d", resp.Code)
	}

	var payload struct {
		Data struct {
			Address *address.Address `json:"address"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.Address == nil {
		t.Fatal("expected a saved guest address")
	}
	if payload.Data.Address.ID != address.GuestAddressID {
		t.Fatalf("expected guest sentinel id, got %q", payload.Data.Address.ID)
	}
	if !payload.Data.Address.IsPrimary {
		t.Fatal("guest address must be primary")
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestSessionEndpointReportsGuest(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for session probe got %d", resp.Code)
	}

	var payload struct {
		Data struct {
			Session *sessionbridge.Session `json:"session"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.Session != nil {
		t.Fatalf("expected null session for guest, got %+v", payload.Data.Session)
	}
}
