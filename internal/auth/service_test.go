package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sessionbridge "github.com/mercadito-app/mercadito-backend/internal/session"
	"github.com/mercadito-app/mercadito-backend/internal/users"
	pkgAuth "github.com/mercadito-app/mercadito-backend/pkg/auth"
	"github.com/mercadito-app/mercadito-backend/pkg/auth/session"
	"github.com/mercadito-app/mercadito-backend/pkg/config"
	"github.com/mercadito-app/mercadito-backend/pkg/db/models"
	"github.com/mercadito-app/mercadito-backend/pkg/enums"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
	"github.com/mercadito-app/mercadito-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "mercadito",
	ExpirationMinutes: 30,
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.created = append(s.created, user)
	if s.byEmail == nil {
		s.byEmail = map[string]*models.User{}
	}
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type stubSessionManager struct {
	refreshToken string
	sessions     map[string]bool
	revoked      []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	if s.sessions == nil {
		s.sessions = map[string]bool{}
	}
	s.sessions[accessID] = true
	return s.refreshToken, nil
}

func (s *stubSessionManager) HasSession(_ context.Context, accessID string) (bool, error) {
	return s.sessions[accessID], nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if !s.sessions[oldAccessID] || provided != s.refreshToken {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	newID := uuid.NewString()
	s.sessions[newID] = true
	return newID, "rotated-" + s.refreshToken, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func buildTestService(t *testing.T, repo *stubUserRepo) (Service, *stubSessionManager) {
	t.Helper()
	mgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: mgr,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, mgr
}

func customerRepo(t *testing.T, password string) (*stubUserRepo, *models.User) {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Ana",
		LastName:     "García",
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	return &stubUserRepo{byEmail: map[string]*models.User{user.Email: user}}, user
}

func TestLoginMintsTokensAndEmitsSignedIn(t *testing.T) {
	repo, user := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	var events []sessionbridge.Event
	svc.Subscribe(func(_ context.Context, ev sessionbridge.Event) {
		events = append(events, ev)
	})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Ana@Example.com", Password: "customer-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("unexpected user id claim %s", claims.UserID)
	}
	if claims.Role != enums.RoleCustomer {
		t.Fatalf("expected customer role claim, got %s", claims.Role)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}

	if len(events) != 1 || events[0].Type != sessionbridge.EventSignedIn {
		t.Fatalf("expected one SIGNED_IN event, got %+v", events)
	}
	if events[0].Session == nil || events[0].Session.UserID != user.ID.String() {
		t.Fatalf("unexpected event session %+v", events[0].Session)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo, _ := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "wrong"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo, user := customerRepo(t, "customer-secret")
	user.IsActive = false
	svc, _ := buildTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "customer-secret"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo, user := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     user.Email,
		Password:  "long-enough",
		FirstName: "Ana",
		LastName:  "García",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterCreatesCustomer(t *testing.T) {
	repo := &stubUserRepo{}
	svc, _ := buildTestService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "Nuevo@Example.com",
		Password:  "long-enough",
		FirstName: "Luis",
		LastName:  "Pérez",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(repo.created))
	}
	if repo.created[0].Email != "nuevo@example.com" {
		t.Fatalf("expected normalized email, got %q", repo.created[0].Email)
	}
	if resp.User == nil || resp.User.Role != enums.RoleCustomer {
		t.Fatalf("expected customer role, got %+v", resp.User)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo, _ := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "customer-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.AccessToken == login.AccessToken {
		t.Fatalf("expected a new access token")
	}
	if rotated.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("unexpected refresh token %q", rotated.RefreshToken)
	}

	// The old refresh token is spent.
	if _, err := svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken); err == nil {
		t.Fatalf("expected rotation with spent token to fail")
	}
}

func TestLogoutRevokesSessionAndEmitsSignedOut(t *testing.T) {
	repo, _ := customerRepo(t, "customer-secret")
	svc, mgr := buildTestService(t, repo)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "customer-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var events []sessionbridge.Event
	svc.Subscribe(func(_ context.Context, ev sessionbridge.Event) {
		events = append(events, ev)
	})

	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(mgr.revoked) != 1 {
		t.Fatalf("expected one revoked session, got %d", len(mgr.revoked))
	}
	if len(events) != 1 || events[0].Type != sessionbridge.EventSignedOut {
		t.Fatalf("expected one SIGNED_OUT event, got %+v", events)
	}

	if _, err := svc.CurrentSession(context.Background(), login.AccessToken); err == nil {
		t.Fatalf("expected revoked session to be unauthorized")
	}
}

func TestCurrentSessionEmptyTokenIsGuest(t *testing.T) {
	repo, _ := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	sess, err := svc.CurrentSession(context.Background(), "")
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session for empty token, got %+v", sess)
	}
}

func TestProviderMapsUnauthorizedToGuest(t *testing.T) {
	repo, _ := customerRepo(t, "customer-secret")
	svc, _ := buildTestService(t, repo)

	provider := NewProvider(svc, "not-a-token")
	sess, err := provider.GetCurrentSession(context.Background())
	if err != nil {
		t.Fatalf("provider session: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected guest session, got %+v", sess)
	}
}
