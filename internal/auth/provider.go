package auth

import (
	"context"

	sessionbridge "github.com/mercadito-app/mercadito-backend/internal/session"
	pkgerrors "github.com/mercadito-app/mercadito-backend/pkg/errors"
)

// Provider adapts the auth service to the bridge's provider contract for one
// client's bearer token.
type Provider struct {
	svc   Service
	token string
}

// NewProvider binds a provider to a bearer token; an empty token yields a
// guest provider whose session is always nil.
func NewProvider(svc Service, token string) *Provider {
	return &Provider{svc: svc, token: token}
}

// GetCurrentSession returns the session behind the bound token. An invalid or
// revoked token resolves to no session rather than an error: the bridge
// treats that client as a guest.
func (p *Provider) GetCurrentSession(ctx context.Context) (*sessionbridge.Session, error) {
	sess, err := p.svc.CurrentSession(ctx, p.token)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// SignOut revokes the bound token's session.
func (p *Provider) SignOut(ctx context.Context) error {
	if p.token == "" {
		return nil
	}
	return p.svc.Logout(ctx, p.token)
}
