package services

import (
	"context"
	"time"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
)

// Session is the result of a successful login.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Officer   *domain.Officer `json:"officer"`
}

// AuthService logs officers in.
type AuthService struct {
	Officers *OfficerService
	Sessions *auth.Sessions
}

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	o, err := s.Officers.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	tok, exp, err := s.Sessions.Issue(PrincipalOf(o))
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, ExpiresAt: exp, Officer: o}, nil
}

// Me returns the current account of p. Deactivated or deleted accounts are
// reported as ErrBadCredentials so their sessions stop working.
func (s *AuthService) Me(ctx context.Context, p auth.Principal) (*domain.Officer, error) {
	o, err := s.Officers.Get(ctx, p.OfficerID)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !o.Active {
		return nil, ErrBadCredentials
	}
	return o, nil
}
