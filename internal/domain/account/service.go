package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/auth"
)

// Service signs clinicians on and off.
type Service struct {
	auth            Authenticator
	sessions        *auth.Manager
	defaultLocation string
}

func NewService(a Authenticator, sessions *auth.Manager, defaultLocation string) *Service {
	return &Service{auth: a, sessions: sessions, defaultLocation: defaultLocation}
}

// Login verifies the codes with the backend and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	access := strings.TrimSpace(req.AccessCode)
	verify := strings.TrimSpace(req.VerifyCode)
	if access == "" {
		return nil, apierror.Invalid("access_code", "is required")
	}
	if verify == "" {
		return nil, apierror.Invalid("verify_code", "is required")
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = s.defaultLocation
	}

	user, err := s.auth.Login(ctx, access, verify, location)
	if err != nil {
		return nil, err
	}

	token, session, err := s.sessions.Issue(auth.Session{
		DUZ:      user.DUZ,
		Name:     user.Name,
		Location: user.Location,
		Keys:     user.Keys,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &LoginResponse{Token: token, ExpiresAt: session.ExpiresAt, User: *user}, nil
}

// Logout revokes the session. Development sessions have no token and
// nothing to revoke.
func (s *Service) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil || session.ID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, session)
}
