package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ehr/gateway/internal/platform/apierror"
	"github.com/ehr/gateway/internal/platform/auth"
	"github.com/ehr/gateway/internal/platform/cache"
)

// =========== Mock Authenticator ===========

type mockAuthenticator struct {
	user        *User
	err         error
	gotAccess   string
	gotVerify   string
	gotLocation string
	calls       int
}

func (m *mockAuthenticator) Login(_ context.Context, accessCode, verifyCode, location string) (*User, error) {
	m.calls++
	m.gotAccess, m.gotVerify, m.gotLocation = accessCode, verifyCode, location
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func newTestService(a Authenticator) (*Service, *auth.Manager) {
	m := auth.NewManager([]byte("account-test-signing-key-0000000000"), time.Hour, cache.NewMemoryStore())
	return NewService(a, m, "MAIN CAMPUS"), m
}

func TestService_Login(t *testing.T) {
	a := &mockAuthenticator{user: &User{DUZ: "520", Name: "PROVIDER,ONE", Location: "WARD 3A", Keys: []string{"ORES"}}}
	svc, m := newTestService(a)

	resp, err := svc.Login(context.Background(), LoginRequest{AccessCode: " doc1 ", VerifyCode: "secret1!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.gotAccess != "doc1" || a.gotLocation != "MAIN CAMPUS" {
		t.Errorf("expected trimmed code and default location, got %q %q", a.gotAccess, a.gotLocation)
	}

	s, err := m.Parse(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("issued token did not parse: %v", err)
	}
	if s.DUZ != "520" || s.Location != "WARD 3A" || !s.HasKey("ORES") {
		t.Errorf("unexpected session %+v", s)
	}
	if !resp.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("expiry mismatch %v vs %v", resp.ExpiresAt, s.ExpiresAt)
	}
}

func TestService_LoginValidation(t *testing.T) {
	a := &mockAuthenticator{}
	svc, _ := newTestService(a)

	for _, req := range []LoginRequest{
		{VerifyCode: "v"},
		{AccessCode: "a", VerifyCode: "   "},
	} {
		_, err := svc.Login(context.Background(), req)
		var ve *apierror.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("expected validation error for %+v, got %v", req, err)
		}
	}
	if a.calls != 0 {
		t.Error("expected no backend call for invalid input")
	}
}

func TestService_LoginRejected(t *testing.T) {
	svc, _ := newTestService(&mockAuthenticator{err: &RejectedError{Message: "Not a valid ACCESS CODE/VERIFY CODE pair."}})

	_, err := svc.Login(context.Background(), LoginRequest{AccessCode: "a", VerifyCode: "b", Location: "ER"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	svc, m := newTestService(&mockAuthenticator{user: &User{DUZ: "520"}})
	ctx := context.Background()

	resp, _ := svc.Login(ctx, LoginRequest{AccessCode: "a", VerifyCode: "b"})
	s, _ := m.Parse(ctx, resp.Token)

	if err := svc.Logout(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Parse(ctx, resp.Token); !errors.Is(err, auth.ErrRevoked) {
		t.Errorf("expected revoked token, got %v", err)
	}

	if err := svc.Logout(ctx, &auth.Session{DUZ: "1"}); err != nil {
		t.Errorf("expected dev session logout to be a no-op, got %v", err)
	}
}
