package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ehr/gateway/internal/platform/cache"
)

// ErrRevoked is returned for a well-formed token whose session was ended.
var ErrRevoked = errors.New("session revoked")

// Session is an authenticated clinician as established by apiLogin.sh.
type Session struct {
	ID        string    `json:"id"`
	DUZ       string    `json:"duz"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Keys      []string  `json:"keys"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasKey reports whether the user holds the backend security key.
func (s *Session) HasKey(key string) bool {
	for _, k := range s.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Claims is the JWT payload of a gateway session token.
type Claims struct {
	jwt.RegisteredClaims
	DUZ      string   `json:"duz"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Keys     []string `json:"keys,omitempty"`
}

const issuer = "ehr-gateway"

// Manager issues, validates and revokes session tokens.
type Manager struct {
	key     []byte
	ttl     time.Duration
	revoked cache.Store
	now     func() time.Time
}

// NewManager creates a Manager signing HS256 tokens with key. Revocations are
// kept in store until the revoked token would have expired anyway.
func NewManager(key []byte, ttl time.Duration, store cache.Store) *Manager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{key: key, ttl: ttl, revoked: store, now: time.Now}
}

// Issue signs a token for s. ID and ExpiresAt are assigned here.
func (m *Manager) Issue(s Session) (string, *Session, error) {
	if s.DUZ == "" {
		return "", nil, fmt.Errorf("issue session: DUZ is required")
	}
	now := m.now()
	s.ID = uuid.NewString()
	s.ExpiresAt = now.Add(m.ttl).Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.DUZ,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		DUZ:      s.DUZ,
		Name:     s.Name,
		Location: s.Location,
		Keys:     s.Keys,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, &s, nil
}

// Parse validates a token and returns its session.
func (m *Manager) Parse(ctx context.Context, token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ID == "" || claims.DUZ == "" {
		return nil, fmt.Errorf("parse session token: missing jti or duz")
	}

	if m.revoked != nil {
		_, err := m.revoked.Get(ctx, revokedKey(claims.ID))
		if err == nil {
			return nil, ErrRevoked
		}
		if !errors.Is(err, cache.ErrMiss) {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
	}

	return &Session{
		ID:        claims.ID,
		DUZ:       claims.DUZ,
		Name:      claims.Name,
		Location:  claims.Location,
		Keys:      claims.Keys,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke ends s. Revoking an expired session is a no-op.
func (m *Manager) Revoke(ctx context.Context, s *Session) error {
	if m.revoked == nil {
		return fmt.Errorf("revoke session: no revocation store configured")
	}
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.revoked.Set(ctx, revokedKey(s.ID), []byte{1}, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func revokedKey(id string) string {
	return "revoked:" + id
}
