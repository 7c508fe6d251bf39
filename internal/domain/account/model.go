package account

import (
	"time"

	"github.com/ehr/gateway/internal/platform/auth"
)

// LoginRequest is the body of POST /session.
type LoginRequest struct {
	AccessCode string `json:"access_code"`
	VerifyCode string `json:"verify_code"`
	Location   string `json:"location"`
}

// User is the clinician the backend authenticated.
type User struct {
	DUZ      string   `json:"duz"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Location string   `json:"location"`
	Keys     []string `json:"keys"`
}

// LoginResponse carries the session token for subsequent requests.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// SessionView is the response of GET /session.
type SessionView struct {
	DUZ       string    `json:"duz"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Keys      []string  `json:"keys"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Dev       bool      `json:"dev,omitempty"`
}

func viewOf(s *auth.Session) SessionView {
	keys := s.Keys
	if keys == nil {
		keys = []string{}
	}
	return SessionView{
		DUZ:       s.DUZ,
		Name:      s.Name,
		Location:  s.Location,
		Keys:      keys,
		ExpiresAt: s.ExpiresAt,
		Dev:       s.ID == "",
	}
}
