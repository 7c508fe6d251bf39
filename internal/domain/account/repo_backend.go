package account

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ehr/gateway/internal/platform/backend"
)

const endpointLogin = "apiLogin.sh"

type loginRow struct {
	DUZ      backend.Flex `json:"DUZ"`
	Name     string       `json:"Name"`
	Title    string       `json:"Title"`
	Division string       `json:"Division"`
	Keys     []string     `json:"Keys"`
}

type backendAuthenticator struct {
	client *backend.Client
}

// NewBackendAuthenticator returns an Authenticator calling apiLogin.sh.
func NewBackendAuthenticator(client *backend.Client) Authenticator {
	return &backendAuthenticator{client: client}
}

func (a *backendAuthenticator) Login(ctx context.Context, accessCode, verifyCode, location string) (*User, error) {
	var row loginRow
	err := a.client.Call(ctx, endpointLogin, backend.Params{
		"AccessCode":          accessCode,
		"VerifyCode":          verifyCode,
		backend.FieldLocation: location,
	}, &row)
	if be, ok := backend.AsError(err); ok && rejected(be.StatusCode) {
		return nil, &RejectedError{Message: be.Message}
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	duz := string(row.DUZ)
	if duz == "" || duz == "0" {
		return nil, &RejectedError{}
	}

	loc := strings.TrimSpace(row.Division)
	if loc == "" {
		loc = location
	}
	return &User{
		DUZ:      duz,
		Name:     strings.TrimSpace(row.Name),
		Title:    strings.TrimSpace(row.Title),
		Location: loc,
		Keys:     normalizeKeys(row.Keys),
	}, nil
}

// rejected reports whether a login failure means bad credentials rather than
// an unavailable backend. apiLogin.sh signals bad codes in a 200 envelope.
func rejected(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusUnauthorized || status == http.StatusForbidden
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
