package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized reports rejected credentials, either the service
	// account or a user's access/verify codes.
	ErrUnauthorized = errors.New("backend: unauthorized")

	// ErrTimeout reports that the backend did not answer in time.
	ErrTimeout = errors.New("backend: timeout")
)

// Error is a failure reported by a backend endpoint, either through a non-2xx
// status or through an error envelope in a 2xx body. Message is the backend's
// own text and is safe to show to the signed-in clinician.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrUnauthorized) true for 401/403 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// AsError unwraps err to a backend *Error.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
