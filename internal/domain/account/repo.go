package account

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned when the backend rejects the
// access/verify code pair.
var ErrInvalidCredentials = errors.New("invalid access or verify code")

// Authenticator checks sign-on credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, accessCode, verifyCode, location string) (*User, error)
}

// RejectedError carries the backend's sign-on message and matches
// ErrInvalidCredentials.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrInvalidCredentials.Error()
	}
	return e.Message
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
