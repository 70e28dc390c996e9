package domain

import (
	"errors"
	"fmt"
)

var ErrDuplicateIdentity = errors.New("identity already registered")
var ErrAdminQuotaExceeded = errors.New("admin quota exceeded")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAssignmentPending = errors.New("employee is not assigned to a shop yet")
var ErrProfileNotFound = errors.New("profile not found")
var ErrBackendUnavailable = errors.New("backend unavailable")

var ErrInvalidInput = errors.New("invalid input")
var ErrInvalidRole = errors.New("invalid role")
var ErrInvalidShop = errors.New("invalid shop")
var ErrForbidden = errors.New("access forbidden")
var ErrNotAuthenticated = errors.New("not authenticated")
var ErrSessionSuperseded = errors.New("session superseded")

// known lists the errors that are passed through untouched by Unavailable.
var known = []error{
	ErrDuplicateIdentity,
	ErrAdminQuotaExceeded,
	ErrInvalidCredentials,
	ErrAssignmentPending,
	ErrProfileNotFound,
	ErrBackendUnavailable,
	ErrInvalidInput,
	ErrInvalidRole,
	ErrInvalidShop,
	ErrForbidden,
	ErrNotAuthenticated,
	ErrSessionSuperseded,
}

// Unavailable classifies err as a backend fault unless it already is one of
// the domain errors. The original cause stays reachable through errors.Is/As.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
