package services

import "errors"

var (
	// ErrNotAdmin guards the view-as override: only admin identities may
	// switch or reset the effective role directly.
	ErrNotAdmin = errors.New("admin identity required")

	ErrInvalidRole     = errors.New("invalid role")
	ErrRoleNotHeld     = errors.New("role not held by profile")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidLogin    = errors.New("invalid email or password")
)
