package types

import "github.com/google/uuid"

type IdentityEventKind string

const (
	IdentitySignedIn  IdentityEventKind = "signed_in"
	IdentitySignedOut IdentityEventKind = "signed_out"
)

// IdentityEvent announces a login or logout anywhere in the system,
// including other instances serving the same user's other tabs.
type IdentityEvent struct {
	Kind   IdentityEventKind `json:"kind"`
	UserID uuid.UUID         `json:"user_id"`
}
