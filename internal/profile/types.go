package profile

import (
	"errors"
	"time"
)

// Profile holds per-user display details and presence state. Exactly one
// profile exists per user account; it is created alongside the account and
// deleted with it.
type Profile struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// ActiveConnID is the identifier of the user's live realtime
	// connection, or empty when the user is offline. Managed by the
	// session registry; read-only over REST.
	ActiveConnID string `json:"active_conn_id,omitempty"`

	// LastActive is the time of the most recent realtime handshake.
	LastActive *time.Time `json:"last_active,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Online returns true if the profile has a live realtime connection.
func (p *Profile) Online() bool {
	return p.ActiveConnID != ""
}

// Sentinel errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists for user")
)
