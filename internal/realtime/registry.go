package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/pagecraft/builder-core/internal/infrastructure/config"
	"github.com/pagecraft/builder-core/internal/infrastructure/logging"
	"github.com/pagecraft/builder-core/internal/profile"
)

// Sentinel errors for registry operations.
var (
	ErrAlreadyActive = errors.New("user already has an active session")
	ErrNotActive     = errors.New("user has no active session")
	ErrUnknownUser   = errors.New("no profile exists for user")
)

// Transport is a live realtime connection owned by the registry.
// The websocket layer implements it.
type Transport interface {
	// ConnID returns the connection's unique identifier.
	ConnID() string

	// Close tears the connection down. Must be safe to call more than once.
	Close() error
}

// ProfileStore is the subset of the profile repository the registry needs
// to persist presence.
type ProfileStore interface {
	SetActiveConn(ctx context.Context, userID, connID string) error
	ClearActiveConn(ctx context.Context, userID string) error
}

// Registry tracks which users have a live realtime connection. At most one
// session exists per user: a second handshake either supersedes the first
// or is rejected, depending on the configured policy.
type Registry struct {
	logger   *logging.Logger
	policy   config.SessionPolicy
	profiles ProfileStore

	mu       sync.RWMutex
	sessions map[string]Transport

	onPresence func(userID string, online bool)
}

// Deps contains dependencies for creating a Registry.
type Deps struct {
	Logger   *logging.Logger
	Policy   config.SessionPolicy
	Profiles ProfileStore
}

// New creates a session Registry.
func New(deps Deps) (*Registry, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if deps.Policy == "" {
		deps.Policy = config.SessionPolicySupersede
	}

	return &Registry{
		logger:   deps.Logger.With("component", "realtime"),
		policy:   deps.Policy,
		profiles: deps.Profiles,
		sessions: make(map[string]Transport),
	}, nil
}

// SetOnPresenceChange registers a callback invoked after a user transitions
// between online and offline. Supersession does not fire it: the user never
// went offline. Must be called before the registry is in use.
func (r *Registry) SetOnPresenceChange(fn func(userID string, online bool)) {
	r.onPresence = fn
}

// Register binds a transport as the user's active session and persists the
// connection ID to the user's profile.
//
// A user without a profile cannot register: presence has nowhere to
// persist, so Register returns ErrUnknownUser and leaves no session behind.
//
// If the user already has a session, the supersede policy closes the old
// transport and installs the new one; the reject policy returns
// ErrAlreadyActive and leaves the existing session untouched.
func (r *Registry) Register(ctx context.Context, userID string, t Transport) error {
	r.mu.Lock()
	existing := r.sessions[userID]
	if existing != nil && r.policy == config.SessionPolicyReject {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	r.sessions[userID] = t
	r.mu.Unlock()

	// Close the superseded transport outside the lock: Close can block on
	// a slow peer.
	if existing != nil {
		r.logger.Info("session superseded",
			"user_id", userID,
			"old_conn_id", existing.ConnID(),
			"new_conn_id", t.ConnID(),
		)
		if err := existing.Close(); err != nil {
			r.logger.Warn("closing superseded session", "user_id", userID, "error", err)
		}
	}

	if err := r.profiles.SetActiveConn(ctx, userID, t.ConnID()); err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			r.mu.Lock()
			if r.sessions[userID] == t {
				delete(r.sessions, userID)
			}
			r.mu.Unlock()
			return ErrUnknownUser
		}
		r.logger.Warn("persisting active connection", "user_id", userID, "error", err)
	}

	r.logger.Debug("session registered", "user_id", userID, "conn_id", t.ConnID())

	if existing == nil && r.onPresence != nil {
		r.onPresence(userID, true)
	}
	return nil
}

// Deregister removes the user's session if connID still identifies it.
// A stale close from a superseded connection is a no-op for the live
// session and returns ErrNotActive.
func (r *Registry) Deregister(ctx context.Context, userID, connID string) error {
	r.mu.Lock()
	current, ok := r.sessions[userID]
	if !ok || current.ConnID() != connID {
		r.mu.Unlock()
		return ErrNotActive
	}
	delete(r.sessions, userID)
	r.mu.Unlock()

	if err := r.profiles.ClearActiveConn(ctx, userID); err != nil {
		r.logger.Warn("clearing active connection", "user_id", userID, "error", err)
	}

	r.logger.Debug("session deregistered", "user_id", userID, "conn_id", connID)

	if r.onPresence != nil {
		r.onPresence(userID, false)
	}
	return nil
}

// IsActive reports whether the user currently has a live session.
func (r *Registry) IsActive(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ActiveUsers returns the IDs of all users with a live session.
func (r *Registry) ActiveUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		users = append(users, id)
	}
	return users
}

// CloseAll tears down every live session. Used during shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]Transport)
	r.mu.Unlock()

	for userID, t := range sessions {
		if err := t.Close(); err != nil {
			r.logger.Warn("closing session", "user_id", userID, "error", err)
		}
		if err := r.profiles.ClearActiveConn(ctx, userID); err != nil {
			r.logger.Warn("clearing active connection", "user_id", userID, "error", err)
		}
	}
}
