package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagecraft/builder-core/internal/auth"
	"github.com/pagecraft/builder-core/internal/profile"
)

// createUserRequest is the request body for POST /users.
type createUserRequest struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      auth.Role `json:"role,omitempty"`
}

// updateUserRequest is the request body for PATCH /users/{id}. Pointer
// fields distinguish "absent" from "set to zero value".
type updateUserRequest struct {
	Username *string    `json:"username,omitempty"`
	Role     *auth.Role `json:"role,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// handleCreateUser registers a new account and its profile. Registration
// is open; only an admin caller may assign a role other than USER.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "a valid email address is required")
		return
	}
	if !auth.IsValidUsername(req.Username) {
		writeBadRequest(w, "username must be 3-32 characters: letters, digits, underscore, hyphen")
		return
	}
	if len(req.Password) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	role := auth.RoleUser
	if req.Role != "" && req.Role != auth.RoleUser {
		if !isAdmin(claimsFromContext(r.Context())) {
			writeForbidden(w, "only admins can assign roles")
			return
		}
		if !auth.IsValidUserRole(req.Role) {
			writeBadRequest(w, "invalid role")
			return
		}
		role = req.Role
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	// Every account gets a profile. A failure here leaves a usable
	// account, so log and continue rather than unwinding the insert.
	if err := s.profiles.Create(r.Context(), &profile.Profile{
		UserID:    user.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}); err != nil {
		s.logger.Error("creating profile failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// handleListUsers returns a paginated list of accounts. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(claimsFromContext(r.Context())) {
		writeForbidden(w, "admin access required")
		return
	}

	params := parsePageParams(r)

	total, err := s.users.Count(r.Context())
	if err != nil {
		s.logger.Error("counting users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	users, err := s.users.List(r.Context(), params.PageSize, params.Offset())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(total, params, users))
}

// handleGetUser returns a single account. Users can read themselves;
// moderators and admins can read anyone.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	if claims.Subject != id && claims.Role != auth.RoleAdmin && claims.Role != auth.RoleModerator {
		writeForbidden(w, "cannot access another user's account")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser patches an account. Users can change their own
// username; role and is_active changes are admin only, and admins cannot
// demote or deactivate themselves.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())
	admin := isAdmin(claims)

	if claims.Subject != id && !admin {
		writeForbidden(w, "cannot modify another user's account")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	if req.Username != nil {
		if !auth.IsValidUsername(*req.Username) {
			writeBadRequest(w, "username must be 3-32 characters: letters, digits, underscore, hyphen")
			return
		}
		user.Username = *req.Username
	}

	if req.Role != nil {
		if !admin {
			writeForbidden(w, "only admins can change roles")
			return
		}
		if claims.Subject == id {
			writeForbidden(w, "cannot change your own role")
			return
		}
		if !auth.IsValidUserRole(*req.Role) {
			writeBadRequest(w, "invalid role")
			return
		}
		user.Role = *req.Role
	}

	if req.IsActive != nil {
		if !admin {
			writeForbidden(w, "only admins can activate or deactivate accounts")
			return
		}
		if claims.Subject == id && !*req.IsActive {
			writeForbidden(w, "cannot deactivate your own account")
			return
		}
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.logger.Error("updating user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	// Deactivation invalidates every refresh token the account holds.
	if req.IsActive != nil && !*req.IsActive {
		if err := s.tokens.RevokeAllForUser(r.Context(), id); err != nil {
			s.logger.Error("revoking tokens for deactivated user failed", "user_id", id, "error", err)
		}
	}

	s.logger.Info("user updated", "user_id", id)
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes an account. Admin only; self-deletion is
// rejected so the last admin cannot lock everyone out by accident.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	if !isAdmin(claims) {
		writeForbidden(w, "admin access required")
		return
	}
	if claims.Subject == id {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	if _, err := s.users.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("getting user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	if err := s.tokens.RevokeAllForUser(r.Context(), id); err != nil {
		s.logger.Error("revoking tokens failed", "user_id", id, "error", err)
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.logger.Error("deleting user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", claims.Subject)
	w.WriteHeader(http.StatusNoContent)
}

// handleListUserSessions returns the account's active refresh tokens.
// Self or admin.
func (s *Server) handleListUserSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	if claims.Subject != id && !isAdmin(claims) {
		writeForbidden(w, "cannot access another user's sessions")
		return
	}

	sessions, err := s.tokens.ListActiveByUser(r.Context(), id)
	if err != nil {
		s.logger.Error("listing sessions failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleRevokeUserSessions revokes every refresh token the account
// holds. Self or admin.
func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	if claims.Subject != id && !isAdmin(claims) {
		writeForbidden(w, "cannot revoke another user's sessions")
		return
	}

	if err := s.tokens.RevokeAllForUser(r.Context(), id); err != nil {
		s.logger.Error("revoking sessions failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to revoke sessions")
		return
	}

	s.logger.Info("sessions revoked", "user_id", id, "revoked_by", claims.Subject)
	w.WriteHeader(http.StatusNoContent)
}
