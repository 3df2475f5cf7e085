package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagecraft/builder-core/internal/auth"
	"github.com/pagecraft/builder-core/internal/profile"
)

// handleListProfiles returns a paginated list of profiles. Presence
// fields (active_conn_id, last_active) are maintained by the session
// registry and exposed read-only here.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	params := parsePageParams(r)

	total, err := s.profiles.Count(r.Context())
	if err != nil {
		s.logger.Error("counting profiles failed", "error", err)
		writeInternalError(w, "failed to list profiles")
		return
	}

	profiles, err := s.profiles.List(r.Context(), params.PageSize, params.Offset())
	if err != nil {
		s.logger.Error("listing profiles failed", "error", err)
		writeInternalError(w, "failed to list profiles")
		return
	}

	writeJSON(w, http.StatusOK, newPagedResponse(total, params, profiles))
}

// updateProfileRequest is the request body for PATCH /profiles/{id}.
// Presence fields cannot be set through this endpoint.
type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// handleUpdateProfile updates a profile's display names. Only the profile
// owner or an admin may update it.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	p, err := s.profiles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			writeNotFound(w, "profile not found")
			return
		}
		s.logger.Error("getting profile failed", "profile_id", id, "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	if claims.Subject != p.UserID && claims.Role != auth.RoleAdmin {
		writeForbidden(w, "cannot update another user's profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	firstName := p.FirstName
	lastName := p.LastName
	if req.FirstName != nil {
		firstName = *req.FirstName
	}
	if req.LastName != nil {
		lastName = *req.LastName
	}

	if err := s.profiles.UpdateNames(r.Context(), id, firstName, lastName); err != nil {
		s.logger.Error("updating profile failed", "profile_id", id, "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	updated, err := s.profiles.GetByID(r.Context(), id)
	if err != nil {
		s.logger.Error("reloading profile failed", "profile_id", id, "error", err)
		writeInternalError(w, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleGetProfile returns a single profile by its ID.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.profiles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			writeNotFound(w, "profile not found")
			return
		}
		s.logger.Error("getting profile failed", "profile_id", id, "error", err)
		writeInternalError(w, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, p)
}
