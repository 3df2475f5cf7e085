package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pagecraft/builder-core/internal/auth"
)

// Default token TTLs in minutes, used when config leaves them unset.
const (
	defaultAccessTTLMinutes  = 15
	defaultRefreshTTLMinutes = 7 * 24 * 60
)

// obtainTokenRequest is the request body for POST /auth/token.
type obtainTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenPairResponse is the response body for token obtain and refresh.
type tokenPairResponse struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// refreshTokenRequest is the request body for POST /auth/token/refresh.
type refreshTokenRequest struct {
	RefreshToken string `json:"refresh"`
}

// verifyTokenRequest is the request body for POST /auth/token/verify.
type verifyTokenRequest struct {
	Token string `json:"token"`
}

// handleObtainToken authenticates a user by email and password and returns
// an access/refresh token pair.
func (s *Server) handleObtainToken(w http.ResponseWriter, r *http.Request) {
	var req obtainTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Same response as a wrong password: no account enumeration.
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("get user for login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.IsActive {
		writeForbidden(w, "account is deactivated")
		return
	}

	pair, err := s.issueTokenPair(r, user, "")
	if err != nil {
		s.logger.Error("issuing token pair failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, pair)
}

// handleRefreshToken exchanges a valid refresh token for a new pair.
// The consumed token is revoked and replaced within its family; presenting
// an already-revoked token revokes the whole family (theft detection).
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh token is required")
		return
	}

	stored, err := s.tokens.GetByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if stored.Revoked {
		// Reuse of a consumed token means it leaked. Kill the family.
		if err := s.tokens.RevokeFamily(r.Context(), stored.FamilyID); err != nil {
			s.logger.Error("revoking token family failed", "family_id", stored.FamilyID, "error", err)
		}
		s.logger.Warn("refresh token reuse detected", "user_id", stored.UserID, "family_id", stored.FamilyID)
		writeUnauthorized(w, "invalid refresh token")
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		writeUnauthorized(w, "refresh token expired")
		return
	}

	user, err := s.users.GetByID(r.Context(), stored.UserID)
	if err != nil {
		writeUnauthorized(w, "invalid refresh token")
		return
	}
	if !user.IsActive {
		writeForbidden(w, "account is deactivated")
		return
	}

	pair, err := s.rotateTokenPair(r, user, stored)
	if err != nil {
		s.logger.Error("rotating token pair failed", "user_id", user.ID, "error", err)
		writeInternalError(w, "token refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// handleVerifyToken checks an access token's signature and expiry.
func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	claims, err := auth.ParseToken(req.Token, s.secCfg.JWT.Secret)
	if err != nil {
		writeUnauthorized(w, "token is invalid or expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"user_id": claims.Subject,
		"role":    claims.Role,
	})
}

// issueTokenPair creates a fresh access token and a stored refresh token in
// a new family.
func (s *Server) issueTokenPair(r *http.Request, user *auth.User, familyID string) (*tokenPairResponse, error) {
	accessTTL := s.secCfg.JWT.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTLMinutes
	}

	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, accessTTL)
	if err != nil {
		return nil, err
	}

	raw, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	stored := &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   familyID,
		TokenHash:  auth.HashToken(raw),
		DeviceInfo: r.UserAgent(),
		ExpiresAt:  time.Now().Add(s.refreshTTL()),
	}
	if err := s.tokens.Create(r.Context(), stored); err != nil {
		return nil, err
	}

	return &tokenPairResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL * 60,
	}, nil
}

// rotateTokenPair revokes the consumed refresh token and issues a
// replacement in the same family, plus a fresh access token.
func (s *Server) rotateTokenPair(r *http.Request, user *auth.User, consumed *auth.RefreshToken) (*tokenPairResponse, error) {
	accessTTL := s.secCfg.JWT.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTLMinutes
	}

	access, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, accessTTL)
	if err != nil {
		return nil, err
	}

	raw, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	replacement := &auth.RefreshToken{
		UserID:     user.ID,
		FamilyID:   consumed.FamilyID,
		TokenHash:  auth.HashToken(raw),
		DeviceInfo: r.UserAgent(),
		ExpiresAt:  time.Now().Add(s.refreshTTL()),
	}
	if err := s.tokens.RotateRefreshToken(r.Context(), consumed.ID, replacement); err != nil {
		return nil, err
	}

	return &tokenPairResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    accessTTL * 60,
	}, nil
}

// refreshTTL returns the configured refresh token lifetime.
func (s *Server) refreshTTL() time.Duration {
	ttl := s.secCfg.JWT.RefreshTokenTTL
	if ttl <= 0 {
		ttl = defaultRefreshTTLMinutes
	}
	return time.Duration(ttl) * time.Minute
}
