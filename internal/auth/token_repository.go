package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRepository persists refresh tokens. Tokens are grouped into
// families: one family per login, continued across rotations, so that a
// replayed token can take the whole lineage down with it.
type TokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	GetByID(ctx context.Context, id string) (*RefreshToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	RotateRefreshToken(ctx context.Context, oldID string, newToken *RefreshToken) error
	ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteTokenRepository implements TokenRepository on SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a SQLite-backed token repository.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// HashToken returns the hex SHA-256 of a raw refresh token. The database
// only ever sees this hash.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

const refreshTokenColumns = "id, user_id, family_id, token_hash, device_info, expires_at, revoked, created_at"

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertRefreshToken writes one token row, generating ID and FamilyID when
// the caller left them empty. An empty FamilyID starts a new family.
func insertRefreshToken(ctx context.Context, e execer, token *RefreshToken) error {
	if token.ID == "" {
		token.ID = "rt-" + uuid.NewString()[:8]
	}
	if token.FamilyID == "" {
		token.FamilyID = uuid.NewString()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	token.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := e.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.FamilyID, token.TokenHash,
		nullString(token.DeviceInfo),
		token.ExpiresAt.UTC().Format(time.RFC3339),
		boolToInt(token.Revoked), now,
	)
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	return nil
}

// scanRefreshToken reads one token row from a Row or Rows scanner.
func scanRefreshToken(s scanner) (*RefreshToken, error) {
	var t RefreshToken
	var deviceInfo sql.NullString
	var revoked int
	var expiresAt, createdAt string

	err := s.Scan(&t.ID, &t.UserID, &t.FamilyID, &t.TokenHash, &deviceInfo,
		&expiresAt, &revoked, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("scanning refresh token: %w", err)
	}

	t.Revoked = revoked != 0
	if deviceInfo.Valid {
		t.DeviceInfo = deviceInfo.String
	}
	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &t, nil
}

// Create stores a refresh token, starting a new family unless the caller
// set one.
func (r *SQLiteTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	return insertRefreshToken(ctx, r.db, token)
}

// GetByID looks a token up by its row ID.
func (r *SQLiteTokenRepository) GetByID(ctx context.Context, id string) (*RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+refreshTokenColumns+" FROM refresh_tokens WHERE id = ?", id)
	return scanRefreshToken(row)
}

// GetByTokenHash looks a token up by the hash of its raw value. The refresh
// endpoint uses this; clients only ever present the raw token.
func (r *SQLiteTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+refreshTokenColumns+" FROM refresh_tokens WHERE token_hash = ?", tokenHash)
	return scanRefreshToken(row)
}

// Revoke invalidates one token.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// RevokeFamily invalidates every token descended from one login. Called
// when a revoked token is presented again, since that means the raw token
// leaked.
func (r *SQLiteTokenRepository) RevokeFamily(ctx context.Context, familyID string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("revoking token family: %w", err)
	}
	return nil
}

// RevokeAllForUser invalidates every token the user holds, across all
// devices. Used on deactivation and forced logout.
func (r *SQLiteTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("revoking user tokens: %w", err)
	}
	return nil
}

// RotateRefreshToken revokes the consumed token and stores its replacement
// in one transaction, so no window exists where both or neither are live.
func (r *SQLiteTokenRepository) RotateRefreshToken(ctx context.Context, oldID string, newToken *RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rotation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = 1 WHERE id = ?", oldID); err != nil {
		return fmt.Errorf("revoking consumed token: %w", err)
	}

	if err := insertRefreshToken(ctx, tx, newToken); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}
	return nil
}

// ListActiveByUser returns the user's live sessions: tokens neither revoked
// nor expired, newest first.
func (r *SQLiteTokenRepository) ListActiveByUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refreshTokenColumns+`
		 FROM refresh_tokens
		 WHERE user_id = ? AND revoked = 0 AND expires_at > ?
		 ORDER BY created_at DESC`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("listing active tokens: %w", err)
	}
	defer rows.Close()

	tokens := []RefreshToken{}
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens: %w", err)
	}
	return tokens, nil
}

// DeleteExpired drops expired token rows and reports how many went.
// Revoked rows are kept until expiry so replay detection still sees them.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}

	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return n, nil
}
