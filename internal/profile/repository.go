package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for profile persistence.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	List(ctx context.Context, limit, offset int) ([]Profile, error)
	UpdateNames(ctx context.Context, id, firstName, lastName string) error
	SetActiveConn(ctx context.Context, userID, connID string) error
	ClearActiveConn(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed profile repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new profile. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = "prf-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	p.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, first_name, last_name, active_conn_id, last_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.FirstName, p.LastName, nullString(p.ActiveConnID), nullTime(p.LastActive), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("creating profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	return r.getProfile(ctx,
		"SELECT id, user_id, first_name, last_name, active_conn_id, last_active, created_at, updated_at FROM profiles WHERE id = ?", id)
}

// GetByUserID retrieves the profile belonging to a user.
func (r *SQLiteRepository) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	return r.getProfile(ctx,
		"SELECT id, user_id, first_name, last_name, active_conn_id, last_active, created_at, updated_at FROM profiles WHERE user_id = ?", userID)
}

// List returns a page of profiles ordered by creation date.
// A limit of 0 returns all profiles.
func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]Profile, error) {
	query := "SELECT id, user_id, first_name, last_name, active_conn_id, last_active, created_at, updated_at FROM profiles ORDER BY created_at ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		p, err := scanProfileFrom(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}

	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, nil
}

// UpdateNames sets the profile's display names.
func (r *SQLiteRepository) UpdateNames(ctx context.Context, id, firstName, lastName string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`,
		firstName, lastName, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile names: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SetActiveConn records a live realtime connection for the user and stamps
// last_active. Called by the session registry on connect.
func (r *SQLiteRepository) SetActiveConn(ctx context.Context, userID, connID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET active_conn_id = ?, last_active = ?, updated_at = ? WHERE user_id = ?`,
		connID, now, now, userID,
	)
	if err != nil {
		return fmt.Errorf("setting active connection: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// ClearActiveConn removes the live connection marker for the user and
// stamps last_active. Called by the session registry on disconnect.
func (r *SQLiteRepository) ClearActiveConn(ctx context.Context, userID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET active_conn_id = NULL, last_active = ?, updated_at = ? WHERE user_id = ?`,
		now, now, userID,
	)
	if err != nil {
		return fmt.Errorf("clearing active connection: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Delete removes a profile by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Count returns the total number of profiles.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting profiles: %w", err)
	}
	return count, nil
}

// getProfile executes a query and scans a single profile result.
func (r *SQLiteRepository) getProfile(ctx context.Context, query string, args ...any) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanProfileFrom(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanProfileFrom scans a profile from any scanner (Row or Rows).
func scanProfileFrom(s scanner) (*Profile, error) {
	var p Profile
	var activeConnID, lastActive sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &activeConnID, &lastActive, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scanning profile: %w", err)
	}

	if activeConnID.Valid {
		p.ActiveConnID = activeConnID.String
	}
	if lastActive.Valid {
		t, _ := time.Parse(time.RFC3339, lastActive.String) //nolint:errcheck // format is controlled
		p.LastActive = &t
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &p, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// isUniqueViolation reports whether a SQLite error is a UNIQUE
// constraint failure. go-sqlite3 only exposes the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
