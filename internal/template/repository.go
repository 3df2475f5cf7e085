package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List and Count results.
type ListFilter struct {
	// CreatorID restricts results to templates created by one user.
	// Empty means no restriction.
	CreatorID string

	// Limit caps the number of returned rows. 0 means no cap.
	Limit int

	// Offset skips rows from the start of the result set.
	Offset int
}

// Repository defines the interface for template persistence.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	List(ctx context.Context, filter ListFilter) ([]Template, error)
	UpdateMeta(ctx context.Context, id, name, description string) error
	UpdatePayload(ctx context.Context, id string, data json.RawMessage, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, creatorID string) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed template repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new template. The ID is generated if empty and the
// payload defaults to an empty list.
func (r *SQLiteRepository) Create(ctx context.Context, t *Template) error {
	if t.ID == "" {
		t.ID = "tpl-" + uuid.NewString()[:8]
	}
	if len(t.Data) == 0 {
		t.Data = DefaultData
	}
	if !json.Valid(t.Data) {
		return ErrInvalidPayload
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, description, creator_id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.CreatorID, string(t.Data),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("creating template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Template, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, creator_id, data, created_at, updated_at FROM templates WHERE id = ?", id)
	return scanTemplateFrom(row)
}

// List returns templates newest-first, optionally filtered by creator.
func (r *SQLiteRepository) List(ctx context.Context, filter ListFilter) ([]Template, error) {
	query := "SELECT id, name, description, creator_id, data, created_at, updated_at FROM templates"
	args := []any{}

	if filter.CreatorID != "" {
		query += " WHERE creator_id = ?"
		args = append(args, filter.CreatorID)
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		t, err := scanTemplateFrom(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", err)
	}

	if templates == nil {
		templates = []Template{}
	}
	return templates, nil
}

// UpdateMeta changes a template's display name and description.
func (r *SQLiteRepository) UpdateMeta(ctx context.Context, id, name, description string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	result, err := r.db.ExecContext(ctx,
		"UPDATE templates SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		name, description, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating template metadata: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// UpdatePayload overwrites a template's data wholesale with the supplied
// timestamp. Callers are responsible for serialising concurrent writers
// and choosing a strictly increasing updated_at — see the Coordinator.
func (r *SQLiteRepository) UpdatePayload(ctx context.Context, id string, data json.RawMessage, updatedAt time.Time) error {
	if !json.Valid(data) {
		return ErrInvalidPayload
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE templates SET data = ?, updated_at = ? WHERE id = ?",
		string(data), updatedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("updating template payload: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Delete removes a template by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Count returns the number of templates, optionally for one creator.
func (r *SQLiteRepository) Count(ctx context.Context, creatorID string) (int, error) {
	query := "SELECT COUNT(*) FROM templates"
	args := []any{}
	if creatorID != "" {
		query += " WHERE creator_id = ?"
		args = append(args, creatorID)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting templates: %w", err)
	}
	return count, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanTemplateFrom scans a template from any scanner (Row or Rows).
func scanTemplateFrom(s scanner) (*Template, error) {
	var t Template
	var data string
	var createdAt, updatedAt string

	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.CreatorID, &data, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("scanning template: %w", err)
	}

	t.Data = json.RawMessage(data)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}
