package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the template schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "template-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			creator_id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE INDEX idx_templates_creator ON templates(creator_id);
		CREATE INDEX idx_templates_created ON templates(created_at);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying template migration: %v", err)
	}

	return db
}

func TestRepository_CreateAndGetByID(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tmpl := &Template{
		Name:      "Landing Page",
		CreatorID: "usr-creator1",
		Data:      json.RawMessage(`{"sections": ["hero", "pricing"]}`),
	}

	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if tmpl.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Name != "Landing Page" {
		t.Errorf("Name = %q, want %q", got.Name, "Landing Page")
	}
	if got.CreatorID != "usr-creator1" {
		t.Errorf("CreatorID = %q, want %q", got.CreatorID, "usr-creator1")
	}

	var payload map[string]any
	if err := json.Unmarshal(got.Data, &payload); err != nil {
		t.Fatalf("stored data is not valid JSON: %v", err)
	}
	if _, ok := payload["sections"]; !ok {
		t.Error("stored data should contain sections key")
	}
}

func TestRepository_Create_DefaultsData(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tmpl := &Template{Name: "Blank", CreatorID: "usr-c"}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, tmpl.ID)
	if string(got.Data) != "[]" {
		t.Errorf("Data = %s, want []", got.Data)
	}
}

func TestRepository_Create_RejectsInvalidJSON(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	tmpl := &Template{
		Name:      "Broken",
		CreatorID: "usr-c",
		Data:      json.RawMessage(`{not json`),
	}
	err := repo.Create(context.Background(), tmpl)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("error = %v, want ErrInvalidPayload", err)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	_, err := repo.GetByID(context.Background(), "tpl-missing")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestRepository_List_NewestFirst(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	names := []string{"first", "second", "third"}
	for _, name := range names {
		tmpl := &Template{Name: name, CreatorID: "usr-c"}
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	got, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("List() returned %d templates, want 3", len(got))
	}
	if got[0].Name != "third" || got[2].Name != "first" {
		t.Errorf("List() order = [%s %s %s], want newest first",
			got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestRepository_List_CreatorFilter(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i, creator := range []string{"usr-a", "usr-a", "usr-b"} {
		tmpl := &Template{Name: "t", CreatorID: creator}
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("Create(%d) error = %v", i, err)
		}
	}

	got, err := repo.List(ctx, ListFilter{CreatorID: "usr-a"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(creator=usr-a) returned %d, want 2", len(got))
	}

	count, err := repo.Count(ctx, "usr-a")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count(usr-a) = %d, want 2", count)
	}
}

func TestRepository_List_Pagination(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tmpl := &Template{Name: "page", CreatorID: "usr-c"}
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("List(limit=2, offset=4) returned %d, want 1", len(got))
	}
}

func TestRepository_UpdateMeta(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tmpl := &Template{Name: "Old Name", CreatorID: "usr-c"}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateMeta(ctx, tmpl.ID, "New Name", "fresh description"); err != nil {
		t.Fatalf("UpdateMeta() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, tmpl.ID)
	if got.Name != "New Name" {
		t.Errorf("Name = %q, want %q", got.Name, "New Name")
	}
	if got.Description != "fresh description" {
		t.Errorf("Description = %q, want %q", got.Description, "fresh description")
	}
}

func TestRepository_UpdatePayload(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tmpl := &Template{Name: "doc", CreatorID: "usr-c"}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ts := time.Now().UTC().Add(time.Second)
	if err := repo.UpdatePayload(ctx, tmpl.ID, json.RawMessage(`{"v": 2}`), ts); err != nil {
		t.Fatalf("UpdatePayload() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, tmpl.ID)
	if string(got.Data) != `{"v": 2}` {
		t.Errorf("Data = %s, want {\"v\": 2}", got.Data)
	}
	if !got.UpdatedAt.Equal(ts.Truncate(time.Nanosecond)) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, ts)
	}
}

func TestRepository_UpdatePayload_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)

	err := repo.UpdatePayload(context.Background(), "tpl-missing",
		json.RawMessage(`{}`), time.Now())
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tmpl := &Template{Name: "gone", CreatorID: "usr-c"}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, tmpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, tmpl.ID)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("after delete, GetByID error = %v, want ErrTemplateNotFound", err)
	}

	if err := repo.Delete(ctx, tmpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("second Delete() error = %v, want ErrTemplateNotFound", err)
	}
}
