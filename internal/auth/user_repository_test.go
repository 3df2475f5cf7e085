package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGetByID(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "maker@builder.test", RoleUser)
	if user.ID == "" {
		t.Fatal("Create() left ID blank")
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "maker@builder.test" {
		t.Errorf("Email = %q, want %q", got.Email, "maker@builder.test")
	}
	if got.Role != RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, RoleUser)
	}
	if !got.IsActive {
		t.Error("IsActive = false for a freshly created user")
	}
	if ok, err := VerifyPassword("test-password", got.PasswordHash); err != nil || !ok {
		t.Errorf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "admin@builder.test", RoleAdmin)

	got, err := repo.GetByEmail(ctx, "admin@builder.test")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByEmail() found %q, want %q", got.ID, user.ID)
	}

	if _, err := repo.GetByEmail(ctx, "stranger@builder.test"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown email error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	seedTestUser(t, db, "taken@builder.test", RoleUser)

	dupe := &User{
		Email:        "taken@builder.test",
		Username:     "someone else",
		PasswordHash: "irrelevant",
		Role:         RoleUser,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), dupe); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Create() with taken email error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_List(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users, err := repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("List() on empty table = %d users", len(users))
	}

	for _, name := range []string{"alice", "bob", "carol"} {
		seedTestUser(t, db, name+"@builder.test", RoleUser)
	}

	users, err = repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 3 {
		t.Errorf("List() = %d users, want 3", len(users))
	}

	page, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("List(2, 1) error = %v", err)
	}
	if len(page) != 2 {
		t.Errorf("List(2, 1) = %d users, want 2", len(page))
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "promote@builder.test", RoleUser)

	user.Username = "site admin"
	user.Role = RoleAdmin
	user.IsActive = false
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "site admin" || got.Role != RoleAdmin || got.IsActive {
		t.Errorf("after Update(): %+v", got)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "rekey@builder.test", RoleUser)

	newHash, err := HashPassword("fresh-secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := repo.UpdatePassword(ctx, user.ID, newHash); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if ok, _ := VerifyPassword("fresh-secret", got.PasswordHash); !ok {
		t.Error("new password does not verify after UpdatePassword()")
	}
	if ok, _ := VerifyPassword("test-password", got.PasswordHash); ok {
		t.Error("old password still verifies after UpdatePassword()")
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedTestUser(t, db, "leaver@builder.test", RoleUser)

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrUserNotFound", err)
	}

	if err := repo.Delete(ctx, "usr-missing1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() of unknown user = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() on empty table = %d", n)
	}

	seedTestUser(t, db, "one@builder.test", RoleUser)
	seedTestUser(t, db, "two@builder.test", RoleUser)

	n, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
