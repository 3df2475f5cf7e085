package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// mintToken creates and stores a refresh token for the user, expiring a
// week out unless ttl says otherwise.
func mintToken(t *testing.T, repo TokenRepository, userID, raw string, ttl time.Duration) *RefreshToken {
	t.Helper()

	token := &RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := repo.Create(context.Background(), token); err != nil {
		t.Fatalf("creating token %q: %v", raw, err)
	}
	return token
}

const weekTTL = 7 * 24 * time.Hour

func TestTokenRepository_CreateAndLookup(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "sessions@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := &RefreshToken{
		UserID:     user.ID,
		TokenHash:  HashToken("raw-refresh-value"),
		DeviceInfo: "Firefox on Linux",
		ExpiresAt:  time.Now().Add(weekTTL),
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if token.ID == "" || token.FamilyID == "" {
		t.Fatalf("Create() left ID %q / FamilyID %q blank", token.ID, token.FamilyID)
	}

	byID, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.UserID != user.ID || byID.DeviceInfo != "Firefox on Linux" || byID.Revoked {
		t.Errorf("GetByID() = %+v, fields do not match the created token", byID)
	}

	byHash, err := repo.GetByTokenHash(ctx, HashToken("raw-refresh-value"))
	if err != nil {
		t.Fatalf("GetByTokenHash() error = %v", err)
	}
	if byHash.ID != token.ID {
		t.Errorf("GetByTokenHash() found %q, want %q", byHash.ID, token.ID)
	}

	if _, err := repo.GetByTokenHash(ctx, HashToken("never-issued")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("GetByTokenHash() for unknown hash = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenRepository_Revoke(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "revoke@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := mintToken(t, repo, user.ID, "doomed", weekTTL)

	if err := repo.Revoke(ctx, token.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	got, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.Revoked {
		t.Error("Revoked = false after Revoke()")
	}
}

func TestTokenRepository_RevokeFamily_SparesOthers(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "family@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	// Two rotations of one login plus an unrelated login.
	first := mintToken(t, repo, user.ID, "login-a-1", weekTTL)
	second := &RefreshToken{
		UserID:    user.ID,
		FamilyID:  first.FamilyID,
		TokenHash: HashToken("login-a-2"),
		ExpiresAt: time.Now().Add(weekTTL),
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("creating rotation token: %v", err)
	}
	other := mintToken(t, repo, user.ID, "login-b-1", weekTTL)

	if err := repo.RevokeFamily(ctx, first.FamilyID); err != nil {
		t.Fatalf("RevokeFamily() error = %v", err)
	}

	for _, tc := range []struct {
		id   string
		want bool
	}{
		{first.ID, true},
		{second.ID, true},
		{other.ID, false},
	} {
		got, err := repo.GetByID(ctx, tc.id)
		if err != nil {
			t.Fatalf("GetByID(%s) error = %v", tc.id, err)
		}
		if got.Revoked != tc.want {
			t.Errorf("token %s revoked = %v, want %v", tc.id, got.Revoked, tc.want)
		}
	}
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "alldevices@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mintToken(t, repo, user.ID, fmt.Sprintf("device-%d", i), weekTTL)
	}

	if err := repo.RevokeAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}

	active, err := repo.ListActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active sessions = %d after RevokeAllForUser, want 0", len(active))
	}
}

func TestTokenRepository_ListActiveByUser_FiltersDeadTokens(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "active@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	live := mintToken(t, repo, user.ID, "live", weekTTL)
	mintToken(t, repo, user.ID, "stale", -time.Hour)
	dead := mintToken(t, repo, user.ID, "dead", weekTTL)
	if err := repo.Revoke(ctx, dead.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	tokens, err := repo.ListActiveByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser() error = %v", err)
	}
	if len(tokens) != 1 || tokens[0].ID != live.ID {
		t.Errorf("ListActiveByUser() = %d tokens, want only %s", len(tokens), live.ID)
	}
}

func TestTokenRepository_RotateRefreshToken(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "rotate@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	old := mintToken(t, repo, user.ID, "generation-1", weekTTL)

	replacement := &RefreshToken{
		UserID:    user.ID,
		FamilyID:  old.FamilyID,
		TokenHash: HashToken("generation-2"),
		ExpiresAt: time.Now().Add(weekTTL),
	}
	if err := repo.RotateRefreshToken(ctx, old.ID, replacement); err != nil {
		t.Fatalf("RotateRefreshToken() error = %v", err)
	}

	consumed, err := repo.GetByID(ctx, old.ID)
	if err != nil {
		t.Fatalf("GetByID(old) error = %v", err)
	}
	if !consumed.Revoked {
		t.Error("consumed token not revoked after rotation")
	}

	fresh, err := repo.GetByID(ctx, replacement.ID)
	if err != nil {
		t.Fatalf("GetByID(new) error = %v", err)
	}
	if fresh.Revoked {
		t.Error("replacement token revoked after rotation")
	}
	if fresh.FamilyID != old.FamilyID {
		t.Errorf("replacement family = %q, want %q", fresh.FamilyID, old.FamilyID)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	user := seedTestUser(t, db, "sweep@builder.test", RoleUser)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	stale := mintToken(t, repo, user.ID, "stale", -time.Hour)
	live := mintToken(t, repo, user.ID, "live", weekTTL)

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}

	if _, err := repo.GetByID(ctx, live.ID); err != nil {
		t.Errorf("live token swept away: %v", err)
	}
	if _, err := repo.GetByID(ctx, stale.ID); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("stale token lookup = %v, want ErrTokenInvalid", err)
	}
}

func TestHashToken(t *testing.T) {
	if HashToken("value") != HashToken("value") {
		t.Error("hashing is not deterministic")
	}
	if HashToken("value") == HashToken("other") {
		t.Error("distinct inputs collided")
	}
	if got := len(HashToken("value")); got != 64 {
		t.Errorf("hash length = %d, want 64 hex characters", got)
	}
}
