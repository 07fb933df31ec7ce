package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

	query := `
	CREATE TABLE tokens (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		token_hash TEXT UNIQUE NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('refresh', 'api', 'invitation')),
		name TEXT NOT NULL DEFAULT '',
		expires_at INTEGER,
		revoked INTEGER NOT NULL DEFAULT 0,
		last_used_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err = db.Exec(query)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return db
}

func TestTokenRepository_CreateAndGetByHash(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour).Unix()
	token := &models.Token{
		UserID:    "usr_1",
		TokenHash: "hash-1",
		Type:      models.TokenTypeRefresh,
		ExpiresAt: &expiresAt,
	}

	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if token.ID == "" {
		t.Error("Create did not assign an id")
	}
	if token.CreatedAt == 0 {
		t.Error("Create did not set created_at")
	}

	fetched, err := repo.GetByHashAndType(ctx, "hash-1", models.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if fetched == nil {
		t.Fatal("Expected a token, got nil")
	}
	if fetched.UserID != "usr_1" {
		t.Errorf("Expected user usr_1, got %s", fetched.UserID)
	}
	if fetched.ExpiresAt == nil || *fetched.ExpiresAt != expiresAt {
		t.Errorf("Expires_at not round-tripped: %v", fetched.ExpiresAt)
	}
}

func TestTokenRepository_GetByHashTypeMismatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Token{
		UserID:    "usr_1",
		TokenHash: "hash-1",
		Type:      models.TokenTypeAPI,
	}); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	fetched, err := repo.GetByHashAndType(ctx, "hash-1", models.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fetched != nil {
		t.Error("Hash resolved under the wrong type")
	}
}

func TestTokenRepository_DuplicateHash(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Token{UserID: "usr_1", TokenHash: "same", Type: models.TokenTypeAPI}); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	err := repo.Create(ctx, &models.Token{UserID: "usr_2", TokenHash: "same", Type: models.TokenTypeRefresh})
	if !errors.Is(err, auth.ErrDuplicateHash) {
		t.Errorf("Expected ErrDuplicateHash, got %v", err)
	}
}

func TestTokenRepository_Revoke(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := &models.Token{UserID: "usr_1", TokenHash: "hash-1", Type: models.TokenTypeRefresh}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if err := repo.Revoke(ctx, token.ID); err != nil {
		t.Fatalf("Failed to revoke token: %v", err)
	}

	// Revoked rows no longer resolve by hash.
	fetched, err := repo.GetByHashAndType(ctx, "hash-1", models.TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fetched != nil {
		t.Error("Revoked token still resolves by hash")
	}

	// But they are still visible by id, flagged revoked.
	byID, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("Failed to get token by id: %v", err)
	}
	if byID == nil || !byID.Revoked {
		t.Error("Expected revoked record by id")
	}

	// Revoking again is a no-op.
	if err := repo.Revoke(ctx, token.ID); err != nil {
		t.Errorf("Second revoke returned error: %v", err)
	}
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	for i, hash := range []string{"a", "b"} {
		tokenType := models.TokenTypeRefresh
		if i == 1 {
			tokenType = models.TokenTypeAPI
		}
		if err := repo.Create(ctx, &models.Token{UserID: "usr_1", TokenHash: hash, Type: tokenType}); err != nil {
			t.Fatalf("Failed to create token: %v", err)
		}
	}
	other := &models.Token{UserID: "usr_2", TokenHash: "c", Type: models.TokenTypeRefresh}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	if err := repo.RevokeAllForUser(ctx, "usr_1"); err != nil {
		t.Fatalf("Failed to revoke all: %v", err)
	}

	for _, hash := range []string{"a", "b"} {
		tokenType := models.TokenTypeRefresh
		if hash == "b" {
			tokenType = models.TokenTypeAPI
		}
		if fetched, _ := repo.GetByHashAndType(ctx, hash, tokenType); fetched != nil {
			t.Errorf("Token %s still active after bulk revoke", hash)
		}
	}

	// Other users are untouched.
	if fetched, _ := repo.GetByHashAndType(ctx, "c", models.TokenTypeRefresh); fetched == nil {
		t.Error("Bulk revoke touched another user's token")
	}
}

func TestTokenRepository_ListAPITokensByUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	api := &models.Token{UserID: "usr_1", TokenHash: "a", Type: models.TokenTypeAPI, Name: "ci"}
	if err := repo.Create(ctx, api); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	// Refresh tokens and revoked api tokens stay out of the listing.
	if err := repo.Create(ctx, &models.Token{UserID: "usr_1", TokenHash: "b", Type: models.TokenTypeRefresh}); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	revoked := &models.Token{UserID: "usr_1", TokenHash: "c", Type: models.TokenTypeAPI, Name: "old"}
	if err := repo.Create(ctx, revoked); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}
	if err := repo.Revoke(ctx, revoked.ID); err != nil {
		t.Fatalf("Failed to revoke token: %v", err)
	}

	tokens, err := repo.ListAPITokensByUser(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Failed to list tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("Expected 1 token, got %d", len(tokens))
	}
	if tokens[0].Name != "ci" {
		t.Errorf("Expected token ci, got %s", tokens[0].Name)
	}
}

func TestTokenRepository_TouchLastUsed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	token := &models.Token{UserID: "usr_1", TokenHash: "a", Type: models.TokenTypeAPI}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	at := time.Now().Unix()
	if err := repo.TouchLastUsed(ctx, token.ID, at); err != nil {
		t.Fatalf("Failed to touch token: %v", err)
	}

	fetched, err := repo.GetByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("Failed to get token: %v", err)
	}
	if fetched.LastUsedAt == nil || *fetched.LastUsedAt != at {
		t.Errorf("Expected last_used_at %d, got %v", at, fetched.LastUsedAt)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewTokenRepository(db)
	ctx := context.Background()

	now := time.Now().Unix()
	past := now - 3600
	future := now + 3600

	expired := &models.Token{UserID: "usr_1", TokenHash: "a", Type: models.TokenTypeRefresh, ExpiresAt: &past}
	live := &models.Token{UserID: "usr_1", TokenHash: "b", Type: models.TokenTypeRefresh, ExpiresAt: &future}
	forever := &models.Token{UserID: "usr_1", TokenHash: "c", Type: models.TokenTypeAPI}
	for _, token := range []*models.Token{expired, live, forever} {
		if err := repo.Create(ctx, token); err != nil {
			t.Fatalf("Failed to create token: %v", err)
		}
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("Failed to delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	if fetched, _ := repo.GetByID(ctx, expired.ID); fetched != nil {
		t.Error("Expired token survived the sweep")
	}
	if fetched, _ := repo.GetByID(ctx, live.ID); fetched == nil {
		t.Error("Live token was swept")
	}
	// No expiry means the sweep never touches it.
	if fetched, _ := repo.GetByID(ctx, forever.ID); fetched == nil {
		t.Error("Non-expiring token was swept")
	}
}
