package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/models"
)

// TokenRepository is the durable TokenStore. The token_hash column carries a
// UNIQUE constraint, which is the collision backstop for opaque tokens.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const tokenColumns = `id, user_id, token_hash, type, name, expires_at, revoked, last_used_at, created_at, updated_at`

func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	if token.ID == "" {
		token.ID = "tok_" + uuid.NewString()
	}
	now := time.Now().Unix()
	token.CreatedAt = now
	token.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, token_hash, type, name, expires_at, revoked, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, token.ID, token.UserID, token.TokenHash, token.Type, token.Name, token.ExpiresAt, token.Revoked, token.LastUsedAt, token.CreatedAt, token.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return auth.ErrDuplicateHash
		}
		return err
	}
	return nil
}

func (r *TokenRepository) scanToken(row *sql.Row) (*models.Token, error) {
	token := &models.Token{}
	err := row.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Type, &token.Name,
		&token.ExpiresAt, &token.Revoked, &token.LastUsedAt, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// GetByHashAndType returns the non-revoked record for the hash, or nil.
func (r *TokenRepository) GetByHashAndType(ctx context.Context, hash, tokenType string) (*models.Token, error) {
	return r.scanToken(r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE token_hash = ? AND type = ? AND revoked = 0
	`, hash, tokenType))
}

func (r *TokenRepository) GetByID(ctx context.Context, id string) (*models.Token, error) {
	return r.scanToken(r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens WHERE id = ?
	`, id))
}

func (r *TokenRepository) ListAPITokensByUser(ctx context.Context, userID string) ([]*models.Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tokenColumns+` FROM tokens
		WHERE user_id = ? AND type = ? AND revoked = 0
		ORDER BY created_at DESC
	`, userID, models.TokenTypeAPI)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*models.Token
	for rows.Next() {
		token := &models.Token{}
		if err := rows.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.Type, &token.Name,
			&token.ExpiresAt, &token.Revoked, &token.LastUsedAt, &token.CreatedAt, &token.UpdatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Revoke flips the revoked flag. The revoked = 0 guard keeps the update
// conditional so a concurrent revoke cannot resurrect a row.
func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = 1, updated_at = ? WHERE id = ? AND revoked = 0
	`, time.Now().Unix(), id)
	return err
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = 1, updated_at = ? WHERE user_id = ? AND revoked = 0
	`, time.Now().Unix(), userID)
	return err
}

func (r *TokenRepository) TouchLastUsed(ctx context.Context, id string, at int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET last_used_at = ? WHERE id = ?
	`, at, id)
	return err
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tokens WHERE expires_at IS NOT NULL AND expires_at < ?
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
