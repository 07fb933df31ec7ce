package auth

import (
	"context"
	"errors"

	"punchcard/internal/platform/models"
)

// ErrDuplicateHash is returned by TokenStore.Create when the token hash
// collides with an existing record. Callers surface it as a conflict and
// do not retry.
var ErrDuplicateHash = errors.New("token hash already exists")

// UserDirectory is the narrow slice of the user store the auth core needs.
// Lookups return (nil, nil) when no row matches.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at int64) error
}

// TokenStore persists refresh, API and invitation token records, keyed by
// the hash of the cleartext. Mutations are single-record flag flips.
type TokenStore interface {
	Create(ctx context.Context, token *models.Token) error
	GetByHashAndType(ctx context.Context, hash, tokenType string) (*models.Token, error)
	GetByID(ctx context.Context, id string) (*models.Token, error)
	ListAPITokensByUser(ctx context.Context, userID string) ([]*models.Token, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	TouchLastUsed(ctx context.Context, id string, at int64) error
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}
