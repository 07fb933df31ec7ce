package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"punchcard/internal/platform/config"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenKind   = errors.New("wrong token kind")
	ErrMissingJWTSecret = errors.New("jwt secrets must be configured")
)

type Claims struct {
	UserID         string    `json:"uid"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"oid"`
	Role           string    `json:"role"`
	TokenKind      TokenKind `json:"knd"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access and refresh claim bundles. Access and
// refresh tokens use separate secrets, so one can never verify as the other
// even before the kind tag is checked.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	if cfg.Secret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	accessTTL, err := ParseExpiry(cfg.AccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("access expiry: %w", err)
	}
	refreshTTL, err := ParseExpiry(cfg.RefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("refresh expiry: %w", err)
	}

	return &Codec{
		accessSecret:  []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) SignAccess(userID, email, orgID, role string) (string, error) {
	return c.sign(userID, email, orgID, role, TokenKindAccess, c.accessSecret, c.accessTTL)
}

func (c *Codec) SignRefresh(userID, email, orgID, role string) (string, error) {
	return c.sign(userID, email, orgID, role, TokenKindRefresh, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) sign(userID, email, orgID, role string, kind TokenKind, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		UserID:         userID,
		Email:          email,
		OrganizationID: orgID,
		Role:           role,
		TokenKind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps same-second issuances distinct; refresh tokens
			// are stored by hash under a UNIQUE constraint.
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "punchcard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return c.verify(tokenString, c.accessSecret, TokenKindAccess)
}

func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return c.verify(tokenString, c.refreshSecret, TokenKindRefresh)
}

func (c *Codec) verify(tokenString string, secret []byte, kind TokenKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenKind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}

// DecodeUnsafe decodes claims without verifying the signature or expiry.
// Diagnostics only; never an input to an authorization decision.
func (c *Codec) DecodeUnsafe(tokenString string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}
