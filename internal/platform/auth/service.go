package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	errs "punchcard/internal/pkg/errors"
	"punchcard/internal/platform/models"
)

// Service orchestrates login, refresh, logout, API token issuance and
// invitation completion. It holds no mutable state of its own; everything
// lives in the TokenStore and the UserDirectory.
type Service struct {
	codec    *Codec
	users    UserDirectory
	tokens   TokenStore
	rotation bool
	now      func() time.Time
}

func NewService(codec *Codec, users UserDirectory, tokens TokenStore, rotation bool) *Service {
	return &Service{
		codec:    codec,
		users:    users,
		tokens:   tokens,
		rotation: rotation,
		now:      time.Now,
	}
}

type LoginResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

type APITokenResult struct {
	Token     string `json:"token"`
	Name      string `json:"name"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
	Message   string `json:"message"`
}

// Login authenticates an email/password pair and issues a token pair. An
// unknown email and a wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.internal("login: user lookup", err)
	}
	if user == nil {
		return nil, errs.ErrInvalidCredentials
	}
	if user.Deactivated {
		return nil, errs.ErrAccountDeactivated
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, errs.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().Unix()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
	}

	log.Info().Str("user_id", user.ID).Str("org_id", user.OrganizationID).Msg("user logged in")

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, nil
}

// IssueTokens signs an access/refresh pair for the user and persists the
// refresh record keyed by the hash of the refresh token.
func (s *Service) IssueTokens(ctx context.Context, user *models.User) (accessToken, refreshToken string, err error) {
	accessToken, err = s.codec.SignAccess(user.ID, user.Email, user.OrganizationID, user.Role)
	if err != nil {
		return "", "", s.internal("sign access token", err)
	}
	refreshToken, err = s.codec.SignRefresh(user.ID, user.Email, user.OrganizationID, user.Role)
	if err != nil {
		return "", "", s.internal("sign refresh token", err)
	}

	expiresAt := s.now().Add(s.codec.RefreshTTL()).Unix()
	record := &models.Token{
		UserID:    user.ID,
		TokenHash: HashToken(refreshToken),
		Type:      models.TokenTypeRefresh,
		ExpiresAt: &expiresAt,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateHash) {
			return "", "", errs.ErrConflict
		}
		return "", "", s.internal("persist refresh token", err)
	}
	return accessToken, refreshToken, nil
}

// Refresh exchanges a valid refresh token for a new access token. When
// rotation is enabled the old record is revoked first and a new refresh
// token is returned; a crash between the two steps forces re-login.
func (s *Service) Refresh(ctx context.Context, refreshTokenString string) (*RefreshResult, error) {
	claims, err := s.codec.VerifyRefresh(refreshTokenString)
	if err != nil {
		return nil, errs.ErrInvalidRefreshToken
	}

	record, err := s.tokens.GetByHashAndType(ctx, HashToken(refreshTokenString), models.TokenTypeRefresh)
	if err != nil {
		return nil, s.internal("refresh: token lookup", err)
	}
	if record == nil {
		return nil, errs.ErrRefreshTokenNotFound
	}
	if record.Expired(s.now().Unix()) {
		return nil, errs.ErrRefreshTokenExpired
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, s.internal("refresh: user lookup", err)
	}
	if user == nil || user.Deactivated {
		return nil, errs.ErrUserNotFound
	}

	accessToken, err := s.codec.SignAccess(user.ID, user.Email, user.OrganizationID, user.Role)
	if err != nil {
		return nil, s.internal("sign access token", err)
	}

	result := &RefreshResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.codec.AccessTTL().Seconds()),
	}

	if !s.rotation {
		return result, nil
	}

	// Revoke-then-create: the old token must be dead before the new chain
	// exists, even if that leaves a re-login hole on crash.
	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return nil, s.internal("refresh: revoke old token", err)
	}

	newRefreshToken, err := s.codec.SignRefresh(user.ID, user.Email, user.OrganizationID, user.Role)
	if err != nil {
		return nil, s.internal("sign refresh token", err)
	}
	expiresAt := s.now().Add(s.codec.RefreshTTL()).Unix()
	if err := s.tokens.Create(ctx, &models.Token{
		UserID:    user.ID,
		TokenHash: HashToken(newRefreshToken),
		Type:      models.TokenTypeRefresh,
		ExpiresAt: &expiresAt,
	}); err != nil {
		return nil, s.internal("refresh: persist rotated token", err)
	}

	result.RefreshToken = newRefreshToken
	return result, nil
}

// Logout revokes the refresh token's record if one exists. Unknown or
// already revoked tokens are a no-op, so the call is idempotent.
func (s *Service) Logout(ctx context.Context, refreshTokenString string) error {
	record, err := s.tokens.GetByHashAndType(ctx, HashToken(refreshTokenString), models.TokenTypeRefresh)
	if err != nil {
		return s.internal("logout: token lookup", err)
	}
	if record == nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return s.internal("logout: revoke token", err)
	}
	log.Info().Str("user_id", record.UserID).Msg("user logged out")
	return nil
}

// CreateAPIToken mints an opaque API token for the user. The cleartext is
// returned exactly once; only its hash is stored. An empty or "never"
// expiresIn means the token does not expire.
func (s *Service) CreateAPIToken(ctx context.Context, userID, name, expiresIn string) (*APITokenResult, error) {
	cleartext, err := GenerateOpaqueToken()
	if err != nil {
		return nil, s.internal("generate api token", err)
	}

	var expiresAt *int64
	if expiresIn != "" && expiresIn != "never" {
		window, err := ParseExpiry(expiresIn)
		if err != nil {
			return nil, errs.ErrInvalidExpiresIn
		}
		at := s.now().Add(window).Unix()
		expiresAt = &at
	}

	record := &models.Token{
		UserID:    userID,
		TokenHash: HashToken(cleartext),
		Type:      models.TokenTypeAPI,
		Name:      name,
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateHash) {
			return nil, errs.ErrConflict
		}
		return nil, s.internal("persist api token", err)
	}

	log.Info().Str("user_id", userID).Str("name", name).Msg("api token created")

	return &APITokenResult{
		Token:     cleartext,
		Name:      name,
		ExpiresAt: expiresAt,
		Message:   "Store this token securely. You will not be able to see it again.",
	}, nil
}

// ListAPITokens returns the user's active API token records. The hash field
// never serializes, so the cleartext is unrecoverable even by the owner.
func (s *Service) ListAPITokens(ctx context.Context, userID string) ([]*models.Token, error) {
	tokens, err := s.tokens.ListAPITokensByUser(ctx, userID)
	if err != nil {
		return nil, s.internal("list api tokens", err)
	}
	return tokens, nil
}

// RevokeAPIToken revokes one of the user's API tokens by record id. The
// record must belong to the calling user.
func (s *Service) RevokeAPIToken(ctx context.Context, userID, tokenID string) error {
	record, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return s.internal("revoke api token: lookup", err)
	}
	if record == nil || record.UserID != userID || record.Type != models.TokenTypeAPI {
		return errs.ErrTokenNotFound
	}
	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return s.internal("revoke api token", err)
	}
	log.Info().Str("user_id", userID).Str("name", record.Name).Msg("api token revoked")
	return nil
}

// CompleteInvitation consumes a one-time invitation token: it sets the
// target user's password and revokes the invitation record.
func (s *Service) CompleteInvitation(ctx context.Context, invitationToken, password string) (*models.User, error) {
	record, err := s.tokens.GetByHashAndType(ctx, HashToken(invitationToken), models.TokenTypeInvitation)
	if err != nil {
		return nil, s.internal("invitation: token lookup", err)
	}
	if record == nil {
		return nil, errs.ErrInvalidInvitationToken
	}
	if record.Expired(s.now().Unix()) {
		return nil, errs.ErrInvitationTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, s.internal("invitation: user lookup", err)
	}
	if user == nil {
		return nil, errs.ErrUserNotFound
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, s.internal("invitation: hash password", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, passwordHash); err != nil {
		return nil, s.internal("invitation: set password", err)
	}
	user.PasswordHash = passwordHash

	// Single use: consuming the invitation revokes it.
	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return nil, s.internal("invitation: revoke token", err)
	}

	log.Info().Str("user_id", user.ID).Msg("account setup completed")
	return user, nil
}

// AccessTTLSeconds reports the configured access token lifetime, as
// returned in login and refresh responses.
func (s *Service) AccessTTLSeconds() int64 {
	return int64(s.codec.AccessTTL().Seconds())
}

func (s *Service) internal(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("auth service internal error")
	return errs.ErrInternal
}
