package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "punchcard/internal/api/context"
	"punchcard/internal/pkg/errors"
	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/models"
)

// Principal is the authenticated identity attached to a request. It is
// rebuilt per request from a verified access token or an API token lookup,
// never persisted.
type Principal struct {
	UserID         string
	Email          string
	OrganizationID string
	Role           string
}

func (p *Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// PrincipalFrom retrieves the authenticated identity from the context.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(apiContext.Principal).(*Principal)
	return principal, ok
}

type AuthMiddleware struct {
	codec  *auth.Codec
	users  auth.UserDirectory
	tokens auth.TokenStore
	now    func() time.Time
}

func NewAuthMiddleware(codec *auth.Codec, users auth.UserDirectory, tokens auth.TokenStore) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, users: users, tokens: tokens, now: time.Now}
}

// Handle authenticates the request. Access-token verification is tried
// first; on any verification failure the bearer value is treated as an
// opaque API token and looked up by hash. Either path ends with a user
// lookup so a deactivated account is rejected even while its tokens are
// cryptographically or store-wise valid.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearer(r)
		if !ok {
			errors.Write(w, errors.ErrUnauthorized)
			return
		}

		if claims, err := m.codec.VerifyAccess(token); err == nil {
			m.withVerifiedClaims(w, r, next, claims)
			return
		}

		m.withAPIToken(w, r, next, token)
	}
}

func (m *AuthMiddleware) withVerifiedClaims(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, claims *auth.Claims) {
	user, err := m.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("authentication: user lookup failed")
		errors.Write(w, errors.ErrInternal)
		return
	}
	if user == nil || user.Deactivated {
		errors.Write(w, errors.ErrUserNotFound)
		return
	}

	m.attach(w, r, next, user)
}

func (m *AuthMiddleware) withAPIToken(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, token string) {
	record, err := m.tokens.GetByHashAndType(r.Context(), auth.HashToken(token), models.TokenTypeAPI)
	if err != nil {
		log.Error().Err(err).Msg("authentication: api token lookup failed")
		errors.Write(w, errors.ErrInternal)
		return
	}
	if record == nil {
		errors.Write(w, errors.ErrInvalidAccessToken)
		return
	}
	if record.Expired(m.now().Unix()) {
		errors.Write(w, errors.ErrTokenExpired)
		return
	}

	// Best effort; the request does not wait on it.
	go func(id string, at int64) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.tokens.TouchLastUsed(ctx, id, at); err != nil {
			log.Debug().Err(err).Str("token_id", id).Msg("failed to touch api token")
		}
	}(record.ID, m.now().Unix())

	user, err := m.users.GetByID(r.Context(), record.UserID)
	if err != nil {
		log.Error().Err(err).Msg("authentication: user lookup failed")
		errors.Write(w, errors.ErrInternal)
		return
	}
	if user == nil || user.Deactivated {
		errors.Write(w, errors.ErrUserNotFound)
		return
	}

	m.attach(w, r, next, user)
}

func (m *AuthMiddleware) attach(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, user *models.User) {
	principal := &Principal{
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}
	ctx := context.WithValue(r.Context(), apiContext.Principal, principal)
	next(w, r.WithContext(ctx))
}

func extractBearer(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireAdmin rejects non-admin principals. Pure predicate over the
// attached Principal, no I/O.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			errors.Write(w, errors.ErrUnauthorized)
			return
		}
		if !principal.IsAdmin() {
			errors.Write(w, errors.ErrForbidden)
			return
		}
		next(w, r)
	}
}

// RequireSameOrganization rejects requests whose route or query parameter
// names an organization other than the principal's.
func RequireSameOrganization(param string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				errors.Write(w, errors.ErrUnauthorized)
				return
			}

			requested := ""
			if params, ok := r.Context().Value(apiContext.Params).(httprouter.Params); ok {
				requested = params.ByName(param)
			}
			if requested == "" {
				requested = r.URL.Query().Get(param)
			}

			if requested != "" && requested != principal.OrganizationID {
				errors.Write(w, errors.ErrForbidden)
				return
			}
			next(w, r)
		}
	}
}
