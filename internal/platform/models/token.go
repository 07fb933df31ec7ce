package models

const (
	TokenTypeRefresh    = "refresh"
	TokenTypeAPI        = "api"
	TokenTypeInvitation = "invitation"
)

// Token is a persisted token record. TokenHash always holds the SHA-256 hex
// digest of the cleartext, never the cleartext itself, for refresh, API and
// invitation tokens alike.
type Token struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TokenHash  string `json:"-"`
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
	Revoked    bool   `json:"revoked"`
	LastUsedAt *int64 `json:"last_used_at,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

func (t *Token) Expired(now int64) bool {
	return t.ExpiresAt != nil && *t.ExpiresAt < now
}
