package models

const (
	RolePersonal = "personal"
	RoleAdmin    = "admin"
)

type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type User struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Role           string `json:"role"`
	Deactivated    bool   `json:"deactivated"`
	InvitedAt      *int64 `json:"invited_at,omitempty"`
	LastLoginAt    *int64 `json:"last_login_at,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}
