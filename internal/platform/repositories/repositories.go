package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/platform/models"
)

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = "org_" + uuid.NewString()
	}
	now := time.Now().Unix()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, org.ID, org.Name, org.CreatedAt, org.UpdatedAt)
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM organizations WHERE id = ?
	`, id).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, organization_id, name, email, password_hash, role, deactivated, invited_at, last_login_at, created_at, updated_at`

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.OrganizationID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.Deactivated, &user.InvitedAt, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "usr_" + uuid.NewString()
	}
	now := time.Now().Unix()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, organization_id, name, email, password_hash, role, deactivated, invited_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.OrganizationID, user.Name, user.Email, user.PasswordHash, user.Role, user.Deactivated, user.InvitedAt, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?
	`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = ?
	`, email))
}

func (r *UserRepository) GetByIDAndOrg(ctx context.Context, id, orgID string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ? AND organization_id = ?
	`, id, orgID))
}

func (r *UserRepository) ListByOrg(ctx context.Context, orgID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE organization_id = ? ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.OrganizationID, &user.Name, &user.Email, &user.PasswordHash,
			&user.Role, &user.Deactivated, &user.InvitedAt, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, passwordHash, time.Now().Unix(), id)
	return err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_at = ? WHERE id = ?
	`, at, id)
	return err
}

func (r *UserRepository) SetDeactivated(ctx context.Context, id string, deactivated bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET deactivated = ?, updated_at = ? WHERE id = ?
	`, deactivated, time.Now().Unix(), id)
	return err
}
