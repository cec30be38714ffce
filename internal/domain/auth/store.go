package auth

import (
	"context"
	"database/sql"
)

type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

type Admin struct {
	ID       string
	Email    string
	RoleName string
	Password string
}

func (s *Store) FindAdminByEmail(ctx context.Context, email string) (Admin, error) {
	var out Admin
	err := s.DB.QueryRowContext(ctx, `
    SELECT id, email, role, password_hash
    FROM admins
    WHERE email = $1
  `, email).Scan(&out.ID, &out.Email, &out.RoleName, &out.Password)
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, adminID string) error {
	_, err := s.DB.ExecContext(ctx, "UPDATE admins SET last_login_at = now() WHERE id = $1", adminID)
	return err
}

func (s *Store) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
    SELECT COUNT(1)
    FROM role_permissions
    WHERE role = $1 AND permission = $2
  `, role, permission).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
