package db

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/ids"
)

// Seed loads the permission catalogue and role grants, then creates the
// bootstrap admin when credentials are configured. It is idempotent.
func Seed(ctx context.Context, db *sql.DB, adminEmail, adminPassword string) error {
	if err := ensurePermissions(ctx, db); err != nil {
		return err
	}
	if err := ensureRolePermissions(ctx, db); err != nil {
		return err
	}
	return ensureAdmin(ctx, db, adminEmail, adminPassword)
}

func ensurePermissions(ctx context.Context, db *sql.DB) error {
	for _, perm := range auth.DefaultPermissions {
		if _, err := db.ExecContext(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return errors.Wrapf(err, "seed permission %s", perm)
		}
	}
	return nil
}

func ensureRolePermissions(ctx context.Context, db *sql.DB) error {
	roles := make([]string, 0, len(auth.RolePermissions))
	for role := range auth.RolePermissions {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		for _, perm := range auth.RolePermissions[role] {
			_, err := db.ExecContext(ctx, "INSERT INTO role_permissions (role, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING", role, perm)
			if err != nil {
				return errors.Wrapf(err, "grant %s to %s", perm, role)
			}
		}
	}
	return nil
}

func ensureAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := db.QueryRowContext(ctx, "SELECT id FROM admins WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "INSERT INTO admins (id, email, password_hash, role) VALUES ($1, $2, $3, $4)", ids.New(), email, hash, auth.RoleAdmin)
	return errors.Wrap(err, "seed admin")
}
