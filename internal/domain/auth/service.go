package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type StoreAPI interface {
	FindAdminByEmail(ctx context.Context, email string) (Admin, error)
	UpdateLastLogin(ctx context.Context, adminID string) error
}

type Service struct {
	Store    StoreAPI
	Secret   string
	TokenTTL time.Duration
}

func NewService(store StoreAPI, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{Store: store, Secret: secret, TokenTTL: ttl}
}

// Login checks the admin's password and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	admin, err := s.Store.FindAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", Admin{}, ErrInvalidCredentials
		}
		return "", Admin{}, err
	}
	if err := CheckPassword(admin.Password, password); err != nil {
		return "", Admin{}, ErrInvalidCredentials
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: admin.ID, Email: admin.Email, RoleName: admin.RoleName}, s.TokenTTL)
	if err != nil {
		return "", Admin{}, err
	}
	if err := s.Store.UpdateLastLogin(ctx, admin.ID); err != nil {
		return "", Admin{}, err
	}
	admin.Password = ""
	return token, admin, nil
}
