package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// Connect opens a pgx pool and a database/sql handle sharing it. Stores work
// against the *sql.DB; the pool is kept for health checks and shutdown.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, *sql.DB, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse DATABASE_URL")
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect")
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// UniqueViolation reports whether err is a Postgres unique constraint
// violation and returns the constraint name.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
