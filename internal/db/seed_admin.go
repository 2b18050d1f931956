package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser bootstraps the admin partition with one account so a fresh
// deployment is reachable. No-op when seed vars are unset or the account
// already exists.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// stored lowercased, same as every create path
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, is_active, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,'admin',TRUE,$5,$6)`,
		uuid.NewString(), email, hash, cfg.AdminName, now, now,
	)

	return err
}
