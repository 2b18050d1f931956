package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/domain/user"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersRepo is the credential store for one of the admin/staff partitions.
// The partition is fixed at construction: the pool it holds belongs to that
// partition's database, so a lookup can never cross into another store.
type UsersRepo struct {
	pool      *pgxpool.Pool
	partition auth.Partition
	prom      *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, partition auth.Partition, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, partition: partition, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Partition() auth.Partition { return r.partition }

const userColumns = `id, name, email, password_hash, role, COALESCE(notify_email, ''), is_active, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.NotifyEmail,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe(string(r.partition)+".users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe(string(r.partition)+".users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// Create inserts a credential record. The role column is stamped with the
// partition's role, never a caller-supplied one.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, notifyEmail string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         r.partition.Role(),
		NotifyEmail:  notifyEmail,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe(string(r.partition)+".users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, notify_email, is_active, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.NotifyEmail, u.IsActive, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var rows pgx.Rows
	var err error

	err = r.observe(string(r.partition)+".users.list", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY name ASC`,
		)
		return err
	})

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)

	for rows.Next() {
		u, scanErr := scanUser(rows)

		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *UsersRepo) UpdateFlags(ctx context.Context, id string, isActive *bool) (user.User, error) {
	if isActive == nil {
		return r.GetByID(ctx, id)
	}

	var u user.User
	var err error

	err = r.observe(string(r.partition)+".users.update_flags", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
			 SET is_active = $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, *isActive,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var err error

	err = r.observe(string(r.partition)+".users.delete", func() error {
		tag, execErr := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})

	return err
}

// Credential adapts the repo to auth.CredentialSource.
func (r *UsersRepo) Credential(ctx context.Context, email string) (auth.Credential, error) {
	u, err := r.GetByEmail(ctx, email)

	if err != nil {
		return auth.Credential{}, err
	}

	return auth.Credential{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.IsActive,
	}, nil
}
