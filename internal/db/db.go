package db

import (
	"context"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Partitions holds one pool per credential partition. Handlers and repos get
// these injected, nothing reaches for a package-level connection.
type Partitions struct {
	Admin  *pgxpool.Pool
	Staff  *pgxpool.Pool
	Member *pgxpool.Pool
}

func NewPool(dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Open connects all three partitions. On any failure the pools opened so far
// are closed before returning, so callers never hold a half-open set.
func Open(cfg config.Config) (Partitions, error) {
	var p Partitions
	var err error

	p.Admin, err = NewPool(cfg.AdminDBURL)

	if err != nil {
		return Partitions{}, err
	}

	p.Staff, err = NewPool(cfg.StaffDBURL)

	if err != nil {
		p.Admin.Close()
		return Partitions{}, err
	}

	p.Member, err = NewPool(cfg.MemberDBURL)

	if err != nil {
		p.Admin.Close()
		p.Staff.Close()
		return Partitions{}, err
	}

	return p, nil
}

func (p Partitions) Close() {
	if p.Admin != nil {
		p.Admin.Close()
	}
	if p.Staff != nil {
		p.Staff.Close()
	}
	if p.Member != nil {
		p.Member.Close()
	}
}

// Ping checks every partition, first failure wins.
func (p Partitions) Ping(ctx context.Context) error {
	for _, pool := range []*pgxpool.Pool{p.Admin, p.Staff, p.Member} {
		if pool == nil {
			continue
		}

		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}

	return nil
}
