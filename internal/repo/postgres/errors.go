package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailAlreadyUsed maps the per-partition unique index on email. The same
// address living in a different partition is a different identity and never
// trips this.
var ErrEmailAlreadyUsed = errors.New("email already in use")

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
