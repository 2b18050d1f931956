package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/saarfitness/gymhub/internal/domain/member"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewMembersRepo(pool *pgxpool.Pool, prom *observability.Prom) *MembersRepo {
	return &MembersRepo{pool: pool, prom: prom}
}

func (r *MembersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const memberColumns = `id, name, COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(phone_number, ''),
	COALESCE(age, 0), COALESCE(gender, ''), COALESCE(plan_type, ''),
	COALESCE(height_cm, 0), COALESCE(weight_kg, 0), COALESCE(bmi, 0),
	subscription_months, start_date, end_date, status, payment_status,
	COALESCE(photo_key, ''), COALESCE(created_by_id, ''), is_active, created_at, updated_at`

func scanMember(row pgx.Row) (member.Member, error) {
	var m member.Member
	var status, payStatus string

	err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.PhoneNumber,
		&m.Age, &m.Gender, &m.PlanType,
		&m.HeightCm, &m.WeightKg, &m.BMI,
		&m.SubscriptionMonths, &m.StartDate, &m.EndDate, &status, &payStatus,
		&m.PhotoKey, &m.CreatedByID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)

	m.Status = member.Status(status)
	m.PaymentStatus = member.PaymentStatus(payStatus)

	return m, err
}

func (r *MembersRepo) Create(ctx context.Context, m member.Member) (member.Member, error) {
	now := time.Now().UTC()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	err := r.observe("members.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO members (
				id, name, email, password_hash, phone_number,
				age, gender, plan_type, height_cm, weight_kg, bmi,
				subscription_months, start_date, end_date, status, payment_status,
				photo_key, created_by_id, is_active, created_at, updated_at
			) VALUES (
				$1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''),
				NULLIF($6,0), NULLIF($7,''), NULLIF($8,''), NULLIF($9,0), NULLIF($10,0), NULLIF($11,0),
				$12, $13, $14, $15, $16,
				NULLIF($17,''), NULLIF($18,''), $19, $20, $21
			)`,
			m.ID, m.Name, m.Email, m.PasswordHash, m.PhoneNumber,
			m.Age, m.Gender, m.PlanType, m.HeightCm, m.WeightKg, m.BMI,
			m.SubscriptionMonths, m.StartDate, m.EndDate, string(m.Status), string(m.PaymentStatus),
			m.PhotoKey, m.CreatedByID, m.IsActive, m.CreatedAt, m.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return member.Member{}, ErrEmailAlreadyUsed
		}
		return member.Member{}, err
	}

	return m, nil
}

func (r *MembersRepo) GetByID(ctx context.Context, id string) (member.Member, error) {
	var m member.Member
	var err error

	err = r.observe("members.get_by_id", func() error {
		m, err = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, err
	}
	return m, nil
}

func (r *MembersRepo) GetByEmail(ctx context.Context, email string) (member.Member, error) {
	var m member.Member
	var err error

	err = r.observe("members.get_by_email", func() error {
		m, err = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE email = $1`, email))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, err
	}
	return m, nil
}

func (r *MembersRepo) List(ctx context.Context, filter member.ListFilter) ([]member.Member, error) {
	limit := filter.Limit

	if limit <= 0 || limit > 500 {
		limit = 500
	}

	order := "name ASC"

	switch filter.Sort {
	case "startDate":
		order = "start_date DESC"
	case "endDate":
		order = "end_date ASC"
	}

	q := `SELECT ` + memberColumns + ` FROM members`
	args := []any{}

	if filter.Query != "" {
		q += ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, filter.Query)
	}

	q += ` ORDER BY ` + order

	if len(args) == 0 {
		q += ` LIMIT $1`
	} else {
		q += ` LIMIT $2`
	}
	args = append(args, limit)

	var rows pgx.Rows
	var err error

	err = r.observe("members.list", func() error {
		rows, err = r.pool.Query(ctx, q, args...)
		return err
	})

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]member.Member, 0)

	for rows.Next() {
		m, scanErr := scanMember(rows)

		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

// Update applies a partial update; nil fields are untouched. BMI is the
// caller's job to recompute when measurements change.
func (r *MembersRepo) Update(ctx context.Context, id string, req member.UpdateRequest, bmi *float64) (member.Member, error) {
	var m member.Member
	var err error

	err = r.observe("members.update", func() error {
		m, err = scanMember(r.pool.QueryRow(ctx,
			`UPDATE members SET
				plan_type      = COALESCE($2, plan_type),
				height_cm      = COALESCE($3, height_cm),
				weight_kg      = COALESCE($4, weight_kg),
				bmi            = COALESCE($5, bmi),
				payment_status = COALESCE($6, payment_status),
				status         = COALESCE($7, status),
				updated_at     = NOW()
			 WHERE id = $1
			 RETURNING `+memberColumns,
			id, req.PlanType, req.HeightCm, req.WeightKg, bmi, req.PaymentStatus, req.Status,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member.Member{}, member.ErrNotFound
		}
		return member.Member{}, err
	}
	return m, nil
}

func (r *MembersRepo) Delete(ctx context.Context, id string) error {
	return r.observe("members.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)

		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return member.ErrNotFound
		}
		return nil
	})
}

// FindExpired returns members whose window has closed but whose status has
// not caught up yet. The expiry-check operation feeds on this.
func (r *MembersRepo) FindExpired(ctx context.Context, now time.Time) ([]member.Member, error) {
	var rows pgx.Rows
	var err error

	err = r.observe("members.find_expired", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+memberColumns+` FROM members
			 WHERE end_date < $1 AND status <> $2`,
			now, string(member.StatusExpired),
		)
		return err
	})

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]member.Member, 0)

	for rows.Next() {
		m, scanErr := scanMember(rows)

		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

// MarkExpired flips the given members to expired in one statement.
func (r *MembersRepo) MarkExpired(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var affected int64

	err := r.observe("members.mark_expired", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE members SET status = $1, updated_at = NOW() WHERE id = ANY($2)`,
			string(member.StatusExpired), ids,
		)

		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})

	return affected, err
}

// Credential adapts the member partition to auth.CredentialSource. Members
// without a password hash never authenticate.
func (r *MembersRepo) Credential(ctx context.Context, email string) (auth.Credential, error) {
	m, err := r.GetByEmail(ctx, email)

	if err != nil {
		return auth.Credential{}, err
	}

	return auth.Credential{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Active:       m.IsActive,
	}, nil
}
