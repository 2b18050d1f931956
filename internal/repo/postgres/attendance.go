package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/saarfitness/gymhub/internal/domain/attendance"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AttendanceRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAttendanceRepo(pool *pgxpool.Pool, prom *observability.Prom) *AttendanceRepo {
	return &AttendanceRepo{pool: pool, prom: prom}
}

func (r *AttendanceRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const attendanceColumns = `id, member_id, check_in_time, check_out_time, date, COALESCE(notes, ''), created_at, updated_at`

func scanAttendance(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record

	err := row.Scan(
		&rec.ID, &rec.MemberID, &rec.CheckInTime, &rec.CheckOutTime,
		&rec.Date, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)

	return rec, err
}

func (r *AttendanceRepo) CheckIn(ctx context.Context, memberID, notes string) (attendance.Record, error) {
	now := time.Now().UTC()

	rec := attendance.Record{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		CheckInTime: now,
		Date:        now.Truncate(24 * time.Hour),
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.observe("attendance.check_in", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO attendance (id, member_id, check_in_time, check_out_time, date, notes, created_at, updated_at)
			 VALUES ($1,$2,$3,NULL,$4,NULLIF($5,''),$6,$7)`,
			rec.ID, rec.MemberID, rec.CheckInTime, rec.Date, rec.Notes, rec.CreatedAt, rec.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return attendance.Record{}, err
	}
	return rec, nil
}

// CheckOut closes the most recent open record for the member.
func (r *AttendanceRepo) CheckOut(ctx context.Context, memberID string) (attendance.Record, error) {
	var rec attendance.Record
	var err error

	err = r.observe("attendance.check_out", func() error {
		rec, err = scanAttendance(r.pool.QueryRow(ctx,
			`UPDATE attendance
			 SET check_out_time = NOW(), updated_at = NOW()
			 WHERE id = (
				SELECT id FROM attendance
				WHERE member_id = $1 AND check_out_time IS NULL
				ORDER BY check_in_time DESC
				LIMIT 1
			 )
			 RETURNING `+attendanceColumns,
			memberID,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, err
	}
	return rec, nil
}

func (r *AttendanceRepo) ListForMember(ctx context.Context, memberID string, limit, skip int) ([]attendance.Record, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	var total int

	err := r.observe("attendance.count", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM attendance WHERE member_id = $1`, memberID,
		).Scan(&total)
	})

	if err != nil {
		return nil, 0, err
	}

	var rows pgx.Rows

	err = r.observe("attendance.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT `+attendanceColumns+` FROM attendance
			 WHERE member_id = $1
			 ORDER BY date DESC, check_in_time DESC
			 LIMIT $2 OFFSET $3`,
			memberID, limit, skip,
		)
		return qerr
	})

	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]attendance.Record, 0, limit)

	for rows.Next() {
		rec, scanErr := scanAttendance(rows)

		if scanErr != nil {
			return nil, 0, scanErr
		}
		out = append(out, rec)
	}

	return out, total, rows.Err()
}
