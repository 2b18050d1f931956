package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/saarfitness/gymhub/internal/domain/payment"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPaymentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PaymentsRepo {
	return &PaymentsRepo{pool: pool, prom: prom}
}

func (r *PaymentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const paymentColumns = `id, member_id, amount, payment_date, method, status, COALESCE(description, ''), COALESCE(receipt_number, ''), created_at, updated_at`

func scanPayment(row pgx.Row) (payment.Payment, error) {
	var p payment.Payment
	var method, status string

	err := row.Scan(
		&p.ID, &p.MemberID, &p.Amount, &p.PaymentDate, &method, &status,
		&p.Description, &p.ReceiptNumber, &p.CreatedAt, &p.UpdatedAt,
	)

	p.Method = payment.Method(method)
	p.Status = payment.Status(status)

	return p, err
}

func (r *PaymentsRepo) Create(ctx context.Context, req payment.CreateRequest) (payment.Payment, error) {
	now := time.Now().UTC()

	method := payment.Method(req.Method)

	if method == "" {
		method = payment.MethodCash
	}

	p := payment.Payment{
		ID:            uuid.NewString(),
		MemberID:      req.MemberID,
		Amount:        req.Amount,
		PaymentDate:   now,
		Method:        method,
		Status:        payment.StatusCompleted,
		Description:   req.Description,
		ReceiptNumber: fmt.Sprintf("RCP-%s", now.Format("20060102-150405")),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.observe("payments.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO payments (id, member_id, amount, payment_date, method, status, description, receipt_number, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10)`,
			p.ID, p.MemberID, p.Amount, p.PaymentDate, string(p.Method), string(p.Status),
			p.Description, p.ReceiptNumber, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (r *PaymentsRepo) ListForMember(ctx context.Context, memberID string, limit, skip int) ([]payment.Payment, int, float64, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	var total int
	var totalPaid float64

	err := r.observe("payments.totals", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*),
			        COALESCE(SUM(amount) FILTER (WHERE status = $2), 0)
			 FROM payments WHERE member_id = $1`,
			memberID, string(payment.StatusCompleted),
		).Scan(&total, &totalPaid)
	})

	if err != nil {
		return nil, 0, 0, err
	}

	var rows pgx.Rows

	err = r.observe("payments.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT `+paymentColumns+` FROM payments
			 WHERE member_id = $1
			 ORDER BY payment_date DESC
			 LIMIT $2 OFFSET $3`,
			memberID, limit, skip,
		)
		return qerr
	})

	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	out := make([]payment.Payment, 0, limit)

	for rows.Next() {
		p, scanErr := scanPayment(rows)

		if scanErr != nil {
			return nil, 0, 0, scanErr
		}
		out = append(out, p)
	}

	return out, total, totalPaid, rows.Err()
}
