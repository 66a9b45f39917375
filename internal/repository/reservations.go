package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/formaplus/internal/model"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const reservationColumns = `id, user_id, slug, destination, trip_start, trip_end, trip_duration,
	budget, form_data, status, created_at, updated_at`

// CreateReservation сохраняет новую заявку.
func (r *PostgresRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reservations (id, user_id, slug, destination, trip_start, trip_end, trip_duration,
			budget, form_data, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		res.ID, res.UserID, res.Slug, res.Destination, res.TripStart, res.TripEnd, res.TripDuration,
		res.Budget, res.FormData, string(res.Status), res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetReservation возвращает заявку вместе с платежами.
func (r *PostgresRepository) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`,
		id,
	)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	payments, err := getPayments(ctx, r.pool, []string{res.ID})
	if err != nil {
		return nil, err
	}
	res.Payments = payments[res.ID]

	return res, nil
}

// GetReservationsByUser возвращает заявки пользователя, новые первыми, вместе с платежами.
func (r *PostgresRepository) GetReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	defer rows.Close()

	var res []model.Reservation
	for rows.Next() {
		item, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res = append(res, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(res) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(res))
	for _, item := range res {
		ids = append(ids, item.ID)
	}

	payments, err := getPayments(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Payments = payments[res[i].ID]
	}

	return res, nil
}

// RecordPayment сохраняет подтверждённый платёж и переводит заявку в статус PAID.
// Проверка статуса, вставка платежа и обновление заявки выполняются в одной транзакции
// под блокировкой строки заявки. Бюджет заполняется значением budget, только если он был пуст.
func (r *PostgresRepository) RecordPayment(ctx context.Context, p *model.Payment, budget string) (*model.Reservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку заявки, чтобы параллельные оплаты не создали два платежа.
	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM reservations WHERE id = $1 FOR UPDATE`,
		p.ReservationID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock reservation for update: %w", err)
	}

	if model.ReservationStatus(status) == model.ReservationStatusPaid {
		return nil, ErrAlreadyPaid
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reservation_payments (id, reservation_id, method, amount_cents, currency, status,
			paid_at, receipt_code, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ReservationID, string(p.Method), p.AmountCents, p.Currency, string(p.Status),
		p.PaidAt, p.ReceiptCode, p.Details, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateReceiptCode
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	// Заявку с платежами читаем внутри транзакции.
	res, err := scanReservation(tx.QueryRow(ctx,
		`UPDATE reservations
		 SET status = $2, budget = COALESCE(budget, $3), updated_at = $4
		 WHERE id = $1
		 RETURNING `+reservationColumns,
		p.ReservationID, string(model.ReservationStatusPaid), budget, p.PaidAt,
	))
	if err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	payments, err := getPayments(ctx, tx, []string{res.ID})
	if err != nil {
		return nil, err
	}
	res.Payments = payments[res.ID]

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return res, nil
}

func getPayments(ctx context.Context, q querier, reservationIDs []string) (map[string][]model.Payment, error) {
	rows, err := q.Query(ctx,
		`SELECT id, reservation_id, method, amount_cents, currency, status, paid_at, receipt_code, details, created_at
		 FROM reservation_payments
		 WHERE reservation_id = ANY($1)
		 ORDER BY paid_at DESC, created_at DESC`,
		reservationIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	res := make(map[string][]model.Payment, len(reservationIDs))
	for rows.Next() {
		var (
			p      model.Payment
			method string
			status string
		)
		if err := rows.Scan(&p.ID, &p.ReservationID, &method, &p.AmountCents, &p.Currency, &status,
			&p.PaidAt, &p.ReceiptCode, &p.Details, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Method = model.PaymentMethod(method)
		p.Status = model.PaymentStatus(status)
		res[p.ReservationID] = append(res[p.ReservationID], p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var (
		res    model.Reservation
		status string
	)

	err := row.Scan(&res.ID, &res.UserID, &res.Slug, &res.Destination, &res.TripStart, &res.TripEnd,
		&res.TripDuration, &res.Budget, &res.FormData, &status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}

	res.Status = model.ReservationStatus(status)
	if res.TripStart != nil {
		t := res.TripStart.UTC()
		res.TripStart = &t
	}
	if res.TripEnd != nil {
		t := res.TripEnd.UTC()
		res.TripEnd = &t
	}
	return &res, nil
}

