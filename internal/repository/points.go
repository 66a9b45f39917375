package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/formaplus/internal/model"
)

// CreatePointEvent добавляет запись в журнал баллов.
// Нарушение уникальности (user_id, type, meta_hash) возвращается как ErrDuplicatePointEvent.
func (r *PostgresRepository) CreatePointEvent(ctx context.Context, e *model.PointEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO point_events (id, user_id, type, points, meta, meta_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, string(e.Type), e.Points, e.Meta, e.MetaHash, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePointEvent
		}
		return fmt.Errorf("insert point event: %w", err)
	}
	return nil
}

// GetPointsBalance возвращает сумму всех начислений пользователя.
func (r *PostgresRepository) GetPointsBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)::BIGINT FROM point_events WHERE user_id = $1`,
		userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return balance, nil
}

// GetRecentPointEvents возвращает последние начисления пользователя, новые первыми.
func (r *PostgresRepository) GetRecentPointEvents(ctx context.Context, userID string, limit int) ([]model.PointEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, type, points, meta, meta_hash, created_at
		 FROM point_events
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select point events: %w", err)
	}
	defer rows.Close()

	var res []model.PointEvent
	for rows.Next() {
		var (
			e   model.PointEvent
			typ string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Points, &e.Meta, &e.MetaHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan point event: %w", err)
		}
		e.Type = model.PointEventType(typ)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
