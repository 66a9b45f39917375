package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/formaplus/internal/model"
)

// CreatePost сохраняет публикацию.
func (r *PostgresRepository) CreatePost(ctx context.Context, p *model.Post) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, user_id, title, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.UserID, p.Title, p.Content, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPostsByUser возвращает публикации пользователя, новые первыми.
func (r *PostgresRepository) GetPostsByUser(ctx context.Context, userID string) ([]model.Post, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, content, created_at
		 FROM posts
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	defer rows.Close()

	var res []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPost возвращает публикацию по идентификатору.
func (r *PostgresRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, content, created_at FROM posts WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// DeletePost удаляет публикацию.
func (r *PostgresRepository) DeletePost(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
