package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// CommentRepository persists the discussion thread of a request.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository returns a Postgres-backed implementation.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO request_comments (request_id, author_id, text, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		comment.RequestID,
		comment.AuthorID,
		comment.Text,
		comment.IsInternal,
		comment.CreatedAt,
	).Scan(&comment.ID)
	return normalize(err)
}

// ListByRequest returns comments oldest first.
func (r *commentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, request_id, author_id, text, is_internal, created_at
        FROM request_comments WHERE request_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, normalize(err)
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.RequestID,
			&comment.AuthorID,
			&comment.Text,
			&comment.IsInternal,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, normalize(rows.Err())
}
