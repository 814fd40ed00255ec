package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// StatusHistoryRepository reads the append-only status audit trail. Entries
// are written by ServiceRequestRepository.Mutate.
type StatusHistoryRepository interface {
	ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, q querier, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO request_status_history (request_id, previous_status, new_status, changed_by_id, changed_at, comment)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	err := q.QueryRow(ctx, query,
		entry.RequestID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedByID,
		entry.ChangedAt,
		entry.Comment,
	).Scan(&entry.ID)
	return normalize(err)
}

// listHistoryQuery breaks timestamp ties on seq, the insertion sequence.
const listHistoryQuery = `
        SELECT id, request_id, previous_status, new_status, changed_by_id, changed_at, comment
        FROM request_status_history WHERE request_id=$1 ORDER BY changed_at DESC, seq DESC`

// ListByRequest returns entries newest first.
func (r *statusHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, listHistoryQuery, requestID)
	if err != nil {
		return nil, normalize(err)
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ChangedByID,
			&entry.ChangedAt,
			&entry.Comment,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, normalize(rows.Err())
}
