package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

type historyRepo struct {
	db *db
}

// ListByRequest returns entries newest first; entries sharing a timestamp
// keep reverse insertion order.
func (r *historyRepo) ListByRequest(_ context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var result []domain.StatusHistoryEntry
	for i := len(r.db.history) - 1; i >= 0; i-- {
		if r.db.history[i].RequestID == requestID {
			result = append(result, r.db.history[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ChangedAt.After(result[j].ChangedAt) })
	return result, nil
}

type commentRepo struct {
	db *db
}

func (r *commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.requests[comment.RequestID]; !ok {
		return repository.ErrReferenced
	}
	comment.ID = newID(comment.ID)
	r.db.comments = append(r.db.comments, *comment)
	return nil
}

func (r *commentRepo) ListByRequest(_ context.Context, requestID string) ([]domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var result []domain.Comment
	for _, c := range r.db.comments {
		if c.RequestID == requestID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type attachmentRepo struct {
	db *db
}

func (r *attachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.requests[attachment.RequestID]; !ok {
		return repository.ErrReferenced
	}
	attachment.ID = newID(attachment.ID)
	r.db.attachments = append(r.db.attachments, *attachment)
	return nil
}

func (r *attachmentRepo) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, a := range r.db.attachments {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *attachmentRepo) ListByRequest(_ context.Context, requestID string) ([]domain.Attachment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var result []domain.Attachment
	for _, a := range r.db.attachments {
		if a.RequestID == requestID {
			result = append(result, a)
		}
	}
	return result, nil
}
