package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// AttachmentRepository persists attachment metadata. Payloads live in the blob store.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByRequest(ctx context.Context, requestID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `id, request_id, file_ref, file_name, content_type, size_bytes, uploaded_by_id, uploaded_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO request_attachments (request_id, file_ref, file_name, content_type, size_bytes, uploaded_by_id, uploaded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		attachment.RequestID,
		attachment.FileRef,
		attachment.FileName,
		attachment.ContentType,
		attachment.SizeBytes,
		attachment.UploadedByID,
		attachment.UploadedAt,
	).Scan(&attachment.ID)
	return normalize(err)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := r.pool.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM request_attachments WHERE id=$1`, id).Scan(
		&attachment.ID,
		&attachment.RequestID,
		&attachment.FileRef,
		&attachment.FileName,
		&attachment.ContentType,
		&attachment.SizeBytes,
		&attachment.UploadedByID,
		&attachment.UploadedAt,
	); err != nil {
		return nil, normalize(err)
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM request_attachments WHERE request_id=$1 ORDER BY uploaded_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, normalize(err)
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.RequestID,
			&attachment.FileRef,
			&attachment.FileName,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.UploadedByID,
			&attachment.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, normalize(rows.Err())
}
