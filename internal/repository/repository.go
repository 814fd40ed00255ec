// Package repository holds the persistence contracts and their Postgres
// implementations. Missing rows surface as pgx.ErrNoRows.
package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store bundles every repository the services depend on.
type Store struct {
	Identities  IdentityRepository
	Categories  CategoryRepository
	Requests    ServiceRequestRepository
	History     StatusHistoryRepository
	Comments    CommentRepository
	Attachments AttachmentRepository
}

// NewPostgresStore wires the Postgres implementations over pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Identities:  NewIdentityRepository(pool),
		Categories:  NewCategoryRepository(pool),
		Requests:    NewServiceRequestRepository(pool),
		History:     NewStatusHistoryRepository(pool),
		Comments:    NewCommentRepository(pool),
		Attachments: NewAttachmentRepository(pool),
	}
}
