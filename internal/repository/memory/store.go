// Package memory implements the repository contracts in process. It backs
// tests and local runs without POSTGRES_DSN and mirrors the Postgres
// semantics: missing rows return pgx.ErrNoRows, constraint violations return
// the repository sentinels, and Mutate is serialised.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

type db struct {
	mu          sync.RWMutex
	identities  map[string]domain.Identity
	categories  map[string]domain.Category
	requests    map[string]domain.ServiceRequest
	history     []domain.StatusHistoryEntry
	comments    []domain.Comment
	attachments []domain.Attachment
}

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	d := &db{
		identities: make(map[string]domain.Identity),
		categories: make(map[string]domain.Category),
		requests:   make(map[string]domain.ServiceRequest),
	}
	return &repository.Store{
		Identities:  &identityRepo{db: d},
		Categories:  &categoryRepo{db: d},
		Requests:    &requestRepo{db: d},
		History:     &historyRepo{db: d},
		Comments:    &commentRepo{db: d},
		Attachments: &attachmentRepo{db: d},
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
