package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

type categoryRepo struct {
	db *db
}

func (r *categoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	category.ID = newID(category.ID)
	if r.slugTaken(category.ID, category.Slug) {
		return repository.ErrDuplicate
	}
	r.db.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) Update(_ context.Context, category *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	if r.slugTaken(category.ID, category.Slug) {
		return repository.ErrDuplicate
	}
	r.db.categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) slugTaken(id, slug string) bool {
	for otherID, other := range r.db.categories {
		if otherID != id && other.Slug == slug {
			return true
		}
	}
	return false
}

func (r *categoryRepo) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, req := range r.db.requests {
		if req.CategoryID == id {
			return repository.ErrReferenced
		}
	}
	delete(r.db.categories, id)
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	category, ok := r.db.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *categoryRepo) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, category := range r.db.categories {
		if category.Slug == slug {
			found := category
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *categoryRepo) List(_ context.Context, filter repository.CategoryFilter) ([]domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var result []domain.Category
	for _, category := range r.db.categories {
		if !filter.IncludeInactive && !category.IsActive {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(category.Name), term) &&
			!strings.Contains(strings.ToLower(category.Description), term) {
			continue
		}
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *categoryRepo) CountRequests(_ context.Context, id string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	count := 0
	for _, req := range r.db.requests {
		if req.CategoryID == id {
			count++
		}
	}
	return count, nil
}
