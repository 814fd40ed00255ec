package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	IncludeInactive bool
	Search          string
}

// CategoryRepository manages service categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context, filter CategoryFilter) ([]domain.Category, error)
	CountRequests(ctx context.Context, id string) (int, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (name, description, slug, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		category.Name,
		category.Description,
		category.Slug,
		category.IsActive,
	).Scan(&category.ID)
	return normalize(err)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, description=$2, slug=$3, is_active=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		category.Name,
		category.Description,
		category.Slug,
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return normalize(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the category. Rows still referenced by a request fail with ErrReferenced.
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return normalize(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.fetchSingle(ctx, `SELECT id, name, description, slug, is_active FROM categories WHERE id=$1`, id)
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.fetchSingle(ctx, `SELECT id, name, description, slug, is_active FROM categories WHERE slug=$1`, slug)
}

func (r *categoryRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.Slug,
		&category.IsActive,
	); err != nil {
		return nil, normalize(err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]domain.Category, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if !filter.IncludeInactive {
		clauses = append(clauses, "is_active = TRUE")
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, containsPattern(term))
		clauses = append(clauses, likeAny(fmt.Sprintf("$%d", len(args)), "name", "description"))
	}

	query := `SELECT id, name, description, slug, is_active FROM categories WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description, &category.Slug, &category.IsActive); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) CountRequests(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests WHERE category_id=$1`, id).Scan(&count); err != nil {
		return 0, normalize(err)
	}
	return count, nil
}
