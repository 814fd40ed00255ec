package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/authz"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStrip   = regexp.MustCompile(`[^a-z0-9]+`)
)

// CategoryService manages the service category reference data.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// CategoryInput describes a category create or update. Nil fields are left
// unchanged on update.
type CategoryInput struct {
	Name        *string
	Description *string
	Slug        *string
	IsActive    *bool
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: defaultLogger(logger)}
}

// List returns categories; inactive ones only for staff that ask for them.
func (s *CategoryService) List(ctx context.Context, actor *domain.Identity, includeInactive bool, search string) ([]domain.Category, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := repository.CategoryFilter{
		IncludeInactive: includeInactive && authz.Can(actor, authz.ViewInactiveCategories),
		Search:          search,
	}
	categories, err := s.categories.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// Get returns one category. Inactive categories are hidden from customers.
func (s *CategoryService) Get(ctx context.Context, actor *domain.Identity, id string) (*domain.Category, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category", map[string]any{"id": id})
	}
	if !category.IsActive && !authz.Can(actor, authz.ViewInactiveCategories) {
		return nil, apperrors.NewNotFound("category", map[string]any{"id": id})
	}
	return category, nil
}

// Create adds a category. The slug is derived from the name when omitted.
func (s *CategoryService) Create(ctx context.Context, actor *domain.Identity, input CategoryInput) (*domain.Category, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	category := &domain.Category{IsActive: true}
	if err := applyCategoryInput(category, input, true); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, conflictOr(err, "category slug already exists")
	}
	s.logger.Info("category created", zap.String("slug", category.Slug), zap.String("actor_id", actor.ID))
	return category, nil
}

// Update edits a category, including deactivation.
func (s *CategoryService) Update(ctx context.Context, actor *domain.Identity, id string, input CategoryInput) (*domain.Category, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category", map[string]any{"id": id})
	}
	if err := applyCategoryInput(category, input, false); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("category slug already exists", map[string]any{"slug": category.Slug})
		}
		return nil, notFoundOr(err, "category", map[string]any{"id": id})
	}
	return category, nil
}

// Delete removes a category that no request references.
func (s *CategoryService) Delete(ctx context.Context, actor *domain.Identity, id string) error {
	if err := s.requireManager(actor); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return notFoundOr(err, "category", map[string]any{"id": id})
	}
	inUse, err := s.categories.CountRequests(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if inUse > 0 {
		return apperrors.NewConflict("category is referenced by service requests", map[string]any{"requests": inUse})
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return apperrors.NewConflict("category is referenced by service requests", nil)
		}
		return notFoundOr(err, "category", map[string]any{"id": id})
	}
	s.logger.Info("category deleted", zap.String("category_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *CategoryService) requireManager(actor *domain.Identity) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !authz.Can(actor, authz.ManageCategories) {
		return apperrors.NewForbidden("only managers and admins can manage categories")
	}
	return nil
}

func applyCategoryInput(category *domain.Category, input CategoryInput, creating bool) error {
	problems := map[string]any{}
	if input.Name != nil {
		category.Name = strings.TrimSpace(*input.Name)
	}
	if category.Name == "" || len(category.Name) > 100 {
		problems["name"] = "must be 1 to 100 characters"
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.Slug != nil {
		category.Slug = strings.TrimSpace(*input.Slug)
	} else if creating {
		category.Slug = Slugify(category.Name)
	}
	if !slugPattern.MatchString(category.Slug) {
		problems["slug"] = "must contain only lowercase letters, digits and hyphens"
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("invalid category", problems)
	}
	return nil
}

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
