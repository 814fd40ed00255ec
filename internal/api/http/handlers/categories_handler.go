package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/dto"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

// CategoriesHandler manages service categories.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List GET /api/service-requests/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	categories, err := h.categories.List(c.UserContext(), actor, parseBool(c.Query("include_inactive")), c.Query("search"))
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/service-requests/categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	category, err := h.categories.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// Create POST /api/service-requests/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Create(c.UserContext(), actor, categoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// Update PATCH /api/service-requests/categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Update(c.UserContext(), actor, c.Params("id"), categoryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// Delete DELETE /api/service-requests/categories/:id.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	if err := h.categories.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		IsActive:    req.IsActive,
	}
}

func categoryResponse(category *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Slug:        category.Slug,
		IsActive:    category.IsActive,
	}
}
