package handlers

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/dto"
	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/service"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

func currentIdentity(c *fiber.Ctx) (*domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
	}
	return nil
}

func parsePagination(c *fiber.Ctx) service.Pagination {
	return service.Pagination{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), service.DefaultPageSize),
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) bool {
	parsed, err := strconv.ParseBool(val)
	return err == nil && parsed
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pageResponse[T, R any](page *service.Page[T], convert func(*T) R) dto.PageResponse[R] {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, convert(&page.Items[i]))
	}
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = int(math.Ceil(float64(page.Total) / float64(page.PageSize)))
	}
	return dto.PageResponse[R]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}

func seconds(d *time.Duration) *float64 {
	if d == nil {
		return nil
	}
	s := d.Seconds()
	return &s
}
