package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/dto"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

// DashboardHandler serves aggregate metrics.
type DashboardHandler struct {
	dashboard *service.DashboardService
	metrics   *observability.Metrics
}

// NewDashboardHandler constructs handler. metrics may be nil.
func NewDashboardHandler(dashboard *service.DashboardService, metrics *observability.Metrics) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, metrics: metrics}
}

// Stats GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		TotalRequests:        stats.TotalRequests,
		NewRequests:          stats.NewRequests,
		InProgressRequests:   stats.InProgressRequests,
		CompletedRequests:    stats.CompletedRequests,
		HighPriorityRequests: stats.HighPriorityRequests,
		UrgentRequests:       stats.UrgentRequests,
		AvgCompletionSeconds: seconds(stats.AvgCompletionTime),
		UnassignedRequests:   stats.UnassignedRequests,
		TotalCustomers:       stats.TotalCustomers,
	}})
}

// CategoryBreakdown GET /api/dashboard/category-breakdown.
func (h *DashboardHandler) CategoryBreakdown(c *fiber.Ctx) error {
	return h.breakdown(c, h.dashboard.CategoryBreakdown)
}

// StatusBreakdown GET /api/dashboard/status-breakdown.
func (h *DashboardHandler) StatusBreakdown(c *fiber.Ctx) error {
	return h.breakdown(c, h.dashboard.StatusBreakdown)
}

// PriorityBreakdown GET /api/dashboard/priority-breakdown.
func (h *DashboardHandler) PriorityBreakdown(c *fiber.Ctx) error {
	return h.breakdown(c, h.dashboard.PriorityBreakdown)
}

func (h *DashboardHandler) breakdown(c *fiber.Ctx, compute func(context.Context, *domain.Identity) ([]service.BreakdownRow, error)) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	rows, err := compute(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.BreakdownResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.BreakdownResponse{
			Key:        row.Key,
			Label:      row.Label,
			Count:      row.Count,
			Percentage: row.Percentage,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// AgentPerformance GET /api/dashboard/agent-performance.
func (h *DashboardHandler) AgentPerformance(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	rows, err := h.dashboard.AgentPerformance(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.AgentPerformanceResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.AgentPerformanceResponse{
			AgentID:              row.AgentID,
			AgentName:            row.AgentName,
			AssignedCount:        row.AssignedCount,
			CompletedCount:       row.CompletedCount,
			ResolutionRate:       row.ResolutionRate,
			AvgCompletionSeconds: seconds(row.AvgCompletionTime),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// HTTPMetrics GET /api/dashboard/http-metrics.
func (h *DashboardHandler) HTTPMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
