package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance. Either backend may be nil.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports readiness. Only the request store can fail it; an unreachable
// Redis is reported as degraded.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	store, storeErr := h.storeStatus(ctx)
	cache := h.cacheStatus(ctx)
	dependencies := fiber.Map{"store": store, "redis": cache}

	if storeErr != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "request store unavailable",
				"details": dependencies,
			},
		})
	}

	status := "ready"
	if cache != "ok" && cache != "disabled" {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":       status,
		"dependencies": dependencies,
	})
}

func (h *HealthHandler) storeStatus(ctx context.Context) (string, error) {
	if !h.postgres.Enabled() {
		return "memory", nil
	}
	if err := h.postgres.Ping(ctx); err != nil {
		return "postgres: " + err.Error(), err
	}
	return "postgres: ok", nil
}

func (h *HealthHandler) cacheStatus(ctx context.Context) string {
	if h.redis == nil {
		return "disabled"
	}
	if err := h.redis.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
