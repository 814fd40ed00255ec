package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

const (
	// DefaultPageSize applies when a listing names no page size.
	DefaultPageSize = 20
	// MaxPageSize caps client supplied page sizes.
	MaxPageSize = 100
)

// Page is a paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalize() Pagination {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) offset() int {
	return (p.Page - 1) * p.PageSize
}

func defaultClock(clock Clock) Clock {
	if clock == nil {
		return time.Now
	}
	return clock
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func requireActor(actor *domain.Identity) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// notFoundOr maps a missing row to NotFound and everything else through MapError.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// conflictOr maps repository constraint sentinels to Conflict.
func conflictOr(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrReferenced) {
		return apperrors.NewConflict(message, nil)
	}
	return apperrors.MapError(err)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, clock Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clock()
	}
	_ = dispatcher.Publish(ctx, event)
}

// stringPreview shortens body to at most max runes, marking the cut with "...".
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
