package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

// Report counts what a load created and what it skipped because the row
// already existed. In dry-run mode Created counts rows that would be written.
type Report struct {
	IdentitiesCreated int
	IdentitiesSkipped int
	CategoriesCreated int
	CategoriesSkipped int
	RequestsCreated   int
	RequestsSkipped   int
}

// Seeder writes fixtures through the account and request services so that
// passwords are hashed and request defaults apply.
type Seeder struct {
	store    *repository.Store
	accounts *service.AccountService
	requests *service.RequestService
	logger   *zap.Logger
	dryRun   bool
}

// Option customises a Seeder.
type Option func(*Seeder)

// WithDryRun makes Load report without writing.
func WithDryRun(dryRun bool) Option {
	return func(s *Seeder) { s.dryRun = dryRun }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Seeder) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSeeder constructs a Seeder over store.
func NewSeeder(store *repository.Store, accounts *service.AccountService, requests *service.RequestService, opts ...Option) *Seeder {
	s := &Seeder{
		store:    store,
		accounts: accounts,
		requests: requests,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load applies fixture: identities first, then categories, then requests.
func (s *Seeder) Load(ctx context.Context, fixture *Fixture) (*Report, error) {
	report := &Report{}
	if err := s.loadIdentities(ctx, fixture.Identities, report); err != nil {
		return report, err
	}
	if err := s.loadCategories(ctx, fixture.Categories, report); err != nil {
		return report, err
	}
	if err := s.loadRequests(ctx, fixture.Requests, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Seeder) loadIdentities(ctx context.Context, identities []IdentityFixture, report *Report) error {
	for _, item := range identities {
		exists, err := s.identityExists(ctx, item.Username)
		if err != nil {
			return err
		}
		if exists {
			report.IdentitiesSkipped++
			s.logger.Debug("identity exists", zap.String("username", item.Username))
			continue
		}
		report.IdentitiesCreated++
		if s.dryRun {
			s.logger.Info("would create identity", zap.String("username", item.Username), zap.String("role", string(item.Role)))
			continue
		}
		input := service.RegisterInput{
			Username:       item.Username,
			Email:          item.Email,
			Password:       item.Password,
			FirstName:      item.FirstName,
			LastName:       item.LastName,
			PhoneNumber:    item.PhoneNumber,
			Address:        item.Address,
			CustomerNumber: optional(item.CustomerNumber),
			MeterID:        optional(item.MeterID),
			ServiceAddress: optional(item.ServiceAddress),
		}
		identity, err := s.accounts.CreateIdentity(ctx, input, item.Role, optional(item.Department), optional(item.EmployeeID))
		if err != nil {
			return fmt.Errorf("create identity %s: %w", item.Username, err)
		}
		s.logger.Info("created identity", zap.String("username", identity.Username), zap.String("role", string(identity.Role)))
	}
	return nil
}

func (s *Seeder) loadCategories(ctx context.Context, categories []CategoryFixture, report *Report) error {
	for _, item := range categories {
		_, err := s.store.Categories.GetBySlug(ctx, item.Slug)
		switch {
		case err == nil:
			report.CategoriesSkipped++
			s.logger.Debug("category exists", zap.String("slug", item.Slug))
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("look up category %s: %w", item.Slug, err)
		}
		report.CategoriesCreated++
		if s.dryRun {
			s.logger.Info("would create category", zap.String("slug", item.Slug))
			continue
		}
		category := &domain.Category{
			Name:        item.Name,
			Description: item.Description,
			Slug:        item.Slug,
			IsActive:    !item.Inactive,
		}
		if err := s.store.Categories.Create(ctx, category); err != nil {
			return fmt.Errorf("create category %s: %w", item.Slug, err)
		}
		s.logger.Info("created category", zap.String("slug", category.Slug), zap.String("name", category.Name))
	}
	return nil
}

func (s *Seeder) loadRequests(ctx context.Context, requests []RequestFixture, report *Report) error {
	for _, item := range requests {
		customer, err := s.store.Identities.GetByUsername(ctx, item.Customer)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) && s.dryRun {
				// the customer is part of this dry run and was never written
				report.RequestsCreated++
				continue
			}
			return fmt.Errorf("request %q: customer %s: %w", item.Title, item.Customer, err)
		}
		if customer.Role != domain.RoleCustomer {
			return fmt.Errorf("request %q: %s is not a customer", item.Title, item.Customer)
		}

		exists, err := s.requestExists(ctx, customer.ID, item.Title)
		if err != nil {
			return err
		}
		if exists {
			report.RequestsSkipped++
			continue
		}

		category, err := s.store.Categories.GetBySlug(ctx, item.Category)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) && s.dryRun {
				report.RequestsCreated++
				continue
			}
			return fmt.Errorf("request %q: category %s: %w", item.Title, item.Category, err)
		}

		report.RequestsCreated++
		if s.dryRun {
			s.logger.Info("would create request", zap.String("customer", item.Customer), zap.String("title", item.Title))
			continue
		}
		created, err := s.requests.Create(ctx, customer, service.RequestCreateInput{
			CategoryID:  category.ID,
			Title:       item.Title,
			Description: item.Description,
			Priority:    item.Priority,
		})
		if err != nil {
			return fmt.Errorf("create request %q: %w", item.Title, err)
		}
		s.logger.Info("created request", zap.String("request_id", created.RequestID), zap.String("customer", item.Customer))
	}
	return nil
}

func (s *Seeder) identityExists(ctx context.Context, username string) (bool, error) {
	_, err := s.store.Identities.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("look up identity %s: %w", username, err)
}

func (s *Seeder) requestExists(ctx context.Context, customerID, title string) (bool, error) {
	candidates, err := s.store.Requests.List(ctx, repository.ServiceRequestFilter{
		CustomerID: customerID,
		Search:     title,
	})
	if err != nil {
		return false, fmt.Errorf("look up request %q: %w", title, err)
	}
	for _, candidate := range candidates {
		if candidate.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
