package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	"github.com/githubpalak/gas-utility-portal/internal/repository/memory"
	"github.com/githubpalak/gas-utility-portal/internal/storage"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fixture struct {
	ctx        context.Context
	clock      *fakeClock
	store      *repository.Store
	dispatcher events.Dispatcher
	requests   *RequestService
	discussion *DiscussionService
	categories *CategoryService
	dashboard  *DashboardService
	accounts   *AccountService

	customer1 *domain.Identity
	customer2 *domain.Identity
	agent     *domain.Identity
	manager   *domain.Identity
	admin     *domain.Identity
	category  *domain.Category
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, nil)
}

func newFixtureWithPolicy(t *testing.T, policy TransitionPolicy) *fixture {
	t.Helper()
	f := &fixture{
		ctx:        context.Background(),
		clock:      newFakeClock(),
		store:      memory.NewStore(),
		dispatcher: events.NewInMemoryDispatcher(nil),
	}
	blobs, err := storage.NewLocalBlobStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	f.requests = NewRequestService(RequestDependencies{
		RequestRepo:  f.store.Requests,
		IdentityRepo: f.store.Identities,
		CategoryRepo: f.store.Categories,
		HistoryRepo:  f.store.History,
		Dispatcher:   f.dispatcher,
		Policy:       policy,
		Metrics:      observability.NewMetrics(),
		Clock:        f.clock.Now,
	})
	f.discussion = NewDiscussionService(DiscussionDependencies{
		Requests:       f.requests,
		CommentRepo:    f.store.Comments,
		AttachmentRepo: f.store.Attachments,
		Blobs:          blobs,
		Dispatcher:     f.dispatcher,
		Clock:          f.clock.Now,
	})
	f.categories = NewCategoryService(f.store.Categories, nil)
	f.dashboard = NewDashboardService(DashboardDependencies{
		RequestRepo:  f.store.Requests,
		IdentityRepo: f.store.Identities,
		CategoryRepo: f.store.Categories,
	})
	f.accounts = NewAccountService(AccountDependencies{
		IdentityRepo: f.store.Identities,
		Tokens:       auth.NewTokenManager("test-secret", time.Hour),
		Denylist:     auth.NewMemoryDenylist(),
		BcryptCost:   bcrypt.MinCost,
		Clock:        f.clock.Now,
	})

	f.customer1 = f.identity(t, "customer1", domain.RoleCustomer)
	f.customer2 = f.identity(t, "customer2", domain.RoleCustomer)
	f.agent = f.identity(t, "agent1", domain.RoleAgent)
	f.manager = f.identity(t, "manager1", domain.RoleManager)
	f.admin = f.identity(t, "admin", domain.RoleAdmin)

	f.category = &domain.Category{Name: "Gas Leak", Slug: "gas-leak", IsActive: true}
	if err := f.store.Categories.Create(f.ctx, f.category); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return f
}

func (f *fixture) identity(t *testing.T, username string, role domain.Role) *domain.Identity {
	t.Helper()
	identity := &domain.Identity{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
		Role:      role,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.store.Identities.Create(f.ctx, identity); err != nil {
		t.Fatalf("seed identity %s: %v", username, err)
	}
	return identity
}

func (f *fixture) newRequest(t *testing.T, customer *domain.Identity) *domain.ServiceRequest {
	t.Helper()
	req, err := f.requests.Create(f.ctx, customer, RequestCreateInput{
		CategoryID:  f.category.ID,
		Title:       "Smell of gas near meter",
		Description: "Strong smell near the outdoor meter since this morning.",
		Priority:    domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}
