package seed

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	"github.com/githubpalak/gas-utility-portal/internal/repository/memory"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

func newSeeder(t *testing.T, store *repository.Store, opts ...Option) *Seeder {
	t.Helper()
	accounts := service.NewAccountService(service.AccountDependencies{
		IdentityRepo: store.Identities,
		BcryptCost:   bcrypt.MinCost,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
		HistoryRepo:  store.History,
	})
	return NewSeeder(store, accounts, requests, opts...)
}

func TestSampleFixtureParses(t *testing.T) {
	fixture, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(fixture.Identities) != 6 || len(fixture.Categories) != 6 || len(fixture.Requests) != 3 {
		t.Fatalf("unexpected fixture sizes: %d identities, %d categories, %d requests",
			len(fixture.Identities), len(fixture.Categories), len(fixture.Requests))
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seeder := newSeeder(t, store)
	fixture, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	first, err := seeder.Load(ctx, fixture)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.IdentitiesCreated != 6 || first.CategoriesCreated != 6 || first.RequestsCreated != 3 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := seeder.Load(ctx, fixture)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	want := Report{IdentitiesSkipped: 6, CategoriesSkipped: 6, RequestsSkipped: 3}
	if *second != want {
		t.Fatalf("expected everything skipped, got %+v", second)
	}

	count, err := store.Requests.Count(ctx, repository.ServiceRequestFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 requests, got %d", count)
	}
}

func TestLoadedIdentitiesCanSignIn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fixture, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if _, err := newSeeder(t, store).Load(ctx, fixture); err != nil {
		t.Fatalf("Load: %v", err)
	}

	agent, err := store.Identities.GetByUsername(ctx, "agent1")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if agent.Role != domain.RoleAgent {
		t.Fatalf("expected agent role, got %s", agent.Role)
	}
	if agent.EmployeeID == nil || *agent.EmployeeID != "EMP001" {
		t.Fatalf("expected employee id EMP001, got %v", agent.EmployeeID)
	}
	if err := auth.ComparePassword(agent.PasswordHash, "agent123"); err != nil {
		t.Fatalf("password not stored: %v", err)
	}

	customer, err := store.Identities.GetByUsername(ctx, "customer1")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	requests, err := store.Requests.List(ctx, repository.ServiceRequestFilter{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests for customer1, got %d", len(requests))
	}
	for _, req := range requests {
		if req.Status != domain.StatusNew {
			t.Fatalf("expected new status, got %s", req.Status)
		}
		if req.MeterID == nil || *req.MeterID != "GM0001" {
			t.Fatalf("expected meter id copied from the customer, got %v", req.MeterID)
		}
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fixture, err := Sample()
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	report, err := newSeeder(t, store, WithDryRun(true)).Load(ctx, fixture)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.IdentitiesCreated != 6 || report.CategoriesCreated != 6 || report.RequestsCreated != 3 {
		t.Fatalf("unexpected dry-run report: %+v", report)
	}

	count, err := store.Identities.Count(ctx, repository.IdentityFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("dry run wrote %d identities", count)
	}
}

func TestLoadFailsOnUnknownCategory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fixture, err := Parse([]byte(`
identities:
  - username: alice
    password: s3cret-pass
    email: alice@example.com
    role: customer
requests:
  - customer: alice
    category: does-not-exist
    title: Pilot light out
    description: The pilot light keeps going out.
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = newSeeder(t, store).Load(ctx, fixture)
	if err == nil || !strings.Contains(err.Error(), "does-not-exist") {
		t.Fatalf("expected unknown category error, got %v", err)
	}
}

func TestParseRejectsInvalidFixtures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown role",
			doc:  "identities:\n  - username: bob\n    password: password1\n    role: plumber\n",
			want: "unknown role",
		},
		{
			name: "duplicate username",
			doc:  "identities:\n  - {username: bob, password: password1, role: agent}\n  - {username: BOB, password: password1, role: agent}\n",
			want: "duplicate username",
		},
		{
			name: "duplicate slug",
			doc:  "categories:\n  - {slug: gas-leak, name: Gas Leak}\n  - {slug: gas-leak, name: Leak}\n",
			want: "duplicate slug",
		},
		{
			name: "unknown priority",
			doc:  "requests:\n  - {customer: bob, category: gas-leak, title: Leak, priority: critical}\n",
			want: "unknown priority",
		},
		{
			name: "malformed yaml",
			doc:  "identities: [",
			want: "parse fixture",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
