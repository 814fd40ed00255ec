package service

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

func validRegistration(username string) RegisterInput {
	return RegisterInput{
		Username:  username,
		Email:     username + "@homes.example",
		Password:  "blue-flame-42",
		FirstName: "Pat",
		LastName:  "Doe",
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture(t)
	tokens := auth.NewTokenManager("account-secret", time.Hour)
	denylist := auth.NewMemoryDenylist()
	accounts := NewAccountService(AccountDependencies{
		IdentityRepo: f.store.Identities,
		Tokens:       tokens,
		Denylist:     denylist,
		BcryptCost:   bcrypt.MinCost,
		Clock:        f.clock.Now,
	})

	identity, token, err := accounts.RegisterCustomer(f.ctx, validRegistration("newcustomer"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if identity.Role != domain.RoleCustomer || identity.PasswordHash == "" || token.Token == "" {
		t.Fatalf("unexpected registration result: %+v %+v", identity, token)
	}

	_, _, err = accounts.RegisterCustomer(f.ctx, validRegistration("NewCustomer"))
	assertCode(t, err, apperrors.CodeConflict)

	_, _, err = accounts.Login(f.ctx, "newcustomer", "wrong-password")
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, _, err = accounts.Login(f.ctx, "nobody", "blue-flame-42")
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, issued, err := accounts.Login(f.ctx, "newcustomer", "blue-flame-42")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := tokens.ParseToken(issued.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != identity.ID || claims.Role != domain.RoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := accounts.Logout(f.ctx, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err := denylist.IsRevoked(f.ctx, claims.ID)
	if err != nil || !revoked {
		t.Fatalf("token should be revoked: %v %v", revoked, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	input := validRegistration("bad user")
	input.Email = "not-an-email"
	input.Password = "12345678"

	_, _, err := f.accounts.RegisterCustomer(f.ctx, input)
	assertCode(t, err, apperrors.CodeValidation)
	details := apperrors.ToDomainError(err).Details
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s problem in %+v", field, details)
		}
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	identity, _, err := f.accounts.RegisterCustomer(f.ctx, validRegistration("changer"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	err = f.accounts.ChangePassword(f.ctx, identity, "wrong", "another-pass-9")
	assertCode(t, err, apperrors.CodeValidation)
	err = f.accounts.ChangePassword(f.ctx, identity, "blue-flame-42", "short")
	assertCode(t, err, apperrors.CodeValidation)

	if err := f.accounts.ChangePassword(f.ctx, identity, "blue-flame-42", "another-pass-9"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := f.accounts.Login(f.ctx, "changer", "another-pass-9"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.accounts.SetRole(f.ctx, f.manager, f.manager.ID, domain.RoleAdmin)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.accounts.SetRole(f.ctx, f.agent, f.customer1.ID, domain.RoleAgent)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.accounts.SetRole(f.ctx, f.admin, f.customer1.ID, domain.Role("superuser"))
	assertCode(t, err, apperrors.CodeValidation)

	promoted, err := f.accounts.SetRole(f.ctx, f.admin, f.customer1.ID, domain.RoleAgent)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	stored, _ := f.store.Identities.GetByID(f.ctx, f.customer1.ID)
	if promoted.Role != domain.RoleAgent || stored.Role != domain.RoleAgent {
		t.Fatalf("role not persisted: %s / %s", promoted.Role, stored.Role)
	}
}

func TestDemotionSurvivesWritesFromStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	staff, err := f.accounts.CreateStaff(f.ctx, f.manager, StaffInput{RegisterInput: validRegistration("fieldtech"), Role: domain.RoleAgent})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	// copy held by a request that authenticated before the demotion
	snapshot := *staff

	if _, err := f.accounts.SetRole(f.ctx, f.manager, staff.ID, domain.RoleCustomer); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := f.accounts.ChangePassword(f.ctx, &snapshot, "blue-flame-42", "another-pass-9"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	phone := "555-0199"
	if _, err := f.accounts.UpdateIdentity(f.ctx, f.manager, staff.ID, ProfileInput{PhoneNumber: &phone}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	stored, err := f.store.Identities.GetByID(f.ctx, staff.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Role != domain.RoleCustomer {
		t.Fatalf("demotion lost: role is %s", stored.Role)
	}
	if stored.PhoneNumber != phone {
		t.Fatalf("profile edit lost: %q", stored.PhoneNumber)
	}
	if _, _, err := f.accounts.Login(f.ctx, "fieldtech", "another-pass-9"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestListIdentitiesIsScoped(t *testing.T) {
	f := newFixture(t)

	self, err := f.accounts.ListIdentities(f.ctx, f.customer1, IdentityListFilter{})
	if err != nil {
		t.Fatalf("customer list: %v", err)
	}
	if self.Total != 1 || self.Items[0].ID != f.customer1.ID {
		t.Fatalf("customer should only see self: %+v", self)
	}

	customers, err := f.accounts.ListIdentities(f.ctx, f.agent, IdentityListFilter{})
	if err != nil {
		t.Fatalf("agent list: %v", err)
	}
	if customers.Total != 2 {
		t.Fatalf("agent should see the two customers, got %d", customers.Total)
	}
	for _, identity := range customers.Items {
		if identity.Role != domain.RoleCustomer {
			t.Fatalf("agent saw %s", identity.Role)
		}
	}
	staffOnly, err := f.accounts.ListIdentities(f.ctx, f.agent, IdentityListFilter{Role: domain.RoleManager})
	if err != nil || staffOnly.Total != 0 {
		t.Fatalf("agent asking for managers should get nothing: %+v %v", staffOnly, err)
	}

	everyone, err := f.accounts.ListIdentities(f.ctx, f.admin, IdentityListFilter{Pagination: Pagination{PageSize: 2}})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if everyone.Total != 5 || len(everyone.Items) != 2 {
		t.Fatalf("admin paging: total=%d items=%d", everyone.Total, len(everyone.Items))
	}

	_, err = f.accounts.GetIdentity(f.ctx, f.customer1, f.customer2.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	if _, err := f.accounts.GetIdentity(f.ctx, f.agent, f.customer2.ID); err != nil {
		t.Fatalf("agent reads customer: %v", err)
	}
	_, err = f.accounts.GetIdentity(f.ctx, f.agent, f.manager.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestUpdateIdentity(t *testing.T) {
	f := newFixture(t)
	phone := "555-0100"

	updated, err := f.accounts.UpdateIdentity(f.ctx, f.customer1, f.customer1.ID, ProfileInput{PhoneNumber: &phone})
	if err != nil {
		t.Fatalf("self update: %v", err)
	}
	if updated.PhoneNumber != phone || updated.Role != domain.RoleCustomer {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	_, err = f.accounts.UpdateIdentity(f.ctx, f.agent, f.customer1.ID, ProfileInput{PhoneNumber: &phone})
	assertCode(t, err, apperrors.CodeForbidden)

	name := "Renamed"
	_, err = f.accounts.UpdateIdentity(f.ctx, f.agent, f.agent.ID, ProfileInput{FirstName: &name})
	assertCode(t, err, apperrors.CodeForbidden)
	if stored, _ := f.store.Identities.GetByID(f.ctx, f.agent.ID); stored.FirstName == name {
		t.Fatalf("agent edited its own profile")
	}
	if _, err := f.accounts.UpdateIdentity(f.ctx, f.manager, f.manager.ID, ProfileInput{FirstName: &name}); err != nil {
		t.Fatalf("manager self update: %v", err)
	}

	dept := "Field"
	_, err = f.accounts.UpdateIdentity(f.ctx, f.customer1, f.customer1.ID, ProfileInput{Department: &dept})
	assertCode(t, err, apperrors.CodeForbidden)

	taken := f.customer2.Email
	_, err = f.accounts.UpdateIdentity(f.ctx, f.manager, f.customer1.ID, ProfileInput{Email: &taken})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreateAndListStaff(t *testing.T) {
	f := newFixture(t)
	input := StaffInput{RegisterInput: validRegistration("tech1"), Role: domain.RoleCustomer}

	_, err := f.accounts.CreateStaff(f.ctx, f.agent, input)
	assertCode(t, err, apperrors.CodeForbidden)

	staff, err := f.accounts.CreateStaff(f.ctx, f.manager, input)
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if staff.Role != domain.RoleAgent {
		t.Fatalf("non-staff role should default to agent, got %s", staff.Role)
	}

	list, err := f.accounts.ListStaff(f.ctx, f.admin)
	if err != nil {
		t.Fatalf("list staff: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 staff accounts, got %d", len(list))
	}
	_, err = f.accounts.ListStaff(f.ctx, f.customer1)
	assertCode(t, err, apperrors.CodeForbidden)
}
