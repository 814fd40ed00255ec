package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/authz"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// AccountService coordinates registration, login and identity management.
type AccountService struct {
	identities repository.IdentityRepository
	tokens     *auth.TokenManager
	denylist   auth.Denylist
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	IdentityRepo repository.IdentityRepository
	Tokens       *auth.TokenManager
	Denylist     auth.Denylist
	BcryptCost   int
	Logger       *zap.Logger
	Clock        Clock
}

// AccessToken is an issued bearer token.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	PhoneNumber    string
	Address        string
	CustomerNumber *string
	MeterID        *string
	ServiceAddress *string
}

// StaffInput describes a staff account created by a manager or admin.
type StaffInput struct {
	RegisterInput
	Role       domain.Role
	Department *string
	EmployeeID *string
}

// ProfileInput carries profile edits. Nil fields are left unchanged.
type ProfileInput struct {
	Email          *string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Address        *string
	CustomerNumber *string
	MeterID        *string
	ServiceAddress *string
	Department     *string
	EmployeeID     *string
}

// IdentityListFilter narrows identity listings.
type IdentityListFilter struct {
	Role   domain.Role
	Search string
	Pagination
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		identities: deps.IdentityRepo,
		tokens:     deps.Tokens,
		denylist:   deps.Denylist,
		bcryptCost: deps.BcryptCost,
		logger:     defaultLogger(deps.Logger),
		clock:      defaultClock(deps.Clock),
	}
}

// RegisterCustomer creates a customer account and signs the caller in.
func (s *AccountService) RegisterCustomer(ctx context.Context, input RegisterInput) (*domain.Identity, *AccessToken, error) {
	identity, err := s.createIdentity(ctx, input, domain.RoleCustomer)
	if err != nil {
		return nil, nil, err
	}
	token, err := s.issue(identity)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("customer registered", zap.String("identity_id", identity.ID), zap.String("username", identity.Username))
	return identity, token, nil
}

// Login checks credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.Identity, *AccessToken, error) {
	identity, err := s.identities.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.issue(identity)
	if err != nil {
		return nil, nil, err
	}
	return identity, token, nil
}

// Logout revokes the presented token until it expires.
func (s *AccountService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if s.denylist == nil {
		return nil
	}
	expiresAt := s.clock().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.denylist.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ChangePassword replaces the actor's password after checking the current one.
// Only the password hash is written; role and profile are left as stored.
func (s *AccountService) ChangePassword(ctx context.Context, actor *domain.Identity, current, next string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	stored, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return notFoundOr(err, "identity", nil)
	}
	if err := auth.ComparePassword(stored.PasswordHash, current); err != nil {
		return apperrors.NewValidationError("invalid password change", map[string]any{"current_password": "incorrect password"})
	}
	if err := auth.CheckPasswordStrength(next, stored.Username); err != nil {
		return apperrors.NewValidationError("invalid password change", map[string]any{"new_password": err.Error()})
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.identities.UpdatePassword(ctx, stored.ID, hash, s.clock()); err != nil {
		return notFoundOr(err, "identity", nil)
	}
	return nil
}

// Current returns the caller.
func (s *AccountService) Current(_ context.Context, actor *domain.Identity) (*domain.Identity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// ListIdentities lists the identities inside the actor's scope.
func (s *AccountService) ListIdentities(ctx context.Context, actor *domain.Identity, filter IdentityListFilter) (*Page[domain.Identity], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	paging := filter.Pagination.normalize()
	empty := &Page[domain.Identity]{Items: []domain.Identity{}, Page: paging.Page, PageSize: paging.PageSize}

	scope := authz.ScopeForIdentities(actor)
	repoFilter := repository.IdentityFilter{Search: filter.Search, Roles: scope.Roles}
	if scope.SelfOnly {
		repoFilter.IDs = []string{actor.ID}
	}
	if filter.Role != "" {
		if !filter.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role filter", map[string]any{"role": filter.Role})
		}
		if len(scope.Roles) > 0 && !containsRole(scope.Roles, filter.Role) {
			return empty, nil
		}
		repoFilter.Roles = []domain.Role{filter.Role}
	}

	total, err := s.identities.Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	repoFilter.Limit = paging.PageSize
	repoFilter.Offset = paging.offset()
	items, err := s.identities.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Identity{}
	}
	return &Page[domain.Identity]{Items: items, Total: total, Page: paging.Page, PageSize: paging.PageSize}, nil
}

// GetIdentity returns an identity the actor may read.
func (s *AccountService) GetIdentity(ctx context.Context, actor *domain.Identity, id string) (*domain.Identity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	target, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "identity", map[string]any{"id": id})
	}
	if !authz.CanAccessIdentity(actor, target, authz.Read) {
		return nil, apperrors.NewNotFound("identity", map[string]any{"id": id})
	}
	return target, nil
}

// UpdateIdentity edits profile fields. Roles change only through SetRole.
func (s *AccountService) UpdateIdentity(ctx context.Context, actor *domain.Identity, id string, input ProfileInput) (*domain.Identity, error) {
	target, err := s.GetIdentity(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessIdentity(actor, target, authz.Write) {
		return nil, apperrors.NewForbidden("read-only access to this profile")
	}
	if (input.Department != nil || input.EmployeeID != nil) && !authz.Can(actor, authz.WriteAllIdentities) {
		return nil, apperrors.NewForbidden("staff fields are managed by managers and admins")
	}

	updated := *target
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if !emailPattern.MatchString(email) {
			return nil, apperrors.NewValidationError("invalid profile", map[string]any{"email": "enter a valid email address"})
		}
		updated.Email = email
	}
	setString(&updated.FirstName, input.FirstName)
	setString(&updated.LastName, input.LastName)
	setString(&updated.PhoneNumber, input.PhoneNumber)
	setString(&updated.Address, input.Address)
	setOptional(&updated.CustomerNumber, input.CustomerNumber)
	setOptional(&updated.MeterID, input.MeterID)
	setOptional(&updated.ServiceAddress, input.ServiceAddress)
	setOptional(&updated.Department, input.Department)
	setOptional(&updated.EmployeeID, input.EmployeeID)
	updated.UpdatedAt = s.clock()

	if err := s.identities.UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email, customer number or employee id already in use", nil)
		}
		return nil, notFoundOr(err, "identity", map[string]any{"id": id})
	}
	return s.reload(ctx, id)
}

// CreateStaff creates a staff account. A non-staff role defaults to agent.
func (s *AccountService) CreateStaff(ctx context.Context, actor *domain.Identity, input StaffInput) (*domain.Identity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ManageStaff) {
		return nil, apperrors.NewForbidden("only managers and admins can create staff accounts")
	}
	role := input.Role
	if !role.IsStaff() {
		role = domain.RoleAgent
	}
	input.CustomerNumber = nil
	identity, err := s.buildIdentity(input.RegisterInput, role)
	if err != nil {
		return nil, err
	}
	identity.Department = optionalString(input.Department)
	identity.EmployeeID = optionalString(input.EmployeeID)
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, conflictOr(err, "username, email or employee id already in use")
	}
	s.logger.Info("staff account created",
		zap.String("identity_id", identity.ID),
		zap.String("role", string(identity.Role)),
		zap.String("actor_id", actor.ID))
	return identity, nil
}

// ListStaff lists every staff account.
func (s *AccountService) ListStaff(ctx context.Context, actor *domain.Identity) ([]domain.Identity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ManageStaff) {
		return nil, apperrors.NewForbidden("only managers and admins can list staff")
	}
	staff, err := s.identities.List(ctx, repository.IdentityFilter{
		Roles: []domain.Role{domain.RoleAgent, domain.RoleManager, domain.RoleAdmin},
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if staff == nil {
		staff = []domain.Identity{}
	}
	return staff, nil
}

// SetRole changes another identity's role.
func (s *AccountService) SetRole(ctx context.Context, actor *domain.Identity, id string, role domain.Role) (*domain.Identity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role, "allowed": domain.Roles})
	}
	if !authz.Can(actor, authz.SetRoles) {
		return nil, apperrors.NewForbidden("only managers and admins can change roles")
	}
	target, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "identity", map[string]any{"id": id})
	}
	if !authz.CanSetRole(actor, target) {
		return nil, apperrors.NewForbidden("you cannot change your own role")
	}

	if err := s.identities.UpdateRole(ctx, target.ID, role, s.clock()); err != nil {
		return nil, notFoundOr(err, "identity", map[string]any{"id": id})
	}
	s.logger.Info("identity role changed",
		zap.String("identity_id", target.ID),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)),
		zap.String("actor_id", actor.ID))
	return s.reload(ctx, target.ID)
}

func (s *AccountService) reload(ctx context.Context, id string) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "identity", map[string]any{"id": id})
	}
	return identity, nil
}

// CreateIdentity stores a fully specified identity. Used by seeding.
func (s *AccountService) CreateIdentity(ctx context.Context, input RegisterInput, role domain.Role, department, employeeID *string) (*domain.Identity, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	identity, err := s.buildIdentity(input, role)
	if err != nil {
		return nil, err
	}
	identity.Department = optionalString(department)
	identity.EmployeeID = optionalString(employeeID)
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, conflictOr(err, "identity already exists")
	}
	return identity, nil
}

func (s *AccountService) createIdentity(ctx context.Context, input RegisterInput, role domain.Role) (*domain.Identity, error) {
	identity, err := s.buildIdentity(input, role)
	if err != nil {
		return nil, err
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, conflictOr(err, "username, email or customer number already in use")
	}
	return identity, nil
}

func (s *AccountService) buildIdentity(input RegisterInput, role domain.Role) (*domain.Identity, error) {
	problems := map[string]any{}
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if !usernamePattern.MatchString(username) {
		problems["username"] = "letters, digits and @/./+/-/_ only, at most 150 characters"
	}
	if !emailPattern.MatchString(email) {
		problems["email"] = "enter a valid email address"
	}
	if err := auth.CheckPasswordStrength(input.Password, username); err != nil {
		problems["password"] = err.Error()
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid account", problems)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.clock()
	return &domain.Identity{
		Username:       username,
		Email:          email,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Role:           role,
		PhoneNumber:    strings.TrimSpace(input.PhoneNumber),
		Address:        strings.TrimSpace(input.Address),
		CustomerNumber: optionalString(input.CustomerNumber),
		MeterID:        optionalString(input.MeterID),
		ServiceAddress: optionalString(input.ServiceAddress),
		PasswordHash:   hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *AccountService) issue(identity *domain.Identity) (*AccessToken, error) {
	token, exp, err := s.tokens.GenerateToken(identity)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AccessToken{Token: token, ExpiresAt: exp}, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setOptional(dst **string, v *string) {
	if v != nil {
		*dst = optionalString(v)
	}
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
