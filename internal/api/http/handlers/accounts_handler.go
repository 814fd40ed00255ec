package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/dto"
	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/service"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// AccountsHandler exposes registration, login and identity management.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Register handles POST /api/accounts/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, token, err := h.accounts.RegisterCustomer(c.UserContext(), registerInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": identityResponse(identity),
			"auth": authResponse(token),
		},
	})
}

// Login handles POST /api/accounts/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}
	identity, token, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": identityResponse(identity),
			"auth": authResponse(token),
		},
	})
}

// Logout handles POST /api/accounts/logout.
func (h *AccountsHandler) Logout(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.accounts.Logout(c.UserContext(), claims); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/accounts/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	identity, err := h.accounts.Current(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// ChangePassword handles POST /api/accounts/password.
func (h *AccountsHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListUsers handles GET /api/accounts/users.
func (h *AccountsHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	page, err := h.accounts.ListIdentities(c.UserContext(), actor, service.IdentityListFilter{
		Role:       domain.Role(c.Query("role")),
		Search:     c.Query("search"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pageResponse(page, identityResponse)})
}

// GetUser handles GET /api/accounts/users/:id.
func (h *AccountsHandler) GetUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	identity, err := h.accounts.GetIdentity(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// UpdateUser handles PATCH /api/accounts/users/:id.
func (h *AccountsHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIdentityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.accounts.UpdateIdentity(c.UserContext(), actor, c.Params("id"), service.ProfileInput{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Address:        req.Address,
		CustomerNumber: req.CustomerNumber,
		MeterID:        req.MeterID,
		ServiceAddress: req.ServiceAddress,
		Department:     req.Department,
		EmployeeID:     req.EmployeeID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// SetRole handles PUT /api/accounts/users/:id/role.
func (h *AccountsHandler) SetRole(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SetRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.accounts.SetRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": identityResponse(identity)})
}

// ListStaff handles GET /api/accounts/staff.
func (h *AccountsHandler) ListStaff(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	staff, err := h.accounts.ListStaff(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.IdentityResponse, 0, len(staff))
	for i := range staff {
		items = append(items, identityResponse(&staff[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateStaff handles POST /api/accounts/staff.
func (h *AccountsHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.accounts.CreateStaff(c.UserContext(), actor, service.StaffInput{
		RegisterInput: registerInput(req.RegisterRequest),
		Role:          req.Role,
		Department:    req.Department,
		EmployeeID:    req.EmployeeID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": identityResponse(identity)})
}

func registerInput(req dto.RegisterRequest) service.RegisterInput {
	return service.RegisterInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		PhoneNumber:    req.PhoneNumber,
		Address:        req.Address,
		CustomerNumber: req.CustomerNumber,
		MeterID:        req.MeterID,
		ServiceAddress: req.ServiceAddress,
	}
}

func authResponse(token *service.AccessToken) dto.AuthResponse {
	return dto.AuthResponse{Token: token.Token, TokenType: "Bearer", ExpiresAt: token.ExpiresAt}
}

func identityResponse(identity *domain.Identity) dto.IdentityResponse {
	return dto.IdentityResponse{
		ID:             identity.ID,
		Username:       identity.Username,
		Email:          identity.Email,
		FirstName:      identity.FirstName,
		LastName:       identity.LastName,
		FullName:       identity.DisplayName(),
		Role:           identity.Role,
		PhoneNumber:    identity.PhoneNumber,
		Address:        identity.Address,
		CustomerNumber: identity.CustomerNumber,
		MeterID:        identity.MeterID,
		ServiceAddress: identity.ServiceAddress,
		Department:     identity.Department,
		EmployeeID:     identity.EmployeeID,
		CreatedAt:      identity.CreatedAt,
		UpdatedAt:      identity.UpdatedAt,
	}
}
