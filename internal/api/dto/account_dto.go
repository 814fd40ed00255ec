package dto

import (
	"time"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// RegisterRequest payload for customer self-registration.
type RegisterRequest struct {
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	PhoneNumber    string  `json:"phone_number"`
	Address        string  `json:"address"`
	CustomerNumber *string `json:"customer_number"`
	MeterID        *string `json:"meter_id"`
	ServiceAddress *string `json:"service_address"`
}

// CreateStaffRequest payload for staff account creation.
type CreateStaffRequest struct {
	RegisterRequest
	Role       domain.Role `json:"role"`
	Department *string     `json:"department"`
	EmployeeID *string     `json:"employee_id"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateIdentityRequest carries profile edits; omitted fields stay unchanged.
type UpdateIdentityRequest struct {
	Email          *string `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	PhoneNumber    *string `json:"phone_number"`
	Address        *string `json:"address"`
	CustomerNumber *string `json:"customer_number"`
	MeterID        *string `json:"meter_id"`
	ServiceAddress *string `json:"service_address"`
	Department     *string `json:"department"`
	EmployeeID     *string `json:"employee_id"`
}

// SetRoleRequest payload.
type SetRoleRequest struct {
	Role domain.Role `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityResponse is the public view of an identity.
type IdentityResponse struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	FullName       string      `json:"full_name"`
	Role           domain.Role `json:"role"`
	PhoneNumber    string      `json:"phone_number"`
	Address        string      `json:"address"`
	CustomerNumber *string     `json:"customer_number"`
	MeterID        *string     `json:"meter_id"`
	ServiceAddress *string     `json:"service_address"`
	Department     *string     `json:"department,omitempty"`
	EmployeeID     *string     `json:"employee_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// PageResponse wraps a paginated listing.
type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}
