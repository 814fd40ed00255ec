package domain

import (
	"strings"
	"time"
)

// Role enumerates the actor roles known to the portal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleCustomer, RoleAgent, RoleManager, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r is Agent, Manager or Admin.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// IsPrivileged reports whether r is Manager or Admin.
func (r Role) IsPrivileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// Identity is an authenticated actor: a customer or a staff member.
type Identity struct {
	ID             string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Role           Role
	PhoneNumber    string
	Address        string
	CustomerNumber *string
	MeterID        *string
	ServiceAddress *string
	Department     *string
	EmployeeID     *string
	PasswordHash   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName joins first and last name, falling back to the username.
func (i *Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Username
	}
	return name
}

// IsStaff reports whether the identity holds a staff role.
func (i *Identity) IsStaff() bool {
	return i != nil && i.Role.IsStaff()
}
