// Package authz decides what an identity may see and do. Every function is
// pure and evaluated per call against the current role.
package authz

import "github.com/githubpalak/gas-utility-portal/internal/domain"

// Capability names a role-gated ability.
type Capability string

const (
	ReadAllRequests          Capability = "requests.read_all"
	WriteAllRequests         Capability = "requests.write_all"
	ChangeStatus             Capability = "requests.change_status"
	AssignRequests           Capability = "requests.assign"
	CreateRequestForCustomer Capability = "requests.create_for_customer"
	ReadInternalComments     Capability = "comments.read_internal"
	WriteInternalComments    Capability = "comments.write_internal"
	ManageCategories         Capability = "categories.manage"
	ViewInactiveCategories   Capability = "categories.view_inactive"
	ListAllIdentities        Capability = "identities.list_all"
	ListCustomers            Capability = "identities.list_customers"
	WriteAllIdentities       Capability = "identities.write_all"
	ManageStaff              Capability = "staff.manage"
	SetRoles                 Capability = "identities.set_role"
	ViewStaffStats           Capability = "dashboard.staff_stats"
	ViewAgentPerformance     Capability = "dashboard.agent_performance"
)

// Op distinguishes read from write access.
type Op int

const (
	Read Op = iota
	Write
)

func (o Op) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

var staffCapabilities = []Capability{
	ReadAllRequests,
	ChangeStatus,
	AssignRequests,
	CreateRequestForCustomer,
	ReadInternalComments,
	WriteInternalComments,
	ViewInactiveCategories,
	ListCustomers,
	ViewStaffStats,
}

var privilegedCapabilities = []Capability{
	WriteAllRequests,
	ManageCategories,
	ListAllIdentities,
	WriteAllIdentities,
	ManageStaff,
	SetRoles,
	ViewAgentPerformance,
}

var table = buildTable()

func buildTable() map[domain.Role]map[Capability]bool {
	t := map[domain.Role]map[Capability]bool{
		domain.RoleCustomer: {},
		domain.RoleAgent:    {},
		domain.RoleManager:  {},
		domain.RoleAdmin:    {},
	}
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleManager, domain.RoleAdmin} {
		for _, c := range staffCapabilities {
			t[role][c] = true
		}
	}
	for _, role := range []domain.Role{domain.RoleManager, domain.RoleAdmin} {
		for _, c := range privilegedCapabilities {
			t[role][c] = true
		}
	}
	return t
}

// Can reports whether actor's role grants capability. A nil actor or unknown
// role is granted nothing.
func Can(actor *domain.Identity, capability Capability) bool {
	if actor == nil {
		return false
	}
	return table[actor.Role][capability]
}

// Capabilities lists the capabilities granted to role.
func Capabilities(role domain.Role) []Capability {
	var out []Capability
	for _, c := range append(append([]Capability{}, staffCapabilities...), privilegedCapabilities...) {
		if table[role][c] {
			out = append(out, c)
		}
	}
	return out
}
