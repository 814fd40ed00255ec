package authz

import "github.com/githubpalak/gas-utility-portal/internal/domain"

// RequestScope restricts a request listing. An empty CustomerID means every request.
type RequestScope struct {
	CustomerID string
}

// All reports whether the scope is unrestricted.
func (s RequestScope) All() bool {
	return s.CustomerID == ""
}

// Contains reports whether req falls inside the scope.
func (s RequestScope) Contains(req *domain.ServiceRequest) bool {
	return req != nil && (s.All() || req.CustomerID == s.CustomerID)
}

// ScopeForRequests returns the set of requests actor may read.
func ScopeForRequests(actor *domain.Identity) RequestScope {
	if Can(actor, ReadAllRequests) {
		return RequestScope{}
	}
	if actor == nil {
		// matches no real customer id
		return RequestScope{CustomerID: "\x00"}
	}
	return RequestScope{CustomerID: actor.ID}
}

// CanAccessRequest gates read and write access to a single request.
func CanAccessRequest(actor *domain.Identity, req *domain.ServiceRequest, op Op) bool {
	if actor == nil || req == nil {
		return false
	}
	owner := req.CustomerID == actor.ID
	switch op {
	case Write:
		return owner || Can(actor, WriteAllRequests)
	default:
		return owner || Can(actor, ReadAllRequests)
	}
}

// SeesInternalComments reports whether actor may read internal notes.
func SeesInternalComments(actor *domain.Identity) bool {
	return Can(actor, ReadInternalComments)
}

// VisibleComments drops internal comments for actors who may not see them.
// The input slice is not modified.
func VisibleComments(actor *domain.Identity, comments []domain.Comment) []domain.Comment {
	if SeesInternalComments(actor) {
		return comments
	}
	out := make([]domain.Comment, 0, len(comments))
	for _, c := range comments {
		if !c.IsInternal {
			out = append(out, c)
		}
	}
	return out
}

// EffectiveInternal is the stored is_internal flag for a comment actor asked
// to mark internal. Non-staff requests are downgraded without error.
func EffectiveInternal(actor *domain.Identity, requested bool) bool {
	return requested && Can(actor, WriteInternalComments)
}

// IdentityScope restricts an identity listing.
type IdentityScope struct {
	// SelfOnly limits results to SelfID.
	SelfOnly bool
	SelfID   string
	// Roles limits results to these roles; empty means any role.
	Roles []domain.Role
}

// Contains reports whether target falls inside the scope.
func (s IdentityScope) Contains(target *domain.Identity) bool {
	if target == nil {
		return false
	}
	if s.SelfOnly {
		return target.ID == s.SelfID
	}
	if len(s.Roles) == 0 {
		return true
	}
	for _, r := range s.Roles {
		if target.Role == r {
			return true
		}
	}
	return false
}

// ScopeForIdentities returns the identities actor may list.
func ScopeForIdentities(actor *domain.Identity) IdentityScope {
	switch {
	case Can(actor, ListAllIdentities):
		return IdentityScope{}
	case Can(actor, ListCustomers):
		return IdentityScope{Roles: []domain.Role{domain.RoleCustomer}}
	case actor == nil:
		return IdentityScope{SelfOnly: true}
	default:
		return IdentityScope{SelfOnly: true, SelfID: actor.ID}
	}
}

// CanAccessIdentity gates read and write access to a profile. Agents read
// customer profiles and their own but never write any of them, including
// their own.
func CanAccessIdentity(actor, target *domain.Identity, op Op) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.ID == target.ID {
		return op == Read || !actor.IsStaff() || Can(actor, WriteAllIdentities)
	}
	if op == Write {
		return Can(actor, WriteAllIdentities)
	}
	return ScopeForIdentities(actor).Contains(target)
}

// CanSetRole reports whether actor may change target's role.
func CanSetRole(actor, target *domain.Identity) bool {
	if actor == nil || target == nil || actor.ID == target.ID {
		return false
	}
	return Can(actor, SetRoles)
}
