package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

type identityRepo struct {
	db *db
}

func (r *identityRepo) Create(_ context.Context, identity *domain.Identity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	identity.ID = newID(identity.ID)
	if r.conflicts(identity) {
		return repository.ErrDuplicate
	}
	r.db.identities[identity.ID] = *identity
	return nil
}

func (r *identityRepo) UpdateProfile(_ context.Context, identity *domain.Identity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.identities[identity.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	candidate := current
	candidate.Email = identity.Email
	candidate.FirstName = identity.FirstName
	candidate.LastName = identity.LastName
	candidate.PhoneNumber = identity.PhoneNumber
	candidate.Address = identity.Address
	candidate.CustomerNumber = identity.CustomerNumber
	candidate.MeterID = identity.MeterID
	candidate.ServiceAddress = identity.ServiceAddress
	candidate.Department = identity.Department
	candidate.EmployeeID = identity.EmployeeID
	candidate.UpdatedAt = identity.UpdatedAt
	if r.conflicts(&candidate) {
		return repository.ErrDuplicate
	}
	r.db.identities[identity.ID] = candidate
	return nil
}

func (r *identityRepo) UpdatePassword(_ context.Context, id, passwordHash string, at time.Time) error {
	return r.modify(id, func(identity *domain.Identity) {
		identity.PasswordHash = passwordHash
		identity.UpdatedAt = at
	})
}

func (r *identityRepo) UpdateRole(_ context.Context, id string, role domain.Role, at time.Time) error {
	return r.modify(id, func(identity *domain.Identity) {
		identity.Role = role
		identity.UpdatedAt = at
	})
}

func (r *identityRepo) modify(id string, fn func(*domain.Identity)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	identity, ok := r.db.identities[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&identity)
	r.db.identities[id] = identity
	return nil
}

// conflicts mirrors the unique indexes on identities.
func (r *identityRepo) conflicts(identity *domain.Identity) bool {
	for id, other := range r.db.identities {
		if id == identity.ID {
			continue
		}
		if strings.EqualFold(other.Username, identity.Username) && identity.Username != "" {
			return true
		}
		if other.Email == identity.Email {
			return true
		}
		if sameOptional(other.CustomerNumber, identity.CustomerNumber) || sameOptional(other.EmployeeID, identity.EmployeeID) {
			return true
		}
	}
	return false
}

func sameOptional(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (r *identityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	identity, ok := r.db.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &identity, nil
}

func (r *identityRepo) GetByUsername(_ context.Context, username string) (*domain.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, identity := range r.db.identities {
		if strings.EqualFold(identity.Username, username) {
			found := identity
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *identityRepo) List(_ context.Context, filter repository.IdentityFilter) ([]domain.Identity, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := r.match(filter)
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return page(result, filter.Limit, filter.Offset), nil
}

func (r *identityRepo) Count(_ context.Context, filter repository.IdentityFilter) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.match(filter)), nil
}

func (r *identityRepo) match(filter repository.IdentityFilter) []domain.Identity {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var result []domain.Identity
	for _, identity := range r.db.identities {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, identity.Role) {
			continue
		}
		if len(filter.IDs) > 0 && !containsString(filter.IDs, identity.ID) {
			continue
		}
		if term != "" && !identityMatches(identity, term) {
			continue
		}
		result = append(result, identity)
	}
	return result
}

func identityMatches(identity domain.Identity, term string) bool {
	fields := []string{identity.Username, identity.Email, identity.FirstName, identity.LastName}
	if identity.CustomerNumber != nil {
		fields = append(fields, *identity.CustomerNumber)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
