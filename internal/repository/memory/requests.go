package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

type requestRepo struct {
	db *db
}

func (r *requestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.categories[req.CategoryID]; !ok {
		return repository.ErrReferenced
	}
	if _, ok := r.db.identities[req.CustomerID]; !ok {
		return repository.ErrReferenced
	}
	for _, other := range r.db.requests {
		if other.RequestID == req.RequestID {
			return repository.ErrDuplicate
		}
	}
	req.ID = newID(req.ID)
	r.db.requests[req.ID] = *req
	return nil
}

func (r *requestRepo) Update(_ context.Context, req *domain.ServiceRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.write(req)
}

func (r *requestRepo) write(req *domain.ServiceRequest) error {
	current, ok := r.db.requests[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if _, ok := r.db.categories[req.CategoryID]; !ok {
		return repository.ErrReferenced
	}
	updated := *req
	updated.RequestID = current.RequestID
	updated.CustomerID = current.CustomerID
	updated.CreatedAt = current.CreatedAt
	r.db.requests[req.ID] = updated
	return nil
}

func (r *requestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	req, ok := r.db.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &req, nil
}

func (r *requestRepo) Mutate(_ context.Context, id string, fn repository.MutateFunc) (*domain.ServiceRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	req := stored
	entry, err := fn(&req)
	if err != nil {
		return nil, err
	}
	if err := r.write(&req); err != nil {
		return nil, err
	}
	if entry != nil {
		entry.ID = newID(entry.ID)
		entry.RequestID = req.ID
		r.db.history = append(r.db.history, *entry)
	}
	result := r.db.requests[id]
	return &result, nil
}

func (r *requestRepo) List(_ context.Context, filter repository.ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := r.match(filter)
	sortRequests(result, filter.OrderBy)
	return page(result, filter.Limit, filter.Offset), nil
}

func (r *requestRepo) Count(_ context.Context, filter repository.ServiceRequestFilter) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.match(filter)), nil
}

func (r *requestRepo) match(filter repository.ServiceRequestFilter) []domain.ServiceRequest {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var result []domain.ServiceRequest
	for _, req := range r.db.requests {
		if filter.CustomerID != "" && req.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Unassigned && req.AssignedToID != nil {
			continue
		}
		if !filter.Unassigned && filter.AssignedToID != "" && (req.AssignedToID == nil || *req.AssignedToID != filter.AssignedToID) {
			continue
		}
		if filter.CategoryID != "" && req.CategoryID != filter.CategoryID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, req.Priority) {
			continue
		}
		if term != "" && !requestMatches(req, term) {
			continue
		}
		result = append(result, req)
	}
	return result
}

func requestMatches(req domain.ServiceRequest, term string) bool {
	fields := []string{req.Title, req.Description, req.RequestID}
	if req.ServiceAddress != nil {
		fields = append(fields, *req.ServiceAddress)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func sortRequests(items []domain.ServiceRequest, order string) {
	order = repository.NormalizeOrder(order)
	desc := strings.HasPrefix(order, "-")
	field := strings.TrimPrefix(order, "-")

	less := func(a, b domain.ServiceRequest) int {
		switch field {
		case "updated_at":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "priority":
			return strings.Compare(string(a.Priority), string(b.Priority))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if c == 0 {
			c = strings.Compare(items[i].ID, items[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func containsStatus(values []domain.RequestStatus, v domain.RequestStatus) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(values []domain.RequestPriority, v domain.RequestPriority) bool {
	for _, p := range values {
		if p == v {
			return true
		}
	}
	return false
}
