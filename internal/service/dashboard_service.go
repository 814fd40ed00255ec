package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/githubpalak/gas-utility-portal/internal/authz"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// DashboardService computes aggregate metrics over the requests an actor can see.
// Nothing is cached; every call recomputes from the store.
type DashboardService struct {
	requests   repository.ServiceRequestRepository
	identities repository.IdentityRepository
	categories repository.CategoryRepository
}

// DashboardDependencies bundles repositories for the dashboard.
type DashboardDependencies struct {
	RequestRepo  repository.ServiceRequestRepository
	IdentityRepo repository.IdentityRepository
	CategoryRepo repository.CategoryRepository
}

// DashboardStats summarises the visible request set. Staff-only fields are nil for customers.
type DashboardStats struct {
	TotalRequests        int
	NewRequests          int
	InProgressRequests   int
	CompletedRequests    int
	HighPriorityRequests int
	UrgentRequests       int
	AvgCompletionTime    *time.Duration
	UnassignedRequests   *int
	TotalCustomers       *int
}

// BreakdownRow is one bucket of a breakdown.
type BreakdownRow struct {
	Key        string
	Label      string
	Count      int
	Percentage float64
}

// AgentPerformance summarises one agent's workload.
type AgentPerformance struct {
	AgentID           string
	AgentName         string
	AssignedCount     int
	CompletedCount    int
	ResolutionRate    float64
	AvgCompletionTime *time.Duration
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		requests:   deps.RequestRepo,
		identities: deps.IdentityRepo,
		categories: deps.CategoryRepo,
	}
}

func (s *DashboardService) visible(ctx context.Context, actor *domain.Identity) ([]domain.ServiceRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := repository.ServiceRequestFilter{}
	if scope := authz.ScopeForRequests(actor); !scope.All() {
		filter.CustomerID = scope.CustomerID
	}
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reqs, nil
}

// Stats returns the headline counters.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.Identity) (*DashboardStats, error) {
	reqs, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TotalRequests: len(reqs)}
	unassigned := 0
	for _, req := range reqs {
		switch req.Status {
		case domain.StatusNew:
			stats.NewRequests++
		case domain.StatusAssigned, domain.StatusInProgress:
			stats.InProgressRequests++
		case domain.StatusCompleted:
			stats.CompletedRequests++
		}
		switch req.Priority {
		case domain.PriorityHigh:
			stats.HighPriorityRequests++
		case domain.PriorityUrgent:
			stats.UrgentRequests++
		}
		if req.AssignedToID == nil {
			unassigned++
		}
	}
	stats.AvgCompletionTime = averageCompletion(reqs)

	if authz.Can(actor, authz.ViewStaffStats) {
		customers, err := s.identities.Count(ctx, repository.IdentityFilter{Roles: []domain.Role{domain.RoleCustomer}})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		stats.UnassignedRequests = &unassigned
		stats.TotalCustomers = &customers
	}
	return stats, nil
}

// CategoryBreakdown counts visible requests per category.
func (s *DashboardService) CategoryBreakdown(ctx context.Context, actor *domain.Identity) ([]BreakdownRow, error) {
	reqs, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx, repository.CategoryFilter{IncludeInactive: true})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return breakdown(reqs, func(req domain.ServiceRequest) (string, string) {
		return req.CategoryID, names[req.CategoryID]
	}), nil
}

// StatusBreakdown counts visible requests per status.
func (s *DashboardService) StatusBreakdown(ctx context.Context, actor *domain.Identity) ([]BreakdownRow, error) {
	reqs, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return breakdown(reqs, func(req domain.ServiceRequest) (string, string) {
		return string(req.Status), req.Status.Label()
	}), nil
}

// PriorityBreakdown counts visible requests per priority.
func (s *DashboardService) PriorityBreakdown(ctx context.Context, actor *domain.Identity) ([]BreakdownRow, error) {
	reqs, err := s.visible(ctx, actor)
	if err != nil {
		return nil, err
	}
	return breakdown(reqs, func(req domain.ServiceRequest) (string, string) {
		return string(req.Priority), req.Priority.Label()
	}), nil
}

// AgentPerformance reports per-agent workload. Managers and admins only.
func (s *DashboardService) AgentPerformance(ctx context.Context, actor *domain.Identity) ([]AgentPerformance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ViewAgentPerformance) {
		return nil, apperrors.NewForbidden("you do not have permission to view agent performance")
	}

	agents, err := s.identities.List(ctx, repository.IdentityFilter{Roles: []domain.Role{domain.RoleAgent}})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	reqs, err := s.requests.List(ctx, repository.ServiceRequestFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byAgent := make(map[string][]domain.ServiceRequest)
	for _, req := range reqs {
		if req.AssignedToID != nil {
			byAgent[*req.AssignedToID] = append(byAgent[*req.AssignedToID], req)
		}
	}

	result := make([]AgentPerformance, 0, len(agents))
	for i := range agents {
		agent := &agents[i]
		assigned := byAgent[agent.ID]
		var completed []domain.ServiceRequest
		for _, req := range assigned {
			if req.Status == domain.StatusCompleted {
				completed = append(completed, req)
			}
		}
		row := AgentPerformance{
			AgentID:           agent.ID,
			AgentName:         agent.DisplayName(),
			AssignedCount:     len(assigned),
			CompletedCount:    len(completed),
			AvgCompletionTime: averageCompletion(completed),
		}
		if row.AssignedCount > 0 {
			row.ResolutionRate = round2(float64(row.CompletedCount) / float64(row.AssignedCount) * 100)
		}
		result = append(result, row)
	}
	return result, nil
}

func breakdown(reqs []domain.ServiceRequest, key func(domain.ServiceRequest) (string, string)) []BreakdownRow {
	index := map[string]int{}
	rows := []BreakdownRow{}
	for _, req := range reqs {
		k, label := key(req)
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, BreakdownRow{Key: k, Label: label})
		}
		rows[i].Count++
	}
	total := len(reqs)
	for i := range rows {
		if total > 0 {
			rows[i].Percentage = round2(float64(rows[i].Count) / float64(total) * 100)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Label < rows[j].Label
	})
	return rows
}

// averageCompletion averages completed_at - created_at over requests that
// carry a completion stamp, whatever their current status. Nil when there are
// none.
func averageCompletion(reqs []domain.ServiceRequest) *time.Duration {
	var sum time.Duration
	n := 0
	for _, req := range reqs {
		if req.CompletedAt == nil {
			continue
		}
		sum += req.CompletedAt.Sub(req.CreatedAt)
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / time.Duration(n)
	return &avg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
