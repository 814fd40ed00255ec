package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/authz"
	"github.com/githubpalak/gas-utility-portal/internal/domain"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	apperrors "github.com/githubpalak/gas-utility-portal/pkg/util"
)

// RequestService coordinates the service request lifecycle.
type RequestService struct {
	requests   repository.ServiceRequestRepository
	identities repository.IdentityRepository
	categories repository.CategoryRepository
	history    repository.StatusHistoryRepository
	dispatcher events.Dispatcher
	policy     TransitionPolicy
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      Clock
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.ServiceRequestRepository
	IdentityRepo repository.IdentityRepository
	CategoryRepo repository.CategoryRepository
	HistoryRepo  repository.StatusHistoryRepository
	Dispatcher   events.Dispatcher
	// Policy defaults to AnyTransition.
	Policy  TransitionPolicy
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Clock   Clock
}

// RequestCreateInput describes a new service request.
type RequestCreateInput struct {
	// CustomerID is required when staff file on a customer's behalf and
	// ignored for customers filing for themselves.
	CustomerID     string
	CategoryID     string
	Title          string
	Description    string
	Priority       domain.RequestPriority
	ServiceAddress *string
	MeterID        *string
}

// RequestUpdateInput carries descriptive field edits. Nil fields are left unchanged.
type RequestUpdateInput struct {
	CategoryID     *string
	Title          *string
	Description    *string
	Priority       *domain.RequestPriority
	ServiceAddress *string
	MeterID        *string
}

// RequestListFilter describes request listing filters.
type RequestListFilter struct {
	CustomerID   string
	AssignedToID string
	Unassigned   bool
	CategoryID   string
	Statuses     []domain.RequestStatus
	Priorities   []domain.RequestPriority
	Search       string
	OrderBy      string
	Pagination
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	policy := deps.Policy
	if policy == nil {
		policy = AnyTransition{}
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		identities: deps.IdentityRepo,
		categories: deps.CategoryRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		policy:     policy,
		metrics:    deps.Metrics,
		logger:     defaultLogger(deps.Logger),
		clock:      defaultClock(deps.Clock),
	}
}

// Create files a new request. Customers file for themselves; staff must name a customer.
func (s *RequestService) Create(ctx context.Context, actor *domain.Identity, input RequestCreateInput) (*domain.ServiceRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	customer, err := s.resolveCustomer(ctx, actor, input.CustomerID)
	if err != nil {
		return nil, err
	}

	problems := map[string]any{}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		problems["title"] = "this field is required"
	} else if len(title) > 200 {
		problems["title"] = "must be at most 200 characters"
	}
	if description == "" {
		problems["description"] = "this field is required"
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	} else if !priority.Valid() {
		problems["priority"] = "unknown priority"
	}
	if err := s.checkCategory(ctx, input.CategoryID, problems); err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid service request", problems)
	}

	now := s.clock()
	req := &domain.ServiceRequest{
		RequestID:      uuid.NewString(),
		CustomerID:     customer.ID,
		CategoryID:     input.CategoryID,
		Title:          title,
		Description:    description,
		Status:         domain.StatusNew,
		Priority:       priority,
		ServiceAddress: optionalString(input.ServiceAddress),
		MeterID:        optionalString(input.MeterID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.ServiceAddress == nil {
		req.ServiceAddress = optionalString(customer.ServiceAddress)
	}
	if req.MeterID == nil {
		req.MeterID = optionalString(customer.MeterID)
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, conflictOr(err, "service request could not be stored")
	}

	s.logger.Info("service request created",
		zap.String("request_id", req.RequestID),
		zap.String("customer_id", req.CustomerID),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload: events.RequestCreatedPayload{
			CustomerID: req.CustomerID,
			CategoryID: req.CategoryID,
			Priority:   req.Priority,
			Title:      req.Title,
		},
	})
	return req, nil
}

func (s *RequestService) resolveCustomer(ctx context.Context, actor *domain.Identity, customerID string) (*domain.Identity, error) {
	if !actor.IsStaff() {
		if customerID != "" && customerID != actor.ID {
			return nil, apperrors.NewForbidden("customers can only file requests for themselves")
		}
		return actor, nil
	}
	if !authz.Can(actor, authz.CreateRequestForCustomer) {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, apperrors.NewValidationError("invalid service request", map[string]any{"customer_id": "this field is required"})
	}
	customer, err := s.identities.GetByID(ctx, customerID)
	if err != nil {
		return nil, notFoundOr(err, "customer", map[string]any{"customer_id": customerID})
	}
	if customer.Role != domain.RoleCustomer {
		return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": customerID})
	}
	return customer, nil
}

func (s *RequestService) checkCategory(ctx context.Context, categoryID string, problems map[string]any) error {
	if strings.TrimSpace(categoryID) == "" {
		problems["category_id"] = "this field is required"
		return nil
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		problems["category_id"] = "unknown category"
		return nil
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	if !category.IsActive {
		problems["category_id"] = "category is inactive"
	}
	return nil
}

// Get returns a request visible to actor. Requests outside the actor's scope
// are reported as not found.
func (s *RequestService) Get(ctx context.Context, actor *domain.Identity, id string) (*domain.ServiceRequest, error) {
	return s.load(ctx, actor, id, authz.Read)
}

func (s *RequestService) load(ctx context.Context, actor *domain.Identity, id string, op authz.Op) (*domain.ServiceRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "service request", map[string]any{"id": id})
	}
	if !authz.CanAccessRequest(actor, req, authz.Read) {
		return nil, apperrors.NewNotFound("service request", map[string]any{"id": id})
	}
	if op == authz.Write && !authz.CanAccessRequest(actor, req, authz.Write) {
		return nil, apperrors.NewForbidden("read-only access to this request")
	}
	return req, nil
}

// List returns a page of requests inside the actor's scope.
func (s *RequestService) List(ctx context.Context, actor *domain.Identity, filter RequestListFilter) (*Page[domain.ServiceRequest], error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewInvalidStatus("unknown status filter", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": p})
		}
	}

	paging := filter.Pagination.normalize()
	repoFilter := repository.ServiceRequestFilter{
		CustomerID:   filter.CustomerID,
		AssignedToID: filter.AssignedToID,
		Unassigned:   filter.Unassigned,
		CategoryID:   filter.CategoryID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Search:       filter.Search,
		OrderBy:      filter.OrderBy,
	}
	if scope := authz.ScopeForRequests(actor); !scope.All() {
		repoFilter.CustomerID = scope.CustomerID
	}

	total, err := s.requests.Count(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	repoFilter.Limit = paging.PageSize
	repoFilter.Offset = paging.offset()
	items, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.ServiceRequest{}
	}
	return &Page[domain.ServiceRequest]{Items: items, Total: total, Page: paging.Page, PageSize: paging.PageSize}, nil
}

// Update edits descriptive fields. Status, customer and assignment are not editable here.
func (s *RequestService) Update(ctx context.Context, actor *domain.Identity, id string, input RequestUpdateInput) (*domain.ServiceRequest, error) {
	req, err := s.load(ctx, actor, id, authz.Write)
	if err != nil {
		return nil, err
	}

	problems := map[string]any{}
	var changed []string
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > 200 {
			problems["title"] = "must be 1 to 200 characters"
		} else if title != req.Title {
			req.Title = title
			changed = append(changed, "title")
		}
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			problems["description"] = "this field may not be blank"
		} else if description != req.Description {
			req.Description = description
			changed = append(changed, "description")
		}
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			problems["priority"] = "unknown priority"
		} else if *input.Priority != req.Priority {
			req.Priority = *input.Priority
			changed = append(changed, "priority")
		}
	}
	if input.CategoryID != nil && *input.CategoryID != req.CategoryID {
		if err := s.checkCategory(ctx, *input.CategoryID, problems); err != nil {
			return nil, err
		}
		req.CategoryID = *input.CategoryID
		changed = append(changed, "category_id")
	}
	if input.ServiceAddress != nil {
		req.ServiceAddress = optionalString(input.ServiceAddress)
		changed = append(changed, "service_address")
	}
	if input.MeterID != nil {
		req.MeterID = optionalString(input.MeterID)
		changed = append(changed, "meter_id")
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid service request", problems)
	}
	if len(changed) == 0 {
		return req, nil
	}

	req.UpdatedAt = s.clock()
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, notFoundOr(err, "service request", map[string]any{"id": id})
	}
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventRequestUpdated,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload:   events.RequestUpdatedPayload{Fields: changed},
	})
	return req, nil
}

// ChangeStatus moves a request to newStatus and appends the audit entry in
// the same transaction. Only staff may change status.
func (s *RequestService) ChangeStatus(ctx context.Context, actor *domain.Identity, id string, newStatus domain.RequestStatus, comment string) (*domain.ServiceRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.ChangeStatus) {
		return nil, apperrors.NewForbidden("only staff can change request status")
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewInvalidStatus("invalid status", map[string]any{
			"status":  newStatus,
			"allowed": domain.Statuses,
		})
	}

	comment = strings.TrimSpace(comment)
	var previous domain.RequestStatus
	req, err := s.requests.Mutate(ctx, id, func(req *domain.ServiceRequest) (*domain.StatusHistoryEntry, error) {
		previous = req.Status
		if !s.policy.Allowed(previous, newStatus) {
			return nil, apperrors.NewInvalidStatus("status transition not allowed", map[string]any{
				"from": previous,
				"to":   newStatus,
			})
		}
		now := s.clock()
		req.Status = newStatus
		if newStatus == domain.StatusCompleted && previous != domain.StatusCompleted {
			req.CompletedAt = &now
		}
		req.UpdatedAt = now
		return &domain.StatusHistoryEntry{
			PreviousStatus: previous,
			NewStatus:      newStatus,
			ChangedByID:    actor.ID,
			ChangedAt:      now,
			Comment:        comment,
		}, nil
	})
	if err != nil {
		return nil, notFoundOr(err, "service request", map[string]any{"id": id})
	}

	s.metrics.RecordTransition(string(previous), string(newStatus))
	s.logger.Info("service request status changed",
		zap.String("request_id", req.RequestID),
		zap.String("from", string(previous)),
		zap.String("to", string(newStatus)),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload: events.RequestStatusChangedPayload{
			OldStatus: previous,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return req, nil
}

// Assign sets or clears the staff member responsible for a request. A nil
// staffID unassigns.
func (s *RequestService) Assign(ctx context.Context, actor *domain.Identity, id string, staffID *string) (*domain.ServiceRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !authz.Can(actor, authz.AssignRequests) {
		return nil, apperrors.NewForbidden("only staff can assign requests")
	}

	var assignee *string
	if staffID != nil {
		staff, err := s.identities.GetByID(ctx, *staffID)
		if err != nil {
			return nil, notFoundOr(err, "staff member", map[string]any{"staff_id": *staffID})
		}
		if !staff.IsStaff() {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"staff_id": *staffID})
		}
		assignee = &staff.ID
	}

	var previous *string
	req, err := s.requests.Mutate(ctx, id, func(req *domain.ServiceRequest) (*domain.StatusHistoryEntry, error) {
		previous = req.AssignedToID
		req.AssignedToID = assignee
		req.UpdatedAt = s.clock()
		return nil, nil
	})
	if err != nil {
		return nil, notFoundOr(err, "service request", map[string]any{"id": id})
	}

	s.logger.Info("service request assignment changed",
		zap.String("request_id", req.RequestID),
		zap.Stringp("assigned_to_id", assignee),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, s.clock, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: req.ID,
		Reference: req.RequestID,
		Actor:     events.ActorFrom(actor),
		Payload: events.RequestAssignedPayload{
			PreviousAssignedToID: previous,
			AssignedToID:         assignee,
		},
	})
	return req, nil
}

// History returns the status audit trail, newest first.
func (s *RequestService) History(ctx context.Context, actor *domain.Identity, id string) ([]domain.StatusHistoryEntry, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.StatusHistoryEntry{}
	}
	return entries, nil
}
