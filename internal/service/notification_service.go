package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
)

// NotificationService turns domain events into customer and staff notices.
// Delivery is a logged stub; the Redis sink carries events to external consumers.
type NotificationService struct {
	dispatcher events.Dispatcher
	identities repository.IdentityRepository
	requests   repository.ServiceRequestRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher   events.Dispatcher
	IdentityRepo repository.IdentityRepository
	RequestRepo  repository.ServiceRequestRepository
	Logger       *zap.Logger
	Config       config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		identities: deps.IdentityRepo,
		requests:   deps.RequestRepo,
		logger:     defaultLogger(deps.Logger),
		cfg:        deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCreated", zap.String("request_id", event.Reference), zap.Any("payload", event.Payload))
	return n.notifyCustomer(ctx, event, "Your service request has been received")
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestStatusChanged", zap.String("request_id", event.Reference), zap.Any("payload", event.Payload))
	subject := "Your service request was updated"
	if p, ok := event.Payload.(events.RequestStatusChangedPayload); ok {
		subject = "Your service request is now " + p.NewStatus.Label()
	}
	return n.notifyCustomer(ctx, event, subject)
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestAssigned", zap.String("request_id", event.Reference), zap.Any("payload", event.Payload))
	p, ok := event.Payload.(events.RequestAssignedPayload)
	if !ok || p.AssignedToID == nil {
		return nil
	}
	assignee, err := n.identities.GetByID(ctx, *p.AssignedToID)
	if err != nil {
		return err
	}
	n.sendEmailStub(assignee.Email, "A service request was assigned to you", event)
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCommentAdded", zap.String("request_id", event.Reference), zap.Any("payload", event.Payload))
	p, ok := event.Payload.(events.CommentAddedPayload)
	// internal notes and the customer's own comments do not notify the customer
	if !ok || p.IsInternal {
		return nil
	}
	req, err := n.requests.GetByID(ctx, event.RequestID)
	if err != nil {
		return err
	}
	if req.CustomerID == p.AuthorID {
		return nil
	}
	return n.notifyCustomer(ctx, event, "New reply on your service request")
}

func (n *NotificationService) notifyCustomer(ctx context.Context, event events.Event, subject string) error {
	req, err := n.requests.GetByID(ctx, event.RequestID)
	if err != nil {
		return err
	}
	customer, err := n.identities.GetByID(ctx, req.CustomerID)
	if err != nil {
		return err
	}
	n.sendEmailStub(customer.Email, subject, event)
	return nil
}

func (n *NotificationService) sendEmailStub(to, subject string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || strings.TrimSpace(to) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("request_id", event.Reference),
		zap.String("event_type", string(event.Type)))
}
