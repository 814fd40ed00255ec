package events

import (
	"time"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "service_request_created"
	EventRequestUpdated       EventType = "service_request_updated"
	EventRequestStatusChanged EventType = "service_request_status_changed"
	EventRequestAssigned      EventType = "service_request_assigned"
	EventCommentAdded         EventType = "service_request_comment_added"
	EventAttachmentAdded      EventType = "service_request_attachment_added"
)

// AllEventTypes lists every event type, in the order above.
var AllEventTypes = []EventType{
	EventRequestCreated,
	EventRequestUpdated,
	EventRequestStatusChanged,
	EventRequestAssigned,
	EventCommentAdded,
	EventAttachmentAdded,
}

// Actor identifies who caused an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorFrom builds the event actor for identity.
func ActorFrom(identity *domain.Identity) Actor {
	if identity == nil {
		return Actor{}
	}
	return Actor{ID: identity.ID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Reference string      `json:"reference"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	CustomerID string                 `json:"customer_id"`
	CategoryID string                 `json:"category_id"`
	Priority   domain.RequestPriority `json:"priority"`
	Title      string                 `json:"title"`
}

// RequestUpdatedPayload lists the descriptive fields that changed.
type RequestUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
}

// RequestAssignedPayload payload. A nil AssignedToID means the request was unassigned.
type RequestAssignedPayload struct {
	PreviousAssignedToID *string `json:"previous_assigned_to_id,omitempty"`
	AssignedToID         *string `json:"assigned_to_id,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// AttachmentAddedPayload payload.
type AttachmentAddedPayload struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
}
