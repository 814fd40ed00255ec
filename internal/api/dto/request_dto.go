package dto

import (
	"time"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// CreateServiceRequest payload. customer_id is only read for staff callers.
type CreateServiceRequest struct {
	CustomerID     string                 `json:"customer_id"`
	CategoryID     string                 `json:"category_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Priority       domain.RequestPriority `json:"priority"`
	ServiceAddress *string                `json:"service_address"`
	MeterID        *string                `json:"meter_id"`
}

// UpdateServiceRequest payload; omitted fields stay unchanged.
type UpdateServiceRequest struct {
	CategoryID     *string                 `json:"category_id"`
	Title          *string                 `json:"title"`
	Description    *string                 `json:"description"`
	Priority       *domain.RequestPriority `json:"priority"`
	ServiceAddress *string                 `json:"service_address"`
	MeterID        *string                 `json:"meter_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.RequestStatus `json:"status"`
	Comment string               `json:"comment"`
}

// AssignRequest payload. A null staff_id clears the assignment.
type AssignRequest struct {
	StaffID *string `json:"staff_id"`
}

// ServiceRequestResponse is the full request view.
type ServiceRequestResponse struct {
	ID             string                 `json:"id"`
	RequestID      string                 `json:"request_id"`
	CustomerID     string                 `json:"customer_id"`
	CategoryID     string                 `json:"category_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         domain.RequestStatus   `json:"status"`
	StatusLabel    string                 `json:"status_display"`
	Priority       domain.RequestPriority `json:"priority"`
	PriorityLabel  string                 `json:"priority_display"`
	AssignedToID   *string                `json:"assigned_to_id"`
	ServiceAddress *string                `json:"service_address"`
	MeterID        *string                `json:"meter_id"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	CompletedAt    *time.Time             `json:"completed_at"`
}

// StatusHistoryResponse is one audit entry.
type StatusHistoryResponse struct {
	ID             string               `json:"id"`
	PreviousStatus domain.RequestStatus `json:"previous_status"`
	NewStatus      domain.RequestStatus `json:"new_status"`
	ChangedByID    string               `json:"changed_by_id"`
	ChangedAt      time.Time            `json:"changed_at"`
	Comment        string               `json:"comment"`
}

// CommentRequest payload.
type CommentRequest struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Text       string    `json:"text"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	UploadedByID string    `json:"uploaded_by_id"`
	UploadedAt   time.Time `json:"uploaded_at"`
	URL          string    `json:"url"`
}

// CategoryRequest payload for create and update.
type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Slug        *string `json:"slug"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryResponse view.
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Slug        string `json:"slug"`
	IsActive    bool   `json:"is_active"`
}
