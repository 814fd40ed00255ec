package domain

import "time"

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	StatusNew        RequestStatus = "new"
	StatusAssigned   RequestStatus = "assigned"
	StatusInProgress RequestStatus = "in_progress"
	StatusOnHold     RequestStatus = "on_hold"
	StatusCompleted  RequestStatus = "completed"
	StatusClosed     RequestStatus = "closed"
	StatusCancelled  RequestStatus = "cancelled"
)

// Statuses lists every status in workflow order.
var Statuses = []RequestStatus{
	StatusNew,
	StatusAssigned,
	StatusInProgress,
	StatusOnHold,
	StatusCompleted,
	StatusClosed,
	StatusCancelled,
}

var statusLabels = map[RequestStatus]string{
	StatusNew:        "New",
	StatusAssigned:   "Assigned",
	StatusInProgress: "In Progress",
	StatusOnHold:     "On Hold",
	StatusCompleted:  "Completed",
	StatusClosed:     "Closed",
	StatusCancelled:  "Cancelled",
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable status name.
func (s RequestStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// RequestPriority enumerates request urgency.
type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []RequestPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var priorityLabels = map[RequestPriority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
	PriorityUrgent: "Urgent",
}

// Valid reports whether p is a known priority.
func (p RequestPriority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

// Label returns the human readable priority name.
func (p RequestPriority) Label() string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}
	return string(p)
}

// ServiceRequest is the aggregate for customer service requests.
type ServiceRequest struct {
	ID             string
	RequestID      string
	CustomerID     string
	CategoryID     string
	Title          string
	Description    string
	Status         RequestStatus
	Priority       RequestPriority
	AssignedToID   *string
	ServiceAddress *string
	MeterID        *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}
