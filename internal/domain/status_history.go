package domain

import "time"

// StatusHistoryEntry is an immutable audit trail entry for a status change.
type StatusHistoryEntry struct {
	ID             string
	RequestID      string
	PreviousStatus RequestStatus
	NewStatus      RequestStatus
	ChangedByID    string
	ChangedAt      time.Time
	Comment        string
}
