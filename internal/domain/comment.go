package domain

import "time"

// Comment is an entry in a service request's discussion thread.
// Internal comments are only visible to staff.
type Comment struct {
	ID         string
	RequestID  string
	AuthorID   string
	Text       string
	IsInternal bool
	CreatedAt  time.Time
}
