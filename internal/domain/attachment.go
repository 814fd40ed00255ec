package domain

import "time"

// Attachment stores metadata for a file uploaded against a service request.
type Attachment struct {
	ID           string
	RequestID    string
	FileRef      string
	FileName     string
	ContentType  string
	SizeBytes    int64
	UploadedByID string
	UploadedAt   time.Time
}
