package domain

// Category classifies service requests (gas leak, billing inquiry, ...).
type Category struct {
	ID          string
	Name        string
	Description string
	Slug        string
	IsActive    bool
}
