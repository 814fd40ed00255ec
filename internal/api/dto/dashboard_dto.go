package dto

// StatsResponse is the dashboard headline. Durations are seconds.
type StatsResponse struct {
	TotalRequests        int      `json:"total_requests"`
	NewRequests          int      `json:"new_requests"`
	InProgressRequests   int      `json:"in_progress_requests"`
	CompletedRequests    int      `json:"completed_requests"`
	HighPriorityRequests int      `json:"high_priority_requests"`
	UrgentRequests       int      `json:"urgent_requests"`
	AvgCompletionSeconds *float64 `json:"avg_completion_seconds"`
	UnassignedRequests   *int     `json:"unassigned_requests,omitempty"`
	TotalCustomers       *int     `json:"total_customers,omitempty"`
}

// BreakdownResponse is one row of a category, status or priority breakdown.
type BreakdownResponse struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AgentPerformanceResponse is one agent's workload.
type AgentPerformanceResponse struct {
	AgentID              string   `json:"agent_id"`
	AgentName            string   `json:"agent_name"`
	AssignedCount        int      `json:"assigned_count"`
	CompletedCount       int      `json:"completed_count"`
	ResolutionRate       float64  `json:"resolution_rate"`
	AvgCompletionSeconds *float64 `json:"avg_completion_seconds"`
}
