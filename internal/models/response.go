package models

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Notifier  string `json:"notifier"`
	Connected bool   `json:"connected"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// DeliveryResponse is returned for a processed webhook delivery
type DeliveryResponse struct {
	*ReviewResult
	Dispatch *DispatchOutcome `json:"dispatch,omitempty"`
}
