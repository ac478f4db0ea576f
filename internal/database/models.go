package database

import (
	"time"
)

// Outcomes stored in action_logs.outcome.
const (
	OutcomeSuccess        = "success"
	OutcomeAPIError       = "api_error"
	OutcomeTransportError = "transport_error"
	OutcomeRejected       = "rejected"
)

// ActionLog is one signup or unregister attempt as relayed to the backend.
type ActionLog struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"` // "signup" or "unregister"
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
