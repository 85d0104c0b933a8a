package types

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope returned by the console.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError is the wire representation of an *Error (see errors.go).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Config is the console's process configuration, loaded from the
// environment by gateway/main.go.
type Config struct {
	Port        int    `json:"port"`
	JWTSecret   string `json:"jwt_secret"`
	LogLevel    string `json:"log_level"`
	Environment string `json:"environment"`
	ServiceName string `json:"service_name"`
	MetricsPort int     `json:"metrics_port"`
}

// NewRequestID generates a new request ID.
func NewRequestID() string {
	return uuid.New().String()
}

// NewAPIResponse creates a successful API response.
func NewAPIResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// NewAPIError wraps an *Error into the standard error response envelope.
func NewAPIError(err *Error, requestID string) *APIResponse {
	return &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    string(err.Code),
			Message: err.Message,
			Details: err.Details,
		},
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}
