// Package barberapi is the HTTP client for the barbershop booking backend.
package barberapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"barberbook/internal/model"
)

// CustomerPayload is the customer block of a booking request. Phone carries digits only.
type CustomerPayload struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required,numeric"`
}

// BookingRequest is the body of POST /barbershops/{shopId}/bookings.
type BookingRequest struct {
	Service  string          `json:"service" validate:"required"`
	Barber   string          `json:"barber" validate:"required"`
	Time     string          `json:"time" validate:"required"` // ISO 8601 UTC instant
	Customer CustomerPayload `json:"customer"`
}

// ManualBookingRequest is the body of POST /api/barbershops/{shopId}/admin/bookings.
type ManualBookingRequest struct {
	BookingRequest
	Status model.BookingStatus `json:"status" validate:"required,oneof=completed booked canceled"`
}

// APIError is a non-2xx response from the backend. Message holds the backend's
// own explanation, unmodified, when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports a 4xx response: the backend rejected the request itself.
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsConflict reports a slot race or overlapping entry.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

func newAPIError(code int, body []byte) *APIError {
	return &APIError{StatusCode: code, Message: extractMessage(body)}
}

// extractMessage pulls the human message out of the usual error envelopes
// ({"error": "..."}, {"message": "..."}), falling back to the raw body text.
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		var s string
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if len(env.Error) > 0 && json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return trimmed
}
