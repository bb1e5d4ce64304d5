package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorClass buckets every failed upstream call into exactly one
// user-actionable category.
type ErrorClass string

const (
	ClassAuthExpired        ErrorClass = "authExpired"
	ClassValidationRejected ErrorClass = "validationRejected"
	ClassDuplicateBooking   ErrorClass = "duplicateBooking"
	ClassServerError        ErrorClass = "serverError"
	ClassNetworkUnreachable ErrorClass = "networkUnreachable"
	ClassMalformedResponse  ErrorClass = "malformedResponse"
)

// APIError is a classified upstream failure.
type APIError struct {
	Class   ErrorClass
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// NewAPIError builds an APIError with a plain message.
func NewAPIError(class ErrorClass, status int, message string) *APIError {
	return &APIError{Class: class, Status: status, Message: message}
}

// duplicateMarkers are the database error fragments the upstream leaks as
// plain text when a slot is booked twice.
var duplicateMarkers = []string{
	"duplicate",
	"unique constraint",
	"already booked",
	"e11000",
}

// ClassifyResponse maps a non-2xx upstream response to an APIError.
func ClassifyResponse(status int, body []byte) *APIError {
	text := string(body)

	if isDuplicateText(text) {
		return NewAPIError(ClassDuplicateBooking, status, "slot already booked, pick another")
	}

	switch {
	case status == 401 || status == 403:
		return NewAPIError(ClassAuthExpired, status, "session expired, please sign in again")
	case status == 400 || status == 422:
		return NewAPIError(ClassValidationRejected, status, serverMessage(body))
	case status >= 500:
		return NewAPIError(ClassServerError, status, "the booking service is unavailable, try again later")
	default:
		return NewAPIError(ClassServerError, status, fmt.Sprintf("unexpected response status %d", status))
	}
}

// isDuplicateText detects a unique-violation leaked as raw error text.
func isDuplicateText(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range duplicateMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// serverMessage extracts a human message from a JSON error body, falling back
// to a generic one for non-JSON payloads.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "the booking service rejected the request"
}
