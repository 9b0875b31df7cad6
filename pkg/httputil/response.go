// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// APIError is the body of the error envelope
type APIError struct {
	Code      errx.Code              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ErrorEnvelope wraps every error response
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewErrorEnvelope builds the envelope for err. Uncategorized errors become
// INTERNAL; their cause is only included in development mode.
func NewErrorEnvelope(r *http.Request, err error) (int, ErrorEnvelope) {
	e := errx.From(err)
	ctx := r.Context()

	details := e.Details
	if e.Err != nil && contextkeys.IsDevMode(ctx) {
		details = make(map[string]interface{}, len(e.Details)+1)
		for k, v := range e.Details {
			details[k] = v
		}
		details["cause"] = e.Err.Error()
	}

	status := e.HTTPStatus
	if status == 0 {
		status = e.Code.HTTPStatus()
	}

	return status, ErrorEnvelope{Error: APIError{
		Code:      e.Code,
		Message:   e.Message,
		Details:   details,
		RequestID: contextkeys.GetRequestID(ctx),
		Timestamp: time.Now().UTC(),
	}}
}

// WriteAPIError renders err through the error envelope
func WriteAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, envelope := NewErrorEnvelope(r, err)
	_ = WriteJSON(w, status, envelope)
}

// WriteValidationError writes a VALIDATION_FAILED envelope (400 Bad Request)
func WriteValidationError(w http.ResponseWriter, r *http.Request, message string) {
	WriteAPIError(w, r, errx.New(errx.CodeValidationFailed, message))
}
