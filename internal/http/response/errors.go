package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/seatrips/internal/apiclient"
	"github.com/diagnosis/seatrips/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Details  string            `json:"details,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeValidation    = "VALIDATION_FAILED"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeUpstream      = "UPSTREAM_UNAVAILABLE"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeLoginBlocked  = "LOGIN_BLOCKED"
	CodeLoginFailed   = "LOGIN_FAILED"
	CodeStalePreview  = "STALE_PREVIEW"
	CodeBookingFailed = "BOOKING_FAILED"
	CodeAlreadyBooked = "ALREADY_SUBMITTED"
)

// LoginPath is where the browser goes after its credentials are rejected.
const LoginPath = "/login"

func Write(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	Write(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteErrorWithDetails writes a structured JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, code, details string) {
	Write(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

func ValidationFailed(w http.ResponseWriter, message string, fields map[string]string) {
	Write(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeValidation, Fields: fields})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

// Unauthorized tells the browser its session is gone and where to go next.
func Unauthorized(w http.ResponseWriter, message string) {
	Write(w, http.StatusUnauthorized, ErrorResponse{Error: message, Code: CodeUnauthorized, Redirect: LoginPath})
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func Conflict(w http.ResponseWriter, message, code string) {
	WriteError(w, http.StatusConflict, message, code)
}

// FromAPIError maps an upstream client error onto the gateway's error shape.
// Unauthorized is not handled here: callers clear the session first.
func FromAPIError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		InternalError(w, fallback)
		return
	}

	msg := apiErr.Message(fallback)
	switch apiErr.Kind {
	case apiclient.KindValidation:
		Write(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeValidation, Fields: apiErr.FieldMessages()})
	case apiclient.KindUnauthorized:
		Unauthorized(w, msg)
	case apiclient.KindForbidden:
		Forbidden(w, msg)
	case apiclient.KindNotFound:
		NotFound(w, msg)
	case apiclient.KindTransport:
		WriteError(w, http.StatusBadGateway, fallback, CodeUpstream)
	default:
		WriteErrorWithDetails(w, http.StatusBadGateway, fallback, CodeUpstream, apiErr.Detail)
	}
}
