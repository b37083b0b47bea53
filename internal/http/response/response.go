// Package response writes the status envelope used by raw (non-huma) handlers
// such as the push webhook.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/addonsdir/addons-server/internal/errors"
)

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MsgInternalError is sent for every error without a client-facing code.
const MsgInternalError = "Internal server error"

// Envelope is the body of every raw handler response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// JSON writes body as JSON with the given status code.
func JSON(w http.ResponseWriter, status int, body any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes 200 {"status":"success"}.
func Success(w http.ResponseWriter, logger *slog.Logger) {
	JSON(w, http.StatusOK, Envelope{Status: StatusSuccess}, logger)
}

// Error writes {"status":"error","message":message} with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, Envelope{Status: StatusError, Message: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// Forbidden writes a 403 Forbidden response.
func Forbidden(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusForbidden, message, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, MsgInternalError, logger)
}

// StatusFor returns the status code and message to send for err.
// Bad credentials answer 403 here, the webhook contract, rather than the
// 401 the JSON API uses. Errors without a code are internal.
func StatusFor(err error) (int, string) {
	var domainErr *errors.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, MsgInternalError
	}
	switch domainErr.Code {
	case errors.CodeInvalidCredentials:
		return http.StatusForbidden, domainErr.Message
	case errors.CodeInternal:
		return http.StatusInternalServerError, MsgInternalError
	default:
		return domainErr.HTTPStatus(), domainErr.Message
	}
}

// HandleError writes the response for err. Internal errors are logged with
// their cause; the client only sees the generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, status, message, logger)
}
