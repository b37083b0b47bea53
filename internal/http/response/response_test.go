package response

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addonsdir/addons-server/internal/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"status": "success"}, decode(t, w))
}

func TestError_Helpers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name  string
		write func(http.ResponseWriter)
		code  int
		msg   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid request.", logger) }, http.StatusBadRequest, "Invalid request."},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "Invalid credentials", logger) }, http.StatusForbidden, "Invalid credentials"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Addon not found.", logger) }, http.StatusNotFound, "Addon not found."},
		{"too many", func(w http.ResponseWriter) { TooManyRequests(w, "slow down", nil) }, http.StatusTooManyRequests, "slow down"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, logger) }, http.StatusInternalServerError, MsgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, map[string]any{"status": "error", "message": tt.msg}, decode(t, w))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"invalid credentials answer 403", errors.InvalidCredentials("Invalid credentials"), http.StatusForbidden, "Invalid credentials"},
		{"invalid request", errors.InvalidRequest("Invalid request."), http.StatusBadRequest, "Invalid request."},
		{"validation", errors.Validation("Missing or invalid payload"), http.StatusBadRequest, "Missing or invalid payload"},
		{"not found", errors.NotFound("Addon not found."), http.StatusNotFound, "Addon not found."},
		{"wrapped coded error", fmt.Errorf("handle: %w", errors.NotFound("Addon not found.")), http.StatusNotFound, "Addon not found."},
		{"internal code hides message", errors.Internal("disk on fire"), http.StatusInternalServerError, MsgInternalError},
		{"plain error", errors.New("database is locked"), http.StatusInternalServerError, MsgInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := StatusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestHandleError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, fmt.Errorf("update versions: %w", errors.New("github: 502")), nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"status": "error", "message": MsgInternalError}, decode(t, w))
}
