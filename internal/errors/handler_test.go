package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defiguard/internal/returns"
)

func testHandler() *ErrorHandler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewErrorHandler(logger, false)
}

func TestErrorToProblemInsufficientData(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", nil)

	err := fmt.Errorf("analysis: %w", &returns.InsufficientDataError{
		Remaining: 1,
		Excluded: []returns.Exclusion{
			{Symbol: "NEW", Reason: returns.ReasonInsufficientHistory},
		},
	})

	problem := h.ErrorToProblem(err, r)
	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, TypeInsufficientData, problem.Type)
	assert.Equal(t, 1, problem.Extensions["remaining_assets"])
	require.NotNil(t, problem.Extensions["excluded"])
}

func TestErrorToProblemContextDeadline(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", nil)

	problem := h.ErrorToProblem(context.DeadlineExceeded, r)
	assert.Equal(t, http.StatusGatewayTimeout, problem.Status)
	assert.Equal(t, TypeTimeout, problem.Type)
}

func TestErrorToProblemAPIError(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	problem := h.ErrorToProblem(ErrValidationFailed, r)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, TypeValidation, problem.Type)
	assert.Equal(t, "VALIDATION_FAILED", problem.Extensions["error_code"])
}

func TestErrorToProblemUnknownErrorIsInternal(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)

	problem := h.ErrorToProblem(fmt.Errorf("boom"), r)
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Equal(t, TypeInternal, problem.Type)
}

func TestHandleErrorWritesProblemJSON(t *testing.T) {
	h := testHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/risk/analyze", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, &returns.InsufficientDataError{Remaining: 0})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInsufficientData, body["type"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), body["status"])
}

func TestProblemDetailsMarshalIncludesExtensions(t *testing.T) {
	pd := NewProblemDetails(422, TypeInsufficientData, "Insufficient Data", "detail", "/api/risk/analyze").
		WithExtension("remaining_assets", 1)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(1), got["remaining_assets"])
	assert.Equal(t, "Insufficient Data", got["title"])
}

func TestSanitizeRequestBody(t *testing.T) {
	body := `{"wallet_key":"0xdeadbeef","window_days":365}`
	got := sanitizeRequestBody(body)
	assert.NotContains(t, got, "0xdeadbeef")
	assert.Contains(t, got, "[REDACTED]")
	assert.Contains(t, got, "window_days")
}
