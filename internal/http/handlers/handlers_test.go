package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/apperr"
	testlog "service-dispatch/internal/testutil"
)

func TestHandlers_Ping(t *testing.T) {
	t.Parallel()

	h := New(nil)
	rr := httptest.NewRecorder()
	h.Ping(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "pong", body["message"])
}

func TestHandlers_HealthcheckAndNotFound(t *testing.T) {
	t.Parallel()

	h := New(nil)

	rr := httptest.NewRecorder()
	h.HealthcheckHead(rr, httptest.NewRequest(http.MethodHead, "/healthcheck", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"route not found","code":"NOT_FOUND"}`, rr.Body.String())
}

func TestWriteError_StatusByKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.New(apperr.ErrInvalid, "bad"), http.StatusBadRequest, "INVALID_INPUT"},
		{apperr.New(apperr.ErrInvalidCoordinate, "lat"), http.StatusBadRequest, "INVALID_COORDINATE"},
		{apperr.New(apperr.ErrNotFound, "order not found"), http.StatusNotFound, "NOT_FOUND"},
		{apperr.New(apperr.ErrPrecondition, "location not set"), http.StatusPreconditionFailed, "PRECONDITION_FAILED"},
		{apperr.New(apperr.ErrConflict, "already assigned"), http.StatusConflict, "CONFLICT"},
		{apperr.New(apperr.ErrForbidden, "not your delivery"), http.StatusForbidden, "FORBIDDEN"},
		{apperr.New(apperr.ErrBadRequest, "order is PICKED_UP"), http.StatusBadRequest, "BAD_REQUEST"},
		{apperr.New(apperr.ErrUnauthorized, "missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("wrapped: %w", apperr.New(apperr.ErrConflict, "x")), http.StatusConflict, "CONFLICT"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(testlog.New().Logger(), rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			assert.Equal(t, tc.status, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, apperr.Message(tc.err), body.Error)
		})
	}
}

func TestWriteError_InternalIsHiddenAndLogged(t *testing.T) {
	t.Parallel()

	logs := testlog.New()
	rr := httptest.NewRecorder()
	writeError(logs.Logger(), rr, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: connection reset"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":"internal error","code":"INTERNAL"}`, rr.Body.String())
	entries := logs.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "error", entries[0].Level)
}
