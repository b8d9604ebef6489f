package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nardwin/platform/internal/domain"
)

func TestRespondError(t *testing.T) {
	t.Run("app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondError(rec, domain.ErrBelowMinimum("amount too small"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "BELOW_MINIMUM", body["code"])
		assert.Equal(t, "amount too small", body["message"])
	})

	t.Run("wrapped app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := fmt.Errorf("withdraw: %w", domain.ErrInsufficientBalance(5000))
		RespondError(rec, wrapped)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "INSUFFICIENT_BALANCE", body["code"])
	})

	t.Run("unknown error hides detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondError(rec, fmt.Errorf("pq: connection reset"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS("https://nardwin.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/wallet/deposit", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://nardwin.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLooseString(t *testing.T) {
	// Webhook payloads carry status as a JSON number, sandbox payloads as a
	// string; both must canonicalize identically.
	assert.Equal(t, "1", looseString(float64(1)))
	assert.Equal(t, "paid", looseString("paid"))
	assert.Equal(t, "", looseString(nil))

	assert.Nil(t, looseStringPtr(nil))
	require.NotNil(t, looseStringPtr(float64(18502917)))
	assert.Equal(t, "18502917", *looseStringPtr(float64(18502917)))
}
