package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CorrelationID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	t.Run("reuses a well formed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "req-42")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rec.Header().Get(CorrelationIDHeader))
	})

	t.Run("replaces a malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "evil\" level=ERROR")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.NotEqual(t, "evil\" level=ERROR", seen)
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))
	})

	t.Run("generates one when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
	})
}

func TestValidCorrelationID(t *testing.T) {
	assert.True(t, validCorrelationID("update-17"))
	assert.False(t, validCorrelationID(""))
	assert.False(t, validCorrelationID(strings.Repeat("a", maxCorrelationIDLen+1)))
	assert.False(t, validCorrelationID("a b"))
}
