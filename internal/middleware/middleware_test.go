package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Trace", TraceID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowAll(t *testing.T) {
	h := NewCORSMiddleware([]string{"*"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/items/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflight(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.example"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/items/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	h := NewCORSMiddleware([]string{"https://app.example"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil-app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTracingPropagatesHeader(t *testing.T) {
	h := NewTracingMiddleware(nil).Handler(okHandler())

	const id = "6f1c2b0e-9a4d-4e1f-8c3a-2b7d5e9f0a11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, id)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Header().Get(TraceHeader))
	assert.Equal(t, id, rec.Header().Get("X-Seen-Trace"))
}

func TestTracingReplacesMalformedHeader(t *testing.T) {
	h := NewTracingMiddleware(nil).Handler(okHandler())

	for _, raw := range []string{"trace-123", strings.Repeat("a", 4096), "<script>"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceHeader, raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		id := rec.Header().Get(TraceHeader)
		assert.NotEqual(t, raw, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, rec.Header().Get("X-Seen-Trace"))
	}
}

func TestTracingGeneratesID(t *testing.T) {
	h := NewTracingMiddleware(nil).Handler(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Header().Get(TraceHeader)
	require.Len(t, id, 36)
	assert.Equal(t, id, rec.Header().Get("X-Seen-Trace"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, nil)
	h := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "rate limit exceeded", gjson.Get(last.Body.String(), "error").String())

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(rl.idle + time.Second)
	rl.getLimiter("b")
	rl.Cleanup()

	_, hasA := rl.limiters["a"]
	_, hasB := rl.limiters["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Chain(panicky, NewTracingMiddleware(nil).Handler, Recovery(nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unknown", gjson.Get(rec.Body.String(), "kind").String())
	assert.NotEmpty(t, rec.Header().Get(TraceHeader))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
