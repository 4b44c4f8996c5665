package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jonesrussell/feedback-api/internal/metrics"
	"github.com/jonesrussell/feedback-api/internal/middleware"
)

const testRateLimit = 3

func newLimitedRouter(name string, limit int, done <-chan struct{}, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RateLimiter(name, limit, done, m))
	r.POST("/feedback", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func send(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/feedback", http.NoBody)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := newLimitedRouter(middleware.LimiterFeedback, testRateLimit, done, nil)
	if w := send(r, "1.2.3.4:1234"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	m := metrics.New(prometheus.NewRegistry())
	r := newLimitedRouter(middleware.LimiterFeedback, testRateLimit, done, m)

	for i := range testRateLimit {
		if w := send(r, "1.2.3.4:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := send(r, "1.2.3.4:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Too many feedback submissions, please try again later") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if got := testutil.ToFloat64(m.RateLimited.WithLabelValues(middleware.LimiterFeedback)); got != 1 {
		t.Errorf("rate_limited_total = %v, want 1", got)
	}
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	done := make(chan struct{})
	defer close(done)

	r := newLimitedRouter(middleware.LimiterSnapshot, 1, done, nil)

	if w := send(r, "1.1.1.1:1"); w.Code != http.StatusOK {
		t.Fatalf("first IP: expected 200, got %d", w.Code)
	}
	if w := send(r, "1.1.1.1:1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first IP again: expected 429, got %d", w.Code)
	}
	if w := send(r, "2.2.2.2:2"); w.Code != http.StatusOK {
		t.Fatalf("second IP: expected 200, got %d", w.Code)
	}
}

func TestRateLimiter_DisabledWhenZero(t *testing.T) {
	r := newLimitedRouter(middleware.LimiterGeneral, 0, nil, nil)
	for range 10 {
		if w := send(r, "1.2.3.4:1234"); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
}
