package gin_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/jonesrussell/feedback-api/infrastructure/gin"
	"github.com/jonesrussell/feedback-api/infrastructure/logger"
)

func newTestRouter(t *testing.T) *ginpkg.Engine {
	t.Helper()

	ginpkg.SetMode(ginpkg.TestMode)
	router := ginpkg.New()
	log := logger.NewNop()
	router.Use(infragin.RecoveryMiddleware(log))
	router.Use(infragin.RequestIDLoggerMiddleware(log))
	router.Use(infragin.LoggerMiddleware(log))
	return router
}

func TestRequestIDLoggerMiddleware_GeneratesUUID(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/test", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRequestIDLoggerMiddleware_PreservesInboundID(t *testing.T) {
	router := newTestRouter(t)

	var seen string
	router.GET("/test", func(c *ginpkg.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("X-Request-ID", "upstream-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "upstream-123", seen)
}

func TestRecoveryMiddleware_ReturnsEnvelope(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/boom", func(*ginpkg.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, w.Body.String())
}

func TestCORSMiddleware_ReflectsOriginForWildcard(t *testing.T) {
	router := newTestRouter(t)
	router.Use(infragin.CORSMiddleware(infragin.CORSConfig{}))
	router.POST("/feedback", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/feedback", http.NoBody)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthRoutes_DegradedAndUnhealthy(t *testing.T) {
	ginpkg.SetMode(ginpkg.TestMode)

	testCases := []struct {
		name       string
		dbErr      error
		redisErr   error
		wantCode   int
		wantStatus string
	}{
		{name: "all healthy", wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "redis down", redisErr: errors.New("down"), wantCode: http.StatusOK, wantStatus: "degraded"},
		{name: "database down", dbErr: errors.New("down"), wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router := ginpkg.New()
			infragin.RegisterHealthRoutes(router, infragin.HealthOptions{
				ServiceName:    "feedback-api",
				ServiceVersion: "test",
				Checks: map[string]infragin.HealthChecker{
					"database": infragin.DatabaseHealthChecker(func() error { return tc.dbErr }),
					"redis":    infragin.RedisHealthChecker(func() error { return tc.redisErr }),
				},
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			require.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"`+tc.wantStatus+`"`)
		})
	}
}
