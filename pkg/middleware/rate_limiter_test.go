package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"chat-widget-demo/engine/pkg/errors"
	"chat-widget-demo/engine/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newLimitedEngine(t *testing.T, options RateLimiterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(errors.ErrorHandler())
	engine.Use(NewRateLimiter(testLogger(), options).Middleware())
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func get(engine *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestConfiguredLimitIsEnforced(t *testing.T) {
	options := DefaultRateLimiterOptions()
	options.Limit = 1
	options.Burst = 1
	options.KeyFunc = func(*gin.Context) string { return "fixed" }

	engine := newLimitedEngine(t, options)

	assert.Equal(t, http.StatusOK, get(engine).Code)

	// The bucket is drained; the second immediate request must be rejected
	w := get(engine)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), errors.CodeRateLimited)
}

func TestBurstAbsorbsSpikeUpToConfiguredSize(t *testing.T) {
	options := DefaultRateLimiterOptions()
	options.Limit = 1
	options.Burst = 3
	options.KeyFunc = func(*gin.Context) string { return "fixed" }

	engine := newLimitedEngine(t, options)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(engine).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(engine).Code)
}

func TestLimitIsTrackedPerKey(t *testing.T) {
	options := DefaultRateLimiterOptions()
	options.Limit = 1
	options.Burst = 1
	options.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-Test-Key") }

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(errors.ErrorHandler())
	engine.Use(NewRateLimiter(testLogger(), options).Middleware())
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(key string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Test-Key", key)
		engine.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))

	// A different client still has a full bucket
	assert.Equal(t, http.StatusOK, send("b"))
}
