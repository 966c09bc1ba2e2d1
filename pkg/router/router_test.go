package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/pkg/config"
	"chat-widget-demo/engine/pkg/di"
	"chat-widget-demo/engine/pkg/logger"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logCfg := logger.DefaultConfig()
	logCfg.Level = "error"
	log := logger.New(logCfg)

	container, err := di.New(config.New(), log)
	require.NoError(t, err)
	container.Health.RunChecks()

	r := New(container)
	r.SetupRoutes()
	return r
}

func serve(r *Router, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "components")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWidgetRoutesRequireEmbedToken(t *testing.T) {
	r := newTestRouter(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/widget/session/resume"},
		{http.MethodPost, "/api/widget/session/reset"},
		{http.MethodGet, "/api/widget/session/history"},
		{http.MethodPost, "/api/widget/messages"},
		{http.MethodPost, "/api/widget/feedback"},
		{http.MethodGet, "/api/widget/feedback/pending"},
	} {
		w := serve(r, route.method, route.path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestAdminRoutesDisabledWithoutKeyHash(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/api/admin/instances")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	r := newTestRouter(t)

	w := serve(r, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
