package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/orders", "orders"},
		{"/api/v1/orders/:id", "orders"},
		{"/api/v2/debug/batch/:id", "debug"},
		{"/health", "health"},
		{"", ""},
		{"/api/v1/:id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceFromRoute(tt.route))
		})
	}
}

func TestProfilingLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("labels the request context", func(t *testing.T) {
		router := gin.New()
		router.Use(ProfilingLabels(DefaultProfilingConfig()))
		var route, method string
		router.GET("/api/v1/orders/:id", func(c *gin.Context) {
			route, _ = pprof.Label(c.Request.Context(), "route")
			method, _ = pprof.Label(c.Request.Context(), "method")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/SO-1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "/api/v1/orders/:id", route)
		assert.Equal(t, http.MethodGet, method)
	})

	t.Run("skipped path is not labelled", func(t *testing.T) {
		router := gin.New()
		router.Use(ProfilingLabels(DefaultProfilingConfig()))
		var labelled bool
		router.GET("/health", func(c *gin.Context) {
			_, labelled = pprof.Label(c.Request.Context(), "route")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.False(t, labelled)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(ProfilingLabels(ProfilingConfig{}))
		router.GET("/api/v1/orders", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
