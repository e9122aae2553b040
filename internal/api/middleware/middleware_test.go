package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	r.GET("/err", func(*gin.Context) { panic(http.ErrAbortHandler) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/err", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An unexpected error occurred")
}

func TestLoggerKeepsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestCORSRestrictsOrigins(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://pumps.example.org"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for origin, want := range map[string]string{
		"https://pumps.example.org": "https://pumps.example.org",
		"https://elsewhere.example": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	for _, p := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	m.Simulation("mppt", time.Second, 3)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{route="/items/:id",status="200"} 2`)
	assert.Contains(t, body, `http_requests_total{route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `simulations_total{coupling="mppt"} 1`)
	assert.Contains(t, body, "simulation_unresolved_timesteps_total 3")
	assert.Contains(t, body, "simulation_duration_seconds_count 1")
	assert.Contains(t, body, "ledger_cache_misses_total 2")

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.Simulation("direct", 0, 0)
		nilMetrics.CacheHit()
	})
}
