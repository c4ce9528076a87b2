package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crmbridge/gateway/internal/infrastructure/telemetry"
)

type MockHTTPRecorder struct {
	mock.Mock
}

func (m *MockHTTPRecorder) HTTPRequestStarted() {
	m.Called()
}

func (m *MockHTTPRecorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.Called(method, route, status, duration)
}

func TestHTTPMetrics_RoutePattern(t *testing.T) {
	recorder := new(MockHTTPRecorder)
	recorder.On("HTTPRequestStarted").Once()
	recorder.On("RecordHTTPRequest", http.MethodPatch, "/leads/:lead_id", http.StatusOK, mock.AnythingOfType("time.Duration")).Once()

	router := gin.New()
	router.Use(HTTPMetrics(recorder))
	router.PATCH("/leads/:lead_id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/leads/42", nil))

	recorder.AssertExpectations(t)
}

func TestHTTPMetrics_Unmatched(t *testing.T) {
	recorder := new(MockHTTPRecorder)
	recorder.On("HTTPRequestStarted").Once()
	recorder.On("RecordHTTPRequest", http.MethodGet, UnmatchedRoute, http.StatusNotFound, mock.AnythingOfType("time.Duration")).Once()

	router := gin.New()
	router.Use(HTTPMetrics(recorder))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	recorder.AssertExpectations(t)
}

func TestHTTPMetrics_SkipPaths(t *testing.T) {
	recorder := new(MockHTTPRecorder)

	router := gin.New()
	router.Use(HTTPMetricsWithConfig(HTTPMetricsConfig{Recorder: recorder, SkipPaths: []string{"/metrics"}}))
	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	recorder.AssertNotCalled(t, "HTTPRequestStarted")
}

func TestHTTPMetrics_NilRecorder(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(nil))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetrics_Prometheus(t *testing.T) {
	m := telemetry.NewMetrics(telemetry.MetricsConfig{})

	router := gin.New()
	router.Use(HTTPMetrics(m))
	router.POST("/leads", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for range 3 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", nil))
	}

	count, err := testutil.GatherAndCount(m.Registry(), telemetry.MetricHTTPRequestsTotal)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(m.Registry(), telemetry.MetricHTTPActiveRequests)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
