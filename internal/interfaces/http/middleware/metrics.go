package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// UnmatchedRoute labels requests that hit no registered route.
const UnmatchedRoute = "unmatched"

// HTTPRecorder receives inbound request measurements.
// telemetry.Metrics implements it.
type HTTPRecorder interface {
	HTTPRequestStarted()
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	Recorder HTTPRecorder
	// SkipPaths are not measured, e.g. the metrics endpoint itself
	SkipPaths []string
}

// HTTPMetrics returns a middleware that measures every request
func HTTPMetrics(recorder HTTPRecorder) gin.HandlerFunc {
	return HTTPMetricsWithConfig(HTTPMetricsConfig{Recorder: recorder})
}

// HTTPMetricsWithConfig returns the metrics middleware. A nil recorder disables it.
func HTTPMetricsWithConfig(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if cfg.Recorder == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		cfg.Recorder.HTTPRequestStarted()

		c.Next()

		// Route pattern keeps label cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		cfg.Recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
