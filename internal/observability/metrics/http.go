package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics exposes request-level instruments for the gin engine.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "regalia"
	}
	meter := provider.Meter(name)

	requests, err := meter.Int64Counter("regalia_http_requests_total")
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("regalia_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requests: requests,
		duration: duration,
	}, nil
}

// GinMiddleware records one observation per request, labeled by route
// template rather than raw path to keep cardinality bounded.
func GinMiddleware(h *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if h == nil {
			return
		}

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		attrs := FilterAttributes(
			attribute.String("endpoint", c.Request.Method+" "+route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		opt := metric.WithAttributes(attrs...)
		ctx := c.Request.Context()
		h.requests.Add(ctx, 1, opt)
		h.duration.Record(ctx, time.Since(start).Seconds(), opt)
	}
}
