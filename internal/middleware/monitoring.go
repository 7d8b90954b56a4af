package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"driftmail/internal/monitoring"
)

// MonitoringMiddleware wires request handling into the Prometheus
// instruments.
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewMonitoringMiddleware creates the monitoring middleware.
func NewMonitoringMiddleware(metrics *monitoring.Metrics, logger *zap.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// HTTPMetrics records method, route, status and latency per request.
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
		if c.Writer.Status() >= 400 {
			mm.metrics.RecordError("http")
		}
	}
}

// BusinessMetrics counts lifecycle events off successful responses.
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		switch c.FullPath() {
		case "/address":
			if c.Request.Method == http.MethodPost {
				mm.metrics.AddressesCreated.Inc()
			}
		case "/address/:username":
			if c.Request.Method == http.MethodDelete {
				mm.metrics.AddressesDeleted.Inc()
			}
		case "/webhook":
			if c.Request.Method == http.MethodPost {
				mm.metrics.EmailsIngested.Inc()
			}
		}
	}
}

// PanicRecovery turns panics into a 500 response and a metric.
func (mm *MonitoringMiddleware) PanicRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				mm.metrics.PanicsTotal.Inc()
				mm.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("ip", c.ClientIP()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
