package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/comiso/internal/auditcontext"
	"github.com/smallbiznis/comiso/pkg/telemetry"
	"github.com/smallbiznis/comiso/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestContext stamps correlation and audit metadata onto the request
// context so downstream services and audit entries can pick them up.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			ctx, requestID = correlation.EnsureCorrelationID(ctx)
		} else {
			ctx = correlation.WithCorrelationID(ctx, requestID)
		}

		ctx = auditcontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())

		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger emits one structured access log line per request and feeds
// the request histogram.
func RequestLogger(log *zap.Logger, metrics *telemetry.Metrics) gin.HandlerFunc {
	accessLog := log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		metrics.ObserveAPIRequest(c.Request.Method, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", correlation.FromContext(c.Request.Context())),
		}
		if status >= 500 {
			accessLog.Error("request completed", fields...)
			return
		}
		accessLog.Info("request completed", fields...)
	}
}
