package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stephansmit/pvpumpingsystem/internal/log"
)

// RequestIDHeader carries the per-request id back to the client.
const RequestIDHeader = "X-Request-Id"

// Logger attaches a request-scoped logger to the request context and writes
// one access log line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		ctx := c.Request.Context()
		logger := log.Ctx(ctx).With(slog.String("request_id", id))
		c.Request = c.Request.WithContext(log.With(ctx, logger))

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
