package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// New builds a logrus logger. format is "json" or "text"; an unknown level
// falls back to info.
func New(level, format string, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stderr
	}
	logger := log.New()
	logger.SetOutput(out)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = log.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// GinLogger logs one entry per request.
func GinLogger(logger log.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := log.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if id := c.GetString(RequestIDKey); id != "" {
			fields["request_id"] = id
		}
		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
