package middleware

import (
	"net/http"

	"github.com/erp/manufacturing/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxAttrLength caps header values copied onto spans
const maxAttrLength = 128

// Tracing starts a server span per request named after the route pattern.
// Install it after logger.GinMiddleware and before SpanEnricher.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// SpanEnricher copies request attributes onto the server span and marks
// it failed when the handler answered with a server error.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			ctx := c.Request.Context()
			if id := logger.RequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("request_id", truncate(id)))
			}
			if actor := logger.Actor(ctx); actor != "" {
				span.SetAttributes(attribute.String("user_id", truncate(actor)))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.StringSlice("gin.errors", c.Errors.Errors()))
		}
	}
}

func truncate(s string) string {
	if len(s) > maxAttrLength {
		return s[:maxAttrLength]
	}
	return s
}
