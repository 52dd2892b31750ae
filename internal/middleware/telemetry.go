// Package middleware provides HTTP middleware for the evaluation API.
package middleware

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// TelemetryMiddleware binds a Sentry hub to each request.
//
// Returns:
//   - gin.HandlerFunc: Gin middleware handler.
func TelemetryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
	})
}

// HealthCheckTelemetryMiddleware tags health check requests so they can be filtered out.
func HealthCheckTelemetryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("transaction_type", "health_check")
		}
		c.Next()
	}
}

// RecordError captures err on the request hub, tagged with the operation
// that failed.
//
// Parameters:
//   - c: Gin context.
//   - err: Error to record.
//   - operation: Short name of the failing operation.
func RecordError(c *gin.Context, err error, operation string) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil || err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		hub.CaptureException(err)
	})
	if span := sentry.TransactionFromContext(c.Request.Context()); span != nil {
		span.Status = sentry.SpanStatusInternalError
	}
}

// AddSpanAttribute sets a tag on the request scope.
func AddSpanAttribute(c *gin.Context, key string, value interface{}) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.Scope().SetTag(key, fmt.Sprint(value))
	}
}
