package observability

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/irfndi/neuratrade-eval/internal/config"
)

const defaultFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry hub. An empty DSN or a disabled
// config leaves Sentry uninitialised; capture calls are then no-ops.
func InitSentry(cfg config.SentryConfig, release, environment string) error {
	if !cfg.Enabled || strings.TrimSpace(cfg.DSN) == "" {
		return nil
	}

	env := cfg.Environment
	if env == "" {
		env = environment
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		Release:          release,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	})
}

// Enabled reports whether a Sentry client is bound to the current hub.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports err with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb records a breadcrumb on the current hub.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	})
}

// Flush waits for buffered events until ctx is done or a short default timeout.
func Flush(ctx context.Context) bool {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return false
	}
	return sentry.Flush(timeout)
}
