package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/gatekeeper/pkg/contextkeys"
)

// NewLogger creates a JSON logger at the named level. Unknown levels fall
// back to info.
func NewLogger(level string, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stdout
	}

	log := logrus.New()
	log.SetOutput(output)
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	log.SetLevel(ParseLevel(level))
	return log
}

// ParseLevel maps a level name to a logrus level
func ParseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

// FromContext returns the request-scoped entry enriched with the request id,
// the authenticated user id and the active trace, if any
func FromContext(ctx context.Context) *logrus.Entry {
	entry, ok := ctx.Value(contextkeys.LoggerKey).(*logrus.Entry)
	if !ok {
		entry = logrus.NewEntry(logrus.StandardLogger())
		if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
	}

	if userID := contextkeys.GetUserID(ctx); userID != "" {
		entry = entry.WithField("user_id", userID)
	}

	return WithTraceContext(ctx, entry)
}

// WithTraceContext adds the trace and span ids of a recording span
func WithTraceContext(ctx context.Context, entry *logrus.Entry) *logrus.Entry {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return entry
	}

	spanCtx := span.SpanContext()
	return entry.WithFields(logrus.Fields{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	})
}
