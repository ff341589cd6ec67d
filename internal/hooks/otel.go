package hooks

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxOutputBytes bounds hook output recorded on spans.
const maxOutputBytes = 4096

// addHookOutputEvents records stdout/stderr from a hook execution as span
// events. Each stream is only recorded when non-empty, truncated to
// maxOutputBytes.
func addHookOutputEvents(span trace.Span, stdout, stderr string) {
	if len(stdout) > 0 {
		span.AddEvent("hook.stdout", trace.WithAttributes(
			attribute.String("output", truncateOutput(stdout)),
			attribute.Int("bytes", len(stdout)),
		))
	}
	if len(stderr) > 0 {
		span.AddEvent("hook.stderr", trace.WithAttributes(
			attribute.String("output", truncateOutput(stderr)),
			attribute.Int("bytes", len(stderr)),
		))
	}
}

func truncateOutput(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "... [truncated]"
}
