package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Domain instruments, created lazily so the noop path pays nothing until
// first use. Instrument creation errors are ignored: a noop meter never
// errors and a misconfigured SDK should not break the command.
var (
	instrumentsOnce sync.Once

	transitionCounter  metric.Int64Counter
	checkpointCounter  metric.Int64Counter
	hookDurationHisto  metric.Float64Histogram
)

func instruments() {
	instrumentsOnce.Do(func() {
		m := Meter("")
		transitionCounter, _ = m.Int64Counter("weft.transitions",
			metric.WithDescription("Lifecycle transitions attempted"))
		checkpointCounter, _ = m.Int64Counter("weft.checkpoints",
			metric.WithDescription("Checkpoints created"))
		hookDurationHisto, _ = m.Float64Histogram("weft.hook.duration",
			metric.WithDescription("Hook execution duration"),
			metric.WithUnit("s"))
	})
}

// RecordTransition counts one transition attempt.
func RecordTransition(ctx context.Context, from, to string, committed bool) {
	instruments()
	if transitionCounter == nil {
		return
	}
	transitionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.Bool("committed", committed),
	))
}

// RecordCheckpoint counts one checkpoint creation.
func RecordCheckpoint(ctx context.Context, kind string) {
	instruments()
	if checkpointCounter == nil {
		return
	}
	checkpointCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordHookDuration records one hook's wall time.
func RecordHookDuration(ctx context.Context, hook string, d time.Duration) {
	instruments()
	if hookDurationHisto == nil {
		return
	}
	hookDurationHisto.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("hook", hook),
	))
}
