package txwatch

import (
	"context"

	"github.com/gabapcia/txconfirm/internal/confirmation"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gabapcia/txconfirm/internal/txwatch"

type metrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
	attempts metric.Int64Histogram
}

func newMetrics(mp metric.MeterProvider) metrics {
	meter := mp.Meter(meterName)

	// Instruments are usable even when creation reports an error.
	outcomes, err := meter.Int64Counter("txconfirm.tracking.outcomes",
		metric.WithDescription("Resolved tracking calls by final state."),
	)
	if err != nil {
		otel.Handle(err)
	}

	duration, err := meter.Float64Histogram("txconfirm.tracking.duration",
		metric.WithDescription("Time from the first poll to resolution."),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
	}

	attempts, err := meter.Int64Histogram("txconfirm.tracking.attempts",
		metric.WithDescription("Poll attempts per tracking call."),
	)
	if err != nil {
		otel.Handle(err)
	}

	return metrics{outcomes: outcomes, duration: duration, attempts: attempts}
}

func (m metrics) record(ctx context.Context, outcome confirmation.Outcome, cached bool) {
	attrs := metric.WithAttributes(
		attribute.String("state", outcome.State.String()),
		attribute.String("reason", outcome.Reason.String()),
		attribute.Bool("cached", cached),
	)

	m.outcomes.Add(ctx, 1, attrs)
	if cached {
		return
	}

	m.attempts.Record(ctx, int64(outcome.Attempts), attrs)
	if !outcome.ResolvedAt.IsZero() {
		m.duration.Record(ctx, outcome.ResolvedAt.Sub(outcome.StartedAt).Seconds(), attrs)
	}
}
