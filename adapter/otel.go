package adapter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/plugin-mmio/pkg/mmio"
)

var (
	opAttr     = attribute.Key("mmio.op")
	widthAttr  = attribute.Key("mmio.width")
	offsetAttr = attribute.Key("mmio.offset")
	kindAttr   = attribute.Key("mmio.error.kind")
)

// OTelHook records accesses as OpenTelemetry counters and, when a tracer is
// given, as one span per access.
type OTelHook struct {
	tracer   trace.Tracer
	accesses metric.Int64Counter
	errors   metric.Int64Counter
}

// NewOTelHook creates the instruments on meter. tracer may be nil.
func NewOTelHook(meter metric.Meter, tracer trace.Tracer) (*OTelHook, error) {
	accesses, err := meter.Int64Counter("mmio.accesses",
		metric.WithDescription("Total number of window accesses."))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("mmio.access_errors",
		metric.WithDescription("Total number of rejected window accesses."))
	if err != nil {
		return nil, err
	}
	return &OTelHook{tracer: tracer, accesses: accesses, errors: errs}, nil
}

func (h *OTelHook) Begin(op string, width mmio.Width, offset int64) func(error) {
	ctx := context.Background()
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "mmio."+op)
	}
	return func(err error) {
		attrs := metric.WithAttributes(opAttr.String(op), widthAttr.String(width.String()))
		h.accesses.Add(ctx, 1, attrs)
		if err != nil {
			h.errors.Add(ctx, 1, attrs, metric.WithAttributes(kindAttr.String(errorKind(err))))
		}
		if span != nil {
			span.SetAttributes(opAttr.String(op), widthAttr.String(width.String()), offsetAttr.Int64(offset))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, errorKind(err))
			}
			span.End()
		}
	}
}
