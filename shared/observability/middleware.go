package observability

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "article-api/backend/shared/observability"

// Tracing opens a server span per request and tracks in-flight requests on
// the meter provider
func Tracing(tp oteltrace.TracerProvider, mp otelmetric.MeterProvider, propagator propagation.TextMapPropagator) gin.HandlerFunc {
	tracer := tp.Tracer(instrumentationName)
	inflight, err := mp.Meter(instrumentationName).Int64UpDownCounter(
		"http.server.active_requests",
		otelmetric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		inflight = nil
	}

	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		if inflight != nil {
			inflight.Add(ctx, 1)
			defer inflight.Add(ctx, -1)
		}

		c.Request = c.Request.WithContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header("X-Trace-ID", sc.TraceID().String())
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
	}
}
