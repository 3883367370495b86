package middlewares

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span named after the route template and
// tags it with the conversation and principal once the handler has run.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.HTTPRoute(route),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		attrs := []attribute.KeyValue{semconv.HTTPResponseStatusCode(c.Writer.Status())}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, attribute.String("chat.conversation_id", id))
		}
		if principal := c.GetString("principal"); principal != "" {
			attrs = append(attrs, attribute.String("enduser.id", principal))
		}
		if requestID := RequestIDFromContext(c); requestID != "" {
			attrs = append(attrs, attribute.String("request.id", requestID))
		}
		span.SetAttributes(attrs...)

		if c.Writer.Status() >= 500 {
			msg := "server error"
			if last := c.Errors.Last(); last != nil {
				span.RecordError(last.Err)
				msg = last.Error()
			}
			span.SetStatus(codes.Error, msg)
		}
	}
}
