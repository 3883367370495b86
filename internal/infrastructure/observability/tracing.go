package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/janhq/jan-chat"
)

// GetTracer returns the tracer for the chat gateway.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartResponderSpan starts a client span for the AI responder call.
func StartResponderSpan(ctx context.Context, conversationID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "responder.respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("chat.conversation_id", conversationID)),
	)
}

// StartStoreSpan starts a client span for a backend store operation.
func StartStoreSpan(ctx context.Context, backend, operation string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.backend", backend),
			attribute.String("store.operation", operation),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
