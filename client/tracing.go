package client

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// startAttempt opens a span for the next attempt of t and returns a copy of
// req carrying the span context and propagation headers.
func (c *Client) startAttempt(t *Task, req *http.Request) (*http.Request, trace.Span) {
	ctx, span := c.tracer.Start(req.Context(), "httptask.attempt", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("task", t.id.String()),
		attribute.String("http.method", req.Method),
		attribute.String("url", req.URL.String()),
		attribute.Int("attempt", t.Attempts()+1),
	)

	out := req.Clone(ctx)
	c.propagator.Inject(ctx, propagation.HeaderCarrier(out.Header))

	return out, span
}

func endAttempt(span trace.Span, resp *Response, err error) {
	if span == nil {
		return
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
