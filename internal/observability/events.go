package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// RelayEvent is the broker body of a relay connection lifecycle event.
type RelayEvent struct {
	EventType  string    `json:"event_type"`
	EventName  string    `json:"event_name"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`
	ConnID     string    `json:"conn_id"`
	UserID     int       `json:"user_id"`
	DeviceID   string    `json:"device_id,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// CorrelationHeaders returns broker headers linking an event to its request and
// to the span carried by ctx.
func CorrelationHeaders(ctx context.Context, requestID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		headers["trace_id"] = sc.TraceID().String()
	}
	return headers
}
