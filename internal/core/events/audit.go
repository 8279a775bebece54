package events

import (
	"context"
	"log/slog"
)

// Publisher delivers events somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewAuditHandler writes one structured log line per expense change.
func NewAuditHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		data := dataOf(event)
		logger.InfoContext(ctx, "expense change",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"occurred_at", event.OccurredAt(),
			"expense_id", data["expense_id"],
			"user_id", data["user_id"],
			"amount", data["amount"])
		return nil
	}
}

// NewForwarder relays bus events to an external publisher such as AMQP.
func NewForwarder(pub Publisher) Handler {
	return func(ctx context.Context, event Event) error {
		return pub.Publish(ctx, event)
	}
}
