package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseCreated = "expense.created"
	EventTypeExpenseUpdated = "expense.updated"
	EventTypeExpenseDeleted = "expense.deleted"
)

// ExpenseChange is the snapshot carried by expense events. Amount is the
// fixed two-place decimal string so consumers never see float rounding.
type ExpenseChange struct {
	ExpenseID  int64
	UserID     int64
	CategoryID int64
	Amount     string
	Type       string
	Date       string
}

func NewExpenseEvent(eventType string, change ExpenseChange, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Data: map[string]interface{}{
			"expense_id":  change.ExpenseID,
			"user_id":     change.UserID,
			"category_id": change.CategoryID,
			"amount":      change.Amount,
			"type":        change.Type,
			"date":        change.Date,
		},
	}
}

func Encode(event Event) ([]byte, error) {
	return json.Marshal(BaseEvent{
		ID:        event.EventID(),
		Type:      event.EventType(),
		Timestamp: event.OccurredAt(),
		Data:      dataOf(event),
	})
}

func Decode(body []byte) (BaseEvent, error) {
	var ev BaseEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing id or type")
	}
	return ev, nil
}

func dataOf(event Event) map[string]interface{} {
	if m, ok := event.Payload().(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{"payload": event.Payload()}
}
