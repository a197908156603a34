package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType maps to outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

// OutboxEventType maps to outbox_events.event_type. Consumers filter on it
// through the event_type message attribute.
type OutboxEventType string

const (
	EventOrderStateChanged     OutboxEventType = "order_state_changed"
	EventPaymentApproved       OutboxEventType = "payment_approved"
	EventPaymentDeclined       OutboxEventType = "payment_declined"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregatePayment}
	eventTypes     = []OutboxEventType{
		EventOrderStateChanged,
		EventPaymentApproved,
		EventPaymentDeclined,
		EventNotificationRequested,
	}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseClosed(value, aggregateTypes, "aggregate type")
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseClosed(value, eventTypes, "event type")
}

// parseClosed matches value exactly against one of allowed.
func parseClosed[T ~string](value string, allowed []T, label string) (T, error) {
	if candidate := T(value); slices.Contains(allowed, candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid %s %q", label, value)
}
