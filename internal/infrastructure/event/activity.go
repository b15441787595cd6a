package event

import (
	"context"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
)

// ActivityRecord is the audit line written for an approval, rejection or status change
type ActivityRecord struct {
	EventID       string         `json:"event_id"`
	EventName     string         `json:"event_name"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   int64          `json:"aggregate_id"`
	Description   string         `json:"description"`
	Actor         string         `json:"actor,omitempty"`
	Properties    map[string]any `json:"properties,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// NewActivityRecord builds the record for event. Events that do not describe
// themselves get their type as description.
func NewActivityRecord(event shared.DomainEvent) ActivityRecord {
	rec := ActivityRecord{
		EventID:       event.EventID().String(),
		EventName:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Description:   event.EventType(),
		OccurredAt:    event.OccurredAt(),
	}
	if ae, ok := event.(shared.ActivityEvent); ok {
		rec.Actor = ae.Actor()
		rec.Description = ae.Description()
		rec.Properties = ae.Properties()
	}
	return rec
}

// ActivityHandler forwards every event on the bus to an ActivitySink
type ActivityHandler struct {
	sink       ActivitySink
	eventTypes []string
}

// NewActivityHandler creates a handler for eventTypes, or for all events when none are given
func NewActivityHandler(sink ActivitySink, eventTypes ...string) *ActivityHandler {
	return &ActivityHandler{sink: sink, eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (h *ActivityHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle implements shared.EventHandler
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.sink.Record(ctx, NewActivityRecord(event))
}

var _ shared.EventHandler = (*ActivityHandler)(nil)
