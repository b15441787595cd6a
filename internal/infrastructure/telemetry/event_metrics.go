package telemetry

import (
	"context"
	"time"

	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// MeterName names the meter of the domain event instruments
const MeterName = "erp-manufacturing/events"

// EventMetrics is an event bus handler turning domain events into counters:
// every event, lifecycle transitions, stock quantities by movement and
// schedule conflicts per work center.
type EventMetrics struct {
	events      *Counter
	transitions *Counter
	conflicts   *Counter
	quantities  *QuantityCounter
	lag         *Histogram
	now         func() time.Time
}

// NewEventMetrics creates the instruments on meter
func NewEventMetrics(meter metric.Meter) (*EventMetrics, error) {
	events, err := NewCounter(meter, "mfg.domain_events", "Domain events handled", "{event}")
	if err != nil {
		return nil, err
	}
	transitions, err := NewCounter(meter, "mfg.status_transitions", "Lifecycle transitions of orders, requisitions and schedules", "{transition}")
	if err != nil {
		return nil, err
	}
	conflicts, err := NewCounter(meter, "mfg.schedule_conflicts", "Schedules that newly overlap another on their work center", "{conflict}")
	if err != nil {
		return nil, err
	}
	quantities, err := NewQuantityCounter(meter, "mfg.stock_quantity", "Material quantity moved through the stock ledger")
	if err != nil {
		return nil, err
	}
	lag, err := NewHistogram(meter, "mfg.event_delivery_lag", "Time between an event occurring and its handling", "s", DeliveryLagBuckets...)
	if err != nil {
		return nil, err
	}
	return &EventMetrics{
		events:      events,
		transitions: transitions,
		conflicts:   conflicts,
		quantities:  quantities,
		lag:         lag,
		now:         time.Now,
	}, nil
}

// EventTypes subscribes to every event
func (m *EventMetrics) EventTypes() []string {
	return nil
}

// Handle records event. It never fails.
func (m *EventMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	m.events.Inc(ctx, AttrEventType.String(event.EventType()), AttrAggregateType.String(event.AggregateType()))
	m.lag.RecordDuration(ctx, m.now().Sub(event.OccurredAt()), AttrEventType.String(event.EventType()))

	switch e := event.(type) {
	case *manufacturing.StatusChangedEvent:
		m.transitions.Inc(ctx,
			AttrAggregateType.String(e.AggregateType()),
			AttrFromStatus.String(e.From),
			AttrToStatus.String(e.To),
		)
	case *manufacturing.BOMEvent:
		m.transitions.Inc(ctx,
			AttrAggregateType.String(e.AggregateType()),
			AttrToStatus.String(string(e.Status)),
		)
	case *manufacturing.ScheduleConflictEvent:
		m.conflicts.Inc(ctx, AttrWorkCenterID.Int64(e.WorkCenterID))
	case *inventory.StockReservedEvent:
		m.addQuantity(ctx, "reserved", e.WarehouseID, e.Quantity)
	case *inventory.StockReleasedEvent:
		m.addQuantity(ctx, "released", e.WarehouseID, e.Quantity)
	case *inventory.StockIssuedEvent:
		m.addQuantity(ctx, "issued", e.WarehouseID, e.Quantity)
	case *inventory.StockReceivedEvent:
		m.addQuantity(ctx, "received", e.WarehouseID, e.Quantity)
	case *inventory.StockAdjustedEvent:
		movement := "adjusted_up"
		if e.Delta.IsNegative() {
			movement = "adjusted_down"
		}
		m.addQuantity(ctx, movement, e.WarehouseID, e.Delta.Abs())
	}
	return nil
}

func (m *EventMetrics) addQuantity(ctx context.Context, movement string, warehouseID int64, qty decimal.Decimal) {
	m.quantities.Add(ctx, qty.InexactFloat64(),
		AttrMovement.String(movement),
		AttrWarehouseID.Int64(warehouseID),
	)
}

var _ shared.EventHandler = (*EventMetrics)(nil)
