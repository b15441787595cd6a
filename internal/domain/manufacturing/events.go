package manufacturing

import (
	"fmt"

	"github.com/erp/manufacturing/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeBOM             = "BillOfMaterial"
	AggregateTypeProductionOrder = "ProductionOrder"
	AggregateTypeRequisition     = "MaterialRequisition"
	AggregateTypeSchedule        = "ProductionSchedule"
)

// Event type constants
const (
	EventTypeBOMSubmitted                     = "BOMSubmitted"
	EventTypeBOMApproved                      = "BOMApproved"
	EventTypeBOMRejected                      = "BOMRejected"
	EventTypeBOMObsoleted                     = "BOMObsoleted"
	EventTypeProductionOrderStatusChanged     = "ProductionOrderStatusChanged"
	EventTypeMaterialRequisitionStatusChanged = "MaterialRequisitionStatusChanged"
	EventTypeProductionScheduleStatusChanged  = "ProductionScheduleStatusChanged"
	EventTypeScheduleConflictDetected         = "ScheduleConflictDetected"
)

// BOMEvent records an approval workflow step of a bill of material
type BOMEvent struct {
	shared.BaseDomainEvent
	Reference string    `json:"reference"`
	Version   string    `json:"version"`
	ProductID int64     `json:"product_id"`
	Status    BOMStatus `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Summary   string    `json:"summary"`
}

// NewBOMEvent creates a BOM workflow event
func NewBOMEvent(eventType string, b *BillOfMaterial, actor, summary, reason string) *BOMEvent {
	return &BOMEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeBOM, b.ID, actor),
		Reference:       b.Reference,
		Version:         b.Version,
		ProductID:       b.ProductID,
		Status:          b.Status,
		Reason:          reason,
		Summary:         summary,
	}
}

// Description implements shared.ActivityEvent
func (e *BOMEvent) Description() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s v%s: %s", e.Summary, e.Reference, e.Version, e.Reason)
	}
	return fmt.Sprintf("%s %s v%s", e.Summary, e.Reference, e.Version)
}

// Properties implements shared.ActivityEvent
func (e *BOMEvent) Properties() map[string]any {
	props := map[string]any{
		"reference":  e.Reference,
		"version":    e.Version,
		"product_id": e.ProductID,
		"status":     string(e.Status),
	}
	if e.Reason != "" {
		props["reason"] = e.Reason
	}
	return props
}

// StatusChangedEvent records a lifecycle transition of an order, requisition or schedule
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	Reference string         `json:"reference"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Reason    string         `json:"reason,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func newStatusChangedEvent(eventType, aggType string, id int64, reference, from, to, actor, reason string) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, aggType, id, actor),
		Reference:       reference,
		From:            from,
		To:              to,
		Reason:          reason,
	}
}

// Description implements shared.ActivityEvent
func (e *StatusChangedEvent) Description() string {
	desc := fmt.Sprintf("%s %s changed from %s to %s", e.AggregateType(), e.Reference, e.From, e.To)
	if e.Reason != "" {
		desc += ": " + e.Reason
	}
	return desc
}

// Properties implements shared.ActivityEvent
func (e *StatusChangedEvent) Properties() map[string]any {
	props := map[string]any{
		"reference": e.Reference,
		"from":      e.From,
		"to":        e.To,
	}
	if e.Reason != "" {
		props["reason"] = e.Reason
	}
	for k, v := range e.Extra {
		props[k] = v
	}
	return props
}

// ScheduleConflictEvent is raised when a schedule newly overlaps another on its work center
type ScheduleConflictEvent struct {
	shared.BaseDomainEvent
	Reference    string `json:"reference"`
	WorkCenterID int64  `json:"work_center_id"`
	Details      string `json:"details"`
}

// NewScheduleConflictEvent creates a ScheduleConflictEvent
func NewScheduleConflictEvent(s *ProductionSchedule) *ScheduleConflictEvent {
	return &ScheduleConflictEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeScheduleConflictDetected, AggregateTypeSchedule, s.ID, ""),
		Reference:       s.Reference,
		WorkCenterID:    s.WorkCenterID,
		Details:         s.ConflictDetails,
	}
}

// Description implements shared.ActivityEvent
func (e *ScheduleConflictEvent) Description() string {
	return fmt.Sprintf("Schedule %s conflicts: %s", e.Reference, e.Details)
}

// Properties implements shared.ActivityEvent
func (e *ScheduleConflictEvent) Properties() map[string]any {
	return map[string]any{
		"reference":      e.Reference,
		"work_center_id": e.WorkCenterID,
	}
}
