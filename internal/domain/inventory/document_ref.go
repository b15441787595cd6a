package inventory

import (
	"github.com/erp/manufacturing/internal/domain/shared"
)

// DocumentKind names the kind of business document behind a stock movement
type DocumentKind string

const (
	DocumentProductionOrder DocumentKind = "production_order"
	DocumentRequisition     DocumentKind = "material_requisition"
	DocumentAdjustment      DocumentKind = "adjustment"
	DocumentManual          DocumentKind = "manual"
)

// DocumentRef is a closed set of typed references to the document that caused
// a reservation or movement. Only types in this package implement it.
type DocumentRef interface {
	Kind() DocumentKind
	isDocumentRef()
}

// ProductionOrderDoc references a production order and optionally one of its items
type ProductionOrderDoc struct {
	OrderID int64
	ItemID  int64
}

// RequisitionDoc references a material requisition line
type RequisitionDoc struct {
	RequisitionID int64
	ItemID        int64
}

// AdjustmentDoc records a manual stock correction
type AdjustmentDoc struct {
	Reason string
}

// ManualDoc is used for ad-hoc movements entered through the API
type ManualDoc struct {
	Note string
}

func (ProductionOrderDoc) Kind() DocumentKind { return DocumentProductionOrder }
func (RequisitionDoc) Kind() DocumentKind     { return DocumentRequisition }
func (AdjustmentDoc) Kind() DocumentKind      { return DocumentAdjustment }
func (ManualDoc) Kind() DocumentKind          { return DocumentManual }

func (ProductionOrderDoc) isDocumentRef() {}
func (RequisitionDoc) isDocumentRef()     {}
func (AdjustmentDoc) isDocumentRef()      {}
func (ManualDoc) isDocumentRef()          {}

// DocumentColumns is the flattened storage form of a DocumentRef
type DocumentColumns struct {
	Kind   DocumentKind
	ID     int64
	LineID int64
	Note   string
}

// FlattenDocument converts a reference into its storage columns
func FlattenDocument(ref DocumentRef) DocumentColumns {
	switch d := ref.(type) {
	case ProductionOrderDoc:
		return DocumentColumns{Kind: DocumentProductionOrder, ID: d.OrderID, LineID: d.ItemID}
	case RequisitionDoc:
		return DocumentColumns{Kind: DocumentRequisition, ID: d.RequisitionID, LineID: d.ItemID}
	case AdjustmentDoc:
		return DocumentColumns{Kind: DocumentAdjustment, Note: d.Reason}
	case ManualDoc:
		return DocumentColumns{Kind: DocumentManual, Note: d.Note}
	case nil:
		return DocumentColumns{Kind: DocumentManual}
	default:
		panic("inventory: unknown document reference type")
	}
}

// RestoreDocument rebuilds a DocumentRef from its storage columns
func RestoreDocument(cols DocumentColumns) (DocumentRef, error) {
	switch cols.Kind {
	case DocumentProductionOrder:
		return ProductionOrderDoc{OrderID: cols.ID, ItemID: cols.LineID}, nil
	case DocumentRequisition:
		return RequisitionDoc{RequisitionID: cols.ID, ItemID: cols.LineID}, nil
	case DocumentAdjustment:
		return AdjustmentDoc{Reason: cols.Note}, nil
	case DocumentManual, "":
		return ManualDoc{Note: cols.Note}, nil
	default:
		return nil, shared.NewValidationError("unknown document kind %q", cols.Kind)
	}
}
