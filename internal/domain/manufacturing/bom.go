package manufacturing

import (
	"sort"
	"strings"
	"time"

	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BOMStatus is the approval state of a bill of material
type BOMStatus string

const (
	BOMStatusDraft           BOMStatus = "draft"
	BOMStatusPendingApproval BOMStatus = "pending_approval"
	BOMStatusApproved        BOMStatus = "approved"
	BOMStatusRejected        BOMStatus = "rejected"
	BOMStatusObsolete        BOMStatus = "obsolete"
)

// IsValid returns true if the status is known
func (s BOMStatus) IsValid() bool {
	switch s {
	case BOMStatusDraft, BOMStatusPendingApproval, BOMStatusApproved, BOMStatusRejected, BOMStatusObsolete:
		return true
	}
	return false
}

// CanTransitionTo reports whether the approval workflow allows s -> target
func (s BOMStatus) CanTransitionTo(target BOMStatus) bool {
	switch s {
	case BOMStatusDraft:
		return target == BOMStatusPendingApproval
	case BOMStatusPendingApproval:
		return target == BOMStatusApproved || target == BOMStatusRejected
	case BOMStatusRejected:
		return target == BOMStatusDraft
	case BOMStatusApproved:
		return target == BOMStatusObsolete
	case BOMStatusObsolete:
		return false
	}
	return false
}

// BillOfMaterial is a versioned recipe for one output product.
// Items form an arena keyed by Line; levels strictly increase from parent to child.
type BillOfMaterial struct {
	shared.BaseAggregateRoot
	Reference       string
	ProductID       int64
	Version         string
	ParentBOMID     *int64
	Status          BOMStatus
	IsLatestVersion bool
	IsActive        bool
	Quantity        decimal.Decimal
	Unit            string
	TotalCost       decimal.Decimal
	LaborCost       decimal.Decimal
	OverheadCost    decimal.Decimal
	TotalBOMCost    decimal.Decimal
	EffectiveDate   *time.Time
	ExpiryDate      *time.Time
	RejectionReason string
	SubmittedBy     string
	ApprovedBy      string
	ApprovedAt      *time.Time
	Items           []*BOMItem
}

// NewBillOfMaterial creates a draft BOM
func NewBillOfMaterial(reference string, productID int64, version string, quantity decimal.Decimal, unit string) (*BillOfMaterial, error) {
	if productID <= 0 {
		return nil, errValidation("output product is required")
	}
	if strings.TrimSpace(version) == "" {
		return nil, errValidation("version is required")
	}
	if !quantity.IsPositive() {
		return nil, errValidation("batch quantity must be positive")
	}
	return &BillOfMaterial{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		ProductID:         productID,
		Version:           strings.TrimSpace(version),
		Status:            BOMStatusDraft,
		IsActive:          true,
		Quantity:          quantity,
		Unit:              unit,
		TotalCost:         decimal.Zero,
		LaborCost:         decimal.Zero,
		OverheadCost:      decimal.Zero,
		TotalBOMCost:      decimal.Zero,
		Items:             make([]*BOMItem, 0),
	}, nil
}

// IsEditable returns true while items and costs may change
func (b *BillOfMaterial) IsEditable() bool {
	return b.Status == BOMStatusDraft
}

// IsEffective reports whether new production orders may use the BOM at t
func (b *BillOfMaterial) IsEffective(t time.Time) bool {
	if b.Status != BOMStatusApproved || !b.IsActive {
		return false
	}
	if b.EffectiveDate != nil && t.Before(*b.EffectiveDate) {
		return false
	}
	if b.ExpiryDate != nil && !t.Before(*b.ExpiryDate) {
		return false
	}
	return true
}

// SetValidity sets the effective window; expiry must be after effective
func (b *BillOfMaterial) SetValidity(effective, expiry *time.Time) error {
	if err := b.ensureEditable(); err != nil {
		return err
	}
	if effective != nil && expiry != nil && !expiry.After(*effective) {
		return errValidation("expiry date must be after effective date")
	}
	b.EffectiveDate = effective
	b.ExpiryDate = expiry
	b.touch()
	return nil
}

// SetOverheads sets labor and overhead costs
func (b *BillOfMaterial) SetOverheads(labor, overhead decimal.Decimal) error {
	if err := b.ensureEditable(); err != nil {
		return err
	}
	if labor.IsNegative() || overhead.IsNegative() {
		return errValidation("labor and overhead costs cannot be negative")
	}
	b.LaborCost = labor
	b.OverheadCost = overhead
	b.TotalBOMCost = b.TotalCost.Add(b.LaborCost).Add(b.OverheadCost)
	b.touch()
	return nil
}

// Item returns the item on the given line
func (b *BillOfMaterial) Item(line int) (*BOMItem, bool) {
	for _, it := range b.Items {
		if it.Line == line {
			return it, true
		}
	}
	return nil, false
}

// Roots returns top-level items ordered by sequence
func (b *BillOfMaterial) Roots() []*BOMItem {
	return b.Children(0)
}

// Children returns the direct children of line ordered by sequence
func (b *BillOfMaterial) Children(line int) []*BOMItem {
	out := make([]*BOMItem, 0)
	for _, it := range b.Items {
		if it.ParentLine == line {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// AddItem appends a line to the arena under an existing parent
func (b *BillOfMaterial) AddItem(spec ItemSpec) (*BOMItem, error) {
	if err := b.ensureEditable(); err != nil {
		return nil, err
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.ProductID == b.ProductID {
		return nil, ErrBOMCycle.WithDetail("product_id", spec.ProductID)
	}

	level := 0
	if spec.ParentLine != 0 {
		parent, ok := b.Item(spec.ParentLine)
		if !ok {
			return nil, errValidation("parent line %d does not exist", spec.ParentLine)
		}
		if err := b.checkAncestry(parent, spec.ProductID); err != nil {
			return nil, err
		}
		level = parent.Level + 1
	}

	seq := spec.Sequence
	if seq <= 0 {
		seq = (len(b.Children(spec.ParentLine)) + 1) * 10
	}
	item := &BOMItem{
		Line:            b.nextLine(),
		ParentLine:      spec.ParentLine,
		Level:           level,
		Sequence:        seq,
		ProductID:       spec.ProductID,
		Quantity:        spec.Quantity,
		ScrapPercentage: spec.ScrapPercentage,
		UnitCost:        decimal.Zero,
		TotalCost:       decimal.Zero,
		ItemType:        spec.ItemType,
		IsOptional:      spec.IsOptional,
		IsPhantom:       spec.IsPhantom,
		Notes:           spec.Notes,
	}
	b.Items = append(b.Items, item)
	b.touch()
	return item, nil
}

// UpdateItem changes the quantities and flags of a line. Parent and product stay fixed.
func (b *BillOfMaterial) UpdateItem(line int, spec ItemSpec) (*BOMItem, error) {
	if err := b.ensureEditable(); err != nil {
		return nil, err
	}
	item, ok := b.Item(line)
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("line", line)
	}
	spec.ProductID = item.ProductID
	if err := spec.validate(); err != nil {
		return nil, err
	}
	item.Quantity = spec.Quantity
	item.ScrapPercentage = spec.ScrapPercentage
	item.ItemType = spec.ItemType
	item.IsOptional = spec.IsOptional
	item.IsPhantom = spec.IsPhantom
	item.Notes = spec.Notes
	if spec.Sequence > 0 {
		item.Sequence = spec.Sequence
	}
	b.touch()
	return item, nil
}

// RemoveItem deletes a line together with its subtree
func (b *BillOfMaterial) RemoveItem(line int) error {
	if err := b.ensureEditable(); err != nil {
		return err
	}
	if _, ok := b.Item(line); !ok {
		return shared.ErrNotFound.WithDetail("line", line)
	}
	doomed := map[int]bool{line: true}
	for _, d := range b.descendants(line) {
		doomed[d.Line] = true
	}
	kept := b.Items[:0]
	for _, it := range b.Items {
		if !doomed[it.Line] {
			kept = append(kept, it)
		}
	}
	b.Items = kept
	b.touch()
	return nil
}

// MoveItem re-parents a line. A move under the line itself or any of its
// descendants is rejected, as is any ancestor chain already using the component.
func (b *BillOfMaterial) MoveItem(line, newParent int) error {
	if err := b.ensureEditable(); err != nil {
		return err
	}
	item, ok := b.Item(line)
	if !ok {
		return shared.ErrNotFound.WithDetail("line", line)
	}
	level := 0
	if newParent != 0 {
		parent, ok := b.Item(newParent)
		if !ok {
			return errValidation("parent line %d does not exist", newParent)
		}
		for p := parent; p != nil; p = b.parentOf(p) {
			if p.Line == line {
				return ErrBOMCycle.WithDetail("line", line)
			}
		}
		for _, moving := range append([]*BOMItem{item}, b.descendants(line)...) {
			if err := b.checkAncestry(parent, moving.ProductID); err != nil {
				return err
			}
		}
		level = parent.Level + 1
	}
	item.ParentLine = newParent
	b.relevel(item, level)
	b.touch()
	return nil
}

// SubmitForApproval moves a draft with at least one item to pending approval
func (b *BillOfMaterial) SubmitForApproval(actor string) error {
	if len(b.Items) == 0 {
		return errValidation("bill of material %s has no items", b.Reference)
	}
	if err := b.transition(BOMStatusPendingApproval); err != nil {
		return err
	}
	b.SubmittedBy = actor
	b.RejectionReason = ""
	b.AddDomainEvent(NewBOMEvent(EventTypeBOMSubmitted, b, actor, "Bill of material submitted for approval", ""))
	return nil
}

// Approve freezes the BOM and makes it the latest version for its product.
// The caller must clear the previous holder's flag in the same transaction.
func (b *BillOfMaterial) Approve(actor string) error {
	if err := b.transition(BOMStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	b.IsLatestVersion = true
	b.ApprovedBy = actor
	b.ApprovedAt = &now
	b.AddDomainEvent(NewBOMEvent(EventTypeBOMApproved, b, actor, "Bill of material approved", ""))
	return nil
}

// Reject sends a pending BOM back to draft with a mandatory reason
func (b *BillOfMaterial) Reject(actor, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errValidation("rejection reason is required")
	}
	if err := b.transition(BOMStatusRejected); err != nil {
		return err
	}
	if err := b.transition(BOMStatusDraft); err != nil {
		return err
	}
	b.RejectionReason = reason
	b.AddDomainEvent(NewBOMEvent(EventTypeBOMRejected, b, actor, "Bill of material rejected", reason))
	return nil
}

// MarkObsolete retires an approved BOM
func (b *BillOfMaterial) MarkObsolete(actor string) error {
	if err := b.transition(BOMStatusObsolete); err != nil {
		return err
	}
	b.IsLatestVersion = false
	b.IsActive = false
	b.AddDomainEvent(NewBOMEvent(EventTypeBOMObsoleted, b, actor, "Bill of material marked obsolete", ""))
	return nil
}

// ClearLatest drops the latest-version flag when a newer version is approved
func (b *BillOfMaterial) ClearLatest() {
	if b.IsLatestVersion {
		b.IsLatestVersion = false
		b.touch()
	}
}

// NewVersion copies the BOM into a new draft linked to it as parent
func (b *BillOfMaterial) NewVersion(reference, version string) (*BillOfMaterial, error) {
	if b.Status == BOMStatusDraft || b.Status == BOMStatusPendingApproval {
		return nil, errState("bill of material %s must be approved or obsolete before versioning", b.Reference)
	}
	if strings.TrimSpace(version) == b.Version {
		return nil, errValidation("new version must differ from %s", b.Version)
	}
	next, err := NewBillOfMaterial(reference, b.ProductID, version, b.Quantity, b.Unit)
	if err != nil {
		return nil, err
	}
	parentID := b.ID
	next.ParentBOMID = &parentID
	next.LaborCost = b.LaborCost
	next.OverheadCost = b.OverheadCost
	for _, it := range b.Items {
		c := *it
		c.ID = 0
		next.Items = append(next.Items, &c)
	}
	return next, nil
}

func (b *BillOfMaterial) transition(target BOMStatus) error {
	if !b.Status.CanTransitionTo(target) {
		return errState("bill of material %s cannot move from %s to %s", b.Reference, b.Status, target)
	}
	b.Status = target
	b.touch()
	return nil
}

func (b *BillOfMaterial) ensureEditable() error {
	if !b.IsEditable() {
		return errState("bill of material %s is %s and cannot be edited", b.Reference, b.Status)
	}
	return nil
}

// checkAncestry rejects a component that already appears on the parent chain
func (b *BillOfMaterial) checkAncestry(parent *BOMItem, productID int64) error {
	for p := parent; p != nil; p = b.parentOf(p) {
		if p.ProductID == productID {
			return ErrBOMCycle.WithDetail("product_id", productID)
		}
	}
	return nil
}

func (b *BillOfMaterial) parentOf(it *BOMItem) *BOMItem {
	if it.ParentLine == 0 {
		return nil
	}
	p, _ := b.Item(it.ParentLine)
	return p
}

func (b *BillOfMaterial) descendants(line int) []*BOMItem {
	out := make([]*BOMItem, 0)
	for _, c := range b.Children(line) {
		out = append(out, c)
		out = append(out, b.descendants(c.Line)...)
	}
	return out
}

func (b *BillOfMaterial) relevel(item *BOMItem, level int) {
	item.Level = level
	for _, c := range b.Children(item.Line) {
		b.relevel(c, level+1)
	}
}

func (b *BillOfMaterial) nextLine() int {
	last := 0
	for _, it := range b.Items {
		if it.Line > last {
			last = it.Line
		}
	}
	return last + 1
}

func (b *BillOfMaterial) touch() {
	b.UpdatedAt = time.Now()
}
