package manufacturing

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/manufacturing/internal/domain/manufacturing"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BOMService manages bills of material and their approval workflow
type BOMService struct {
	*runner
	refs ReferenceGenerator
}

// NewBOMService creates a BOMService
func NewBOMService(deps Dependencies) *BOMService {
	return &BOMService{runner: deps.runner(), refs: deps.References}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BOMService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

func costCalculator(repos Repositories) *manufacturing.CostCalculator {
	return manufacturing.NewCostCalculator(catalogPrices{products: repos.Products()}, repos.BOMRepo(), nil)
}

// Create registers a draft BOM with its item tree and rolls up its cost
func (s *BOMService) Create(ctx context.Context, req CreateBOMRequest, actor string) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "create",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID))
	defer span.End()

	reference, err := s.refs.Next(ctx, PrefixBOM)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var bom *manufacturing.BillOfMaterial
	err = s.run(ctx, func(uow *UnitOfWork) error {
		if _, err := uow.Products().FindByID(ctx, req.ProductID); err != nil {
			return err
		}
		exists, err := uow.BOMRepo().ExistsByProductAndVersion(ctx, req.ProductID, req.Version)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("version %s of product %d already exists", req.Version, req.ProductID))
		}

		bom, err = manufacturing.NewBillOfMaterial(reference, req.ProductID, req.Version, req.Quantity, req.Unit)
		if err != nil {
			return err
		}
		if err := bom.SetValidity(req.EffectiveDate, req.ExpiryDate); err != nil {
			return err
		}
		if err := bom.SetOverheads(req.LaborCost, req.OverheadCost); err != nil {
			return err
		}
		if err := addItems(ctx, uow, bom, req.Items); err != nil {
			return err
		}
		if err := costCalculator(uow).Recalculate(ctx, bom); err != nil {
			return err
		}
		if err := uow.BOMRepo().Save(ctx, bom); err != nil {
			return err
		}
		uow.Collect(bom)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("bill of material created",
		zap.String("reference", bom.Reference),
		zap.Int64("product_id", bom.ProductID),
		zap.String("version", bom.Version))
	resp := ToBOMResponse(bom)
	return &resp, nil
}

// addItems maps the client line numbers of a request to the lines the BOM assigns
func addItems(ctx context.Context, uow *UnitOfWork, bom *manufacturing.BillOfMaterial, items []BOMItemRequest) error {
	lines := make(map[int]int, len(items))
	for i, it := range items {
		spec := it.toSpec()
		if it.ParentLine != 0 {
			parent, ok := lines[it.ParentLine]
			if !ok {
				return shared.NewValidationError("item %d refers to unknown parent line %d", i+1, it.ParentLine)
			}
			spec.ParentLine = parent
		}
		if err := manufacturing.CheckComponent(ctx, uow.BOMRepo(), bom.ProductID, spec.ProductID); err != nil {
			return err
		}
		created, err := bom.AddItem(spec)
		if err != nil {
			return err
		}
		if it.Line != 0 {
			lines[it.Line] = created.Line
		}
	}
	return nil
}

// edit loads a BOM under lock, applies fn, recalculates and saves
func (s *BOMService) edit(ctx context.Context, id int64, fn func(uow *UnitOfWork, bom *manufacturing.BillOfMaterial) error) (*BOMResponse, error) {
	var bom *manufacturing.BillOfMaterial
	err := s.run(ctx, func(uow *UnitOfWork) error {
		var err error
		if bom, err = uow.BOMRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := fn(uow, bom); err != nil {
			return err
		}
		if bom.Status == manufacturing.BOMStatusDraft || bom.Status == manufacturing.BOMStatusPendingApproval {
			if err := costCalculator(uow).Recalculate(ctx, bom); err != nil {
				return err
			}
		}
		if err := uow.BOMRepo().Save(ctx, bom); err != nil {
			return err
		}
		uow.Collect(bom)
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToBOMResponse(bom)
	return &resp, nil
}

// AddItem appends a line to a draft BOM
func (s *BOMService) AddItem(ctx context.Context, id int64, req BOMItemRequest) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "add_item",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, id))
	defer span.End()

	resp, err := s.edit(ctx, id, func(uow *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		if err := manufacturing.CheckComponent(ctx, uow.BOMRepo(), bom.ProductID, req.ProductID); err != nil {
			return err
		}
		_, err := bom.AddItem(req.toSpec())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

// UpdateItem changes quantities and flags of a line
func (s *BOMService) UpdateItem(ctx context.Context, id int64, line int, req BOMItemRequest) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		_, err := bom.UpdateItem(line, req.toSpec())
		return err
	})
}

// RemoveItem deletes a line and its subtree
func (s *BOMService) RemoveItem(ctx context.Context, id int64, line int) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		return bom.RemoveItem(line)
	})
}

// MoveItem re-parents a line
func (s *BOMService) MoveItem(ctx context.Context, id int64, line int, req MoveBOMItemRequest) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		return bom.MoveItem(line, req.ParentLine)
	})
}

// UpdateCosts changes labor, overhead and validity of a draft
func (s *BOMService) UpdateCosts(ctx context.Context, id int64, req UpdateBOMCostsRequest) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		if err := bom.SetValidity(req.EffectiveDate, req.ExpiryDate); err != nil {
			return err
		}
		return bom.SetOverheads(req.LaborCost, req.OverheadCost)
	})
}

// Recalculate refreshes costs from current catalog prices
func (s *BOMService) Recalculate(ctx context.Context, id int64) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "recalculate",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, id))
	defer span.End()

	resp, err := s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		if bom.Status != manufacturing.BOMStatusDraft && bom.Status != manufacturing.BOMStatusPendingApproval {
			return shared.NewStateError("bill of material %s is %s; costs are frozen", bom.Reference, bom.Status)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

// Submit sends a draft for approval
func (s *BOMService) Submit(ctx context.Context, id int64, actor string) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		return bom.SubmitForApproval(actor)
	})
}

// Approve freezes a pending BOM and makes it the latest version of its product.
// The previous latest version loses the flag in the same transaction.
func (s *BOMService) Approve(ctx context.Context, id int64, actor string) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "approve",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, id))
	defer span.End()

	var bom *manufacturing.BillOfMaterial
	err := s.run(ctx, func(uow *UnitOfWork) error {
		var err error
		if bom, err = uow.BOMRepo().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if bom.Status != manufacturing.BOMStatusPendingApproval {
			return shared.NewStateError("bill of material %s is %s and cannot be approved", bom.Reference, bom.Status)
		}
		// final roll-up before the snapshot freezes
		if err := costCalculator(uow).Recalculate(ctx, bom); err != nil {
			return err
		}

		previous, err := uow.BOMRepo().FindLatestForUpdate(ctx, bom.ProductID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if previous != nil && previous.ID != bom.ID {
			previous.ClearLatest()
			if err := uow.BOMRepo().Save(ctx, previous); err != nil {
				return err
			}
		}

		if err := bom.Approve(actor); err != nil {
			return err
		}
		if err := uow.BOMRepo().Save(ctx, bom); err != nil {
			return err
		}
		uow.Collect(bom)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("bill of material approved",
		zap.String("reference", bom.Reference),
		zap.String("version", bom.Version),
		zap.String("actor", actor))
	resp := ToBOMResponse(bom)
	return &resp, nil
}

// Reject sends a pending BOM back to draft
func (s *BOMService) Reject(ctx context.Context, id int64, req ReasonRequest, actor string) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		return bom.Reject(actor, req.Reason)
	})
}

// MarkObsolete retires an approved BOM
func (s *BOMService) MarkObsolete(ctx context.Context, id int64, actor string) (*BOMResponse, error) {
	return s.edit(ctx, id, func(_ *UnitOfWork, bom *manufacturing.BillOfMaterial) error {
		return bom.MarkObsolete(actor)
	})
}

// NewVersion copies an approved or obsolete BOM into a new draft
func (s *BOMService) NewVersion(ctx context.Context, id int64, req NewBOMVersionRequest) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "new_version",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, id))
	defer span.End()

	reference, err := s.refs.Next(ctx, PrefixBOM)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var next *manufacturing.BillOfMaterial
	err = s.run(ctx, func(uow *UnitOfWork) error {
		source, err := uow.BOMRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		exists, err := uow.BOMRepo().ExistsByProductAndVersion(ctx, source.ProductID, req.Version)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("version %s of product %d already exists", req.Version, source.ProductID))
		}
		if next, err = source.NewVersion(reference, req.Version); err != nil {
			return err
		}
		if err := costCalculator(uow).Recalculate(ctx, next); err != nil {
			return err
		}
		return uow.BOMRepo().Save(ctx, next)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToBOMResponse(next)
	return &resp, nil
}

// Get returns one BOM
func (s *BOMService) Get(ctx context.Context, id int64) (*BOMResponse, error) {
	var bom *manufacturing.BillOfMaterial
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		bom, err = repos.BOMRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToBOMResponse(bom)
	return &resp, nil
}

// List returns a page of BOMs
func (s *BOMService) List(ctx context.Context, filter BOMListFilter) ([]BOMResponse, int64, error) {
	var (
		boms  []manufacturing.BillOfMaterial
		total int64
	)
	err := s.read(ctx, func(repos Repositories) error {
		var err error
		boms, total, err = repos.BOMRepo().FindAll(ctx, filter.toDomain())
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out := make([]BOMResponse, 0, len(boms))
	for i := range boms {
		out = append(out, ToBOMResponse(&boms[i]))
	}
	return out, total, nil
}

// Explode returns the flattened component requirements for a quantity of the BOM output
func (s *BOMService) Explode(ctx context.Context, id int64, req ExplodeBOMRequest) ([]RequirementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "explode",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, id),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity.String()))
	defer span.End()

	var reqs []manufacturing.Requirement
	err := s.read(ctx, func(repos Repositories) error {
		bom, err := repos.BOMRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		var policy manufacturing.ExplosionPolicy
		if req.RequiredOnly {
			policy = manufacturing.NewRequiredOnlyPolicy()
		}
		telemetry.WithProfilingLabels(ctx, "bom.explode", func(ctx context.Context) {
			reqs, err = manufacturing.NewExploder(repos.BOMRepo(), policy).Explode(ctx, bom, req.Quantity)
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toRequirementResponses(reqs), nil
}
