package inventory

import (
	"context"

	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockLedgerService exposes the ledger as standalone operations. Each call is
// one transaction, replayed on concurrency conflicts per the retry policy.
type StockLedgerService struct {
	scope     TransactionScope
	selector  inventory.BatchSelector
	retry     RetryPolicy
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewStockLedgerService creates a StockLedgerService
func NewStockLedgerService(scope TransactionScope, selector inventory.BatchSelector, retry RetryPolicy, logger *zap.Logger) *StockLedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockLedgerService{
		scope:    scope,
		selector: selector,
		retry:    retry,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockLedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// run executes fn in a fresh transaction per attempt and publishes the
// collected events after the successful commit.
func (s *StockLedgerService) run(ctx context.Context, fn func(l *Ledger) error) error {
	var ledger *Ledger
	err := s.retry.Do(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			ledger = NewLedger(repos, s.selector)
			return fn(ledger)
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, ledger.Events())
	return nil
}

func (s *StockLedgerService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish stock events", zap.Error(err))
	}
}

// Reserve holds free stock and returns the reservation handle
func (s *StockLedgerService) Reserve(ctx context.Context, req ReserveStockRequest, actor string) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "reserve",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity.String()))
	defer span.End()

	var res *inventory.Reservation
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		res, err = l.Reserve(ctx, req.ProductID, req.WarehouseID, req.Quantity, inventory.ManualDoc{Note: req.Note}, actor)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToReservationResponse(res)
	return &resp, nil
}

// Release frees the outstanding part of a reservation
func (s *StockLedgerService) Release(ctx context.Context, handle uuid.UUID, actor string) (decimal.Decimal, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "release")
	defer span.End()

	var released decimal.Decimal
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		released, err = l.Release(ctx, handle, actor)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return decimal.Zero, err
	}
	return released, nil
}

// Issue takes stock out, optionally against a reservation
func (s *StockLedgerService) Issue(ctx context.Context, req IssueStockRequest, actor string) ([]MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "issue",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID))
	defer span.End()

	var movements []*inventory.StockMovement
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		movements, err = l.Issue(ctx, IssueRequest{
			ProductID:   req.ProductID,
			WarehouseID: req.WarehouseID,
			Quantity:    req.Quantity,
			Reservation: req.Reservation,
			Document:    inventory.ManualDoc{Note: req.Note},
			Actor:       actor,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// Receive brings stock in
func (s *StockLedgerService) Receive(ctx context.Context, req ReceiveStockRequest, actor string) ([]MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "receive",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID))
	defer span.End()

	var movements []*inventory.StockMovement
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		movements, err = l.Receive(ctx, ReceiveRequest{
			ProductID:     req.ProductID,
			WarehouseID:   req.WarehouseID,
			Quantity:      req.Quantity,
			BatchNumber:   req.BatchNumber,
			SerialNumbers: req.SerialNumbers,
			ExpiryDate:    req.ExpiryDate,
			Document:      inventory.ManualDoc{Note: req.Note},
			Actor:         actor,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// Adjust corrects a balance
func (s *StockLedgerService) Adjust(ctx context.Context, req AdjustStockRequest, actor string) (*MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "adjust")
	defer span.End()

	var movement *inventory.StockMovement
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		movement, err = l.Adjust(ctx, req.ProductID, req.WarehouseID, req.Delta, req.Reason, actor)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("stock adjusted",
		zap.Int64("product_id", req.ProductID),
		zap.Int64("warehouse_id", req.WarehouseID),
		zap.String("delta", req.Delta.String()),
		zap.String("actor", actor))
	resp := ToMovementResponses([]*inventory.StockMovement{movement})
	return &resp[0], nil
}

// Transfer moves available stock between warehouses
func (s *StockLedgerService) Transfer(ctx context.Context, req TransferStockRequest, actor string) ([]MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_ledger", "transfer")
	defer span.End()

	var movements []*inventory.StockMovement
	err := s.run(ctx, func(l *Ledger) error {
		var err error
		movements, err = l.Transfer(ctx, TransferRequest{
			ProductID:       req.ProductID,
			FromWarehouseID: req.FromWarehouseID,
			ToWarehouseID:   req.ToWarehouseID,
			Quantity:        req.Quantity,
			Document:        inventory.ManualDoc{Note: req.Note},
			Actor:           actor,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// GetBalance returns the balance of a product in a warehouse
func (s *StockLedgerService) GetBalance(ctx context.Context, productID, warehouseID int64) (*BalanceResponse, error) {
	var resp BalanceResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BalanceRepo().FindByProductAndWarehouse(ctx, productID, warehouseID)
		if err != nil {
			return err
		}
		resp = ToBalanceResponse(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBalances returns the balances of a product across warehouses
func (s *StockLedgerService) ListBalances(ctx context.Context, productID int64) ([]BalanceResponse, error) {
	var out []BalanceResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		balances, err := repos.BalanceRepo().FindByProduct(ctx, productID)
		if err != nil {
			return err
		}
		out = make([]BalanceResponse, 0, len(balances))
		for i := range balances {
			out = append(out, ToBalanceResponse(&balances[i]))
		}
		return nil
	})
	return out, err
}

// GetReservation looks up a reservation by handle
func (s *StockLedgerService) GetReservation(ctx context.Context, handle uuid.UUID) (*ReservationResponse, error) {
	var resp ReservationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReservationRepo().FindByHandle(ctx, handle)
		if err != nil {
			return err
		}
		resp = ToReservationResponse(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListMovements pages through the movement log of a balance
func (s *StockLedgerService) ListMovements(ctx context.Context, productID, warehouseID int64, filter MovementListFilter) ([]MovementResponse, int64, error) {
	var (
		out   []MovementResponse
		total int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movements, count, err := repos.MovementRepo().FindByProductAndWarehouse(ctx, productID, warehouseID, filter.toDomain())
		if err != nil {
			return err
		}
		ptrs := make([]*inventory.StockMovement, len(movements))
		for i := range movements {
			ptrs[i] = &movements[i]
		}
		out = ToMovementResponses(ptrs)
		total = count
		return nil
	})
	return out, total, err
}
