package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/manufacturing/internal/domain/catalog"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger applies stock primitives against repositories bound to one transaction.
// It never commits; the surrounding TransactionScope decides. Domain events
// raised by touched aggregates are collected and handed out by Events once
// the caller has committed.
type Ledger struct {
	repos    TransactionalRepositories
	selector inventory.BatchSelector
	events   []shared.DomainEvent
}

// NewLedger binds a ledger to transactional repositories
func NewLedger(repos TransactionalRepositories, selector inventory.BatchSelector) *Ledger {
	if selector == nil {
		selector = inventory.NewFEFOSelector()
	}
	return &Ledger{repos: repos, selector: selector}
}

// Events returns the domain events collected so far
func (l *Ledger) Events() []shared.DomainEvent {
	return l.events
}

// ReserveLine is one product to reserve in a multi-line reservation
type ReserveLine struct {
	ProductID int64
	Quantity  decimal.Decimal
	Document  inventory.DocumentRef
}

// Reserve holds qty of a product in a warehouse and returns the reservation
func (l *Ledger) Reserve(ctx context.Context, productID, warehouseID int64, qty decimal.Decimal, doc inventory.DocumentRef, actor string) (*inventory.Reservation, error) {
	if err := l.warehouseCan(ctx, warehouseID, false); err != nil {
		return nil, err
	}
	if _, err := l.trackedProduct(ctx, productID); err != nil {
		return nil, err
	}
	balance, err := l.repos.BalanceRepo().GetForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return l.reserveOn(ctx, balance, qty, doc, actor)
}

// ReserveAll locks every balance in ascending product id order, then reserves
// each line. It stops at the first failure; the caller must roll back.
// Reservations are returned in the order of lines.
func (l *Ledger) ReserveAll(ctx context.Context, warehouseID int64, lines []ReserveLine, actor string) ([]*inventory.Reservation, error) {
	if err := l.warehouseCan(ctx, warehouseID, false); err != nil {
		return nil, err
	}
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return lines[order[a]].ProductID < lines[order[b]].ProductID })

	balances := make(map[int64]*inventory.StockBalance, len(lines))
	for _, idx := range order {
		pid := lines[idx].ProductID
		if _, ok := balances[pid]; ok {
			continue
		}
		if _, err := l.trackedProduct(ctx, pid); err != nil {
			return nil, err
		}
		b, err := l.repos.BalanceRepo().GetForUpdate(ctx, pid, warehouseID)
		if err != nil {
			return nil, err
		}
		balances[pid] = b
	}

	out := make([]*inventory.Reservation, len(lines))
	for _, idx := range order {
		line := lines[idx]
		r, err := l.reserveOn(ctx, balances[line.ProductID], line.Quantity, line.Document, actor)
		if err != nil {
			return nil, err
		}
		out[idx] = r
	}
	return out, nil
}

func (l *Ledger) reserveOn(ctx context.Context, balance *inventory.StockBalance, qty decimal.Decimal, doc inventory.DocumentRef, actor string) (*inventory.Reservation, error) {
	r, err := balance.Reserve(qty, doc, actor)
	if err != nil {
		return nil, err
	}
	if err := l.saveBalance(ctx, balance); err != nil {
		return nil, err
	}
	if err := l.repos.ReservationRepo().Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	return r, nil
}

// Release returns the outstanding part of a reservation. A second release of
// the same handle returns zero and changes nothing.
func (l *Ledger) Release(ctx context.Context, handle uuid.UUID, actor string) (decimal.Decimal, error) {
	r, err := l.repos.ReservationRepo().FindByHandle(ctx, handle)
	if err != nil {
		return decimal.Zero, err
	}
	if !r.IsActive() {
		return decimal.Zero, nil
	}
	balance, err := l.repos.BalanceRepo().GetForUpdate(ctx, r.ProductID, r.WarehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	released, err := balance.Release(r, actor)
	if err != nil || released.IsZero() {
		return released, err
	}
	if err := l.saveBalance(ctx, balance); err != nil {
		return decimal.Zero, err
	}
	if err := l.repos.ReservationRepo().Save(ctx, r); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save reservation: %w", err)
	}
	return released, nil
}

// IssueRequest takes stock out to production
type IssueRequest struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	// Reservation draws the issue from a reservation instead of free stock
	Reservation *uuid.UUID
	// Picked lists batches already allocated by picks; empty lets the
	// batch selector choose for tracked products
	Picked   []inventory.BatchDraw
	Document inventory.DocumentRef
	Actor    string
}

// Issue removes stock and writes one movement per batch drawn
func (l *Ledger) Issue(ctx context.Context, req IssueRequest) ([]*inventory.StockMovement, error) {
	if err := l.warehouseCan(ctx, req.WarehouseID, false); err != nil {
		return nil, err
	}
	product, err := l.trackedProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	balance, err := l.repos.BalanceRepo().GetForUpdate(ctx, req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}

	var res *inventory.Reservation
	if req.Reservation != nil {
		if res, err = l.repos.ReservationRepo().FindByHandle(ctx, *req.Reservation); err != nil {
			return nil, err
		}
	}

	draws, err := l.drawBatches(ctx, product, req.WarehouseID, req.Quantity, req.Picked)
	if err != nil {
		return nil, err
	}
	movements, err := balance.Issue(req.Quantity, res, draws, req.Document, req.Actor)
	if err != nil {
		return nil, err
	}
	if err := l.saveBalance(ctx, balance); err != nil {
		return nil, err
	}
	if res != nil {
		if err := l.repos.ReservationRepo().Save(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to save reservation: %w", err)
		}
	}
	if err := l.repos.MovementRepo().Create(ctx, movements...); err != nil {
		return nil, fmt.Errorf("failed to record stock movements: %w", err)
	}
	return movements, nil
}

// drawBatches consumes batch quantities for a tracked product. Picked draws
// consume their allocation; otherwise the selector picks usable batches.
func (l *Ledger) drawBatches(ctx context.Context, product *catalog.Product, warehouseID int64, qty decimal.Decimal, picked []inventory.BatchDraw) ([]inventory.BatchDraw, error) {
	if product.TrackingMode == catalog.TrackingNone {
		if len(picked) > 0 {
			return nil, shared.NewValidationError("product %s is not batch tracked", product.Code)
		}
		return nil, nil
	}

	if len(picked) > 0 {
		for _, d := range picked {
			batch, err := l.repos.BatchRepo().GetForUpdate(ctx, d.BatchID)
			if err != nil {
				return nil, err
			}
			if err := batch.ConsumeAllocated(d.Quantity); err != nil {
				return nil, err
			}
			if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
				return nil, fmt.Errorf("failed to save batch: %w", err)
			}
		}
		return picked, nil
	}

	batches, err := l.repos.BatchRepo().FindUsableForUpdate(ctx, product.ID, warehouseID)
	if err != nil {
		return nil, err
	}
	draws, shortfall := l.selector.Select(qty, batches)
	if shortfall.IsPositive() {
		return nil, inventory.NewInsufficientStockError(product.ID, warehouseID, qty, qty.Sub(shortfall)).
			WithDetail("reason", "usable batches")
	}
	byID := make(map[int64]*inventory.ProductBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	for _, d := range draws {
		batch := byID[d.BatchID]
		if err := batch.Consume(d.Quantity); err != nil {
			return nil, err
		}
		if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
	}
	return draws, nil
}

// ReceiveRequest brings stock into a warehouse
type ReceiveRequest struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	BatchNumber string
	// SerialNumbers must list one serial per unit for serial-tracked products
	SerialNumbers []string
	ExpiryDate    *time.Time
	Document      inventory.DocumentRef
	Actor         string
}

// Receive adds stock, creating the lot or serial records tracked products need
func (l *Ledger) Receive(ctx context.Context, req ReceiveRequest) ([]*inventory.StockMovement, error) {
	if err := l.warehouseCan(ctx, req.WarehouseID, true); err != nil {
		return nil, err
	}
	product, err := l.trackedProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	balance, err := l.repos.BalanceRepo().GetForUpdate(ctx, req.ProductID, req.WarehouseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	movements := make([]*inventory.StockMovement, 0, 1)
	switch product.TrackingMode {
	case catalog.TrackingSerial:
		if !req.Quantity.Equal(decimal.NewFromInt(int64(len(req.SerialNumbers)))) {
			return nil, shared.NewValidationError("serial-tracked product %s needs one serial number per unit", product.Code)
		}
		for _, serial := range req.SerialNumbers {
			unit, err := inventory.NewSerialUnit(product.ID, req.WarehouseID, serial, req.ExpiryDate, now)
			if err != nil {
				return nil, err
			}
			if err := l.repos.BatchRepo().Save(ctx, unit); err != nil {
				return nil, fmt.Errorf("failed to save serial unit: %w", err)
			}
			m, err := balance.Receive(unit.Quantity, &unit.ID, req.Document, req.Actor)
			if err != nil {
				return nil, err
			}
			movements = append(movements, m)
		}
	case catalog.TrackingBatch:
		lot, err := inventory.NewLotBatch(product.ID, req.WarehouseID, req.BatchNumber, req.Quantity, req.ExpiryDate, now)
		if err != nil {
			return nil, err
		}
		if err := l.repos.BatchRepo().Save(ctx, lot); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
		m, err := balance.Receive(req.Quantity, &lot.ID, req.Document, req.Actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	default:
		m, err := balance.Receive(req.Quantity, nil, req.Document, req.Actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := l.saveBalance(ctx, balance); err != nil {
		return nil, err
	}
	if err := l.repos.MovementRepo().Create(ctx, movements...); err != nil {
		return nil, fmt.Errorf("failed to record stock movements: %w", err)
	}
	return movements, nil
}

// Adjust applies a signed correction with a mandatory reason
func (l *Ledger) Adjust(ctx context.Context, productID, warehouseID int64, delta decimal.Decimal, reason, actor string) (*inventory.StockMovement, error) {
	if _, err := l.trackedProduct(ctx, productID); err != nil {
		return nil, err
	}
	balance, err := l.repos.BalanceRepo().GetForUpdate(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	m, err := balance.Adjust(delta, reason, actor)
	if err != nil {
		return nil, err
	}
	if err := l.saveBalance(ctx, balance); err != nil {
		return nil, err
	}
	if err := l.repos.MovementRepo().Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	return m, nil
}

// TransferRequest moves available stock between warehouses
type TransferRequest struct {
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	Quantity        decimal.Decimal
	Document        inventory.DocumentRef
	Actor           string
}

// Transfer moves available stock. Balances lock in ascending warehouse id
// order; tracked batches are re-created at the destination with the same number.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) ([]*inventory.StockMovement, error) {
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, shared.NewValidationError("source and destination warehouse must differ")
	}
	if err := l.warehouseCan(ctx, req.FromWarehouseID, false); err != nil {
		return nil, err
	}
	if err := l.warehouseCan(ctx, req.ToWarehouseID, true); err != nil {
		return nil, err
	}
	product, err := l.trackedProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	first, second := req.FromWarehouseID, req.ToWarehouseID
	if second < first {
		first, second = second, first
	}
	locked := make(map[int64]*inventory.StockBalance, 2)
	for _, wh := range []int64{first, second} {
		b, err := l.repos.BalanceRepo().GetForUpdate(ctx, req.ProductID, wh)
		if err != nil {
			return nil, err
		}
		locked[wh] = b
	}
	from, to := locked[req.FromWarehouseID], locked[req.ToWarehouseID]

	var sources []*inventory.ProductBatch
	var draws []inventory.BatchDraw
	if product.TrackingMode != catalog.TrackingNone {
		batches, err := l.repos.BatchRepo().FindUsableForUpdate(ctx, product.ID, req.FromWarehouseID)
		if err != nil {
			return nil, err
		}
		var shortfall decimal.Decimal
		draws, shortfall = l.selector.Select(req.Quantity, batches)
		if shortfall.IsPositive() {
			return nil, inventory.NewInsufficientStockError(product.ID, req.FromWarehouseID, req.Quantity, req.Quantity.Sub(shortfall))
		}
		sources = batches
	}

	out, err := from.TransferOut(req.Quantity, draws, req.Document, req.Actor)
	if err != nil {
		return nil, err
	}
	movements := append([]*inventory.StockMovement{}, out...)

	if len(draws) == 0 {
		m, err := to.TransferIn(req.Quantity, nil, req.Document, req.Actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	for _, d := range draws {
		src := findBatch(sources, d.BatchID)
		if err := src.Consume(d.Quantity); err != nil {
			return nil, err
		}
		if err := l.repos.BatchRepo().Save(ctx, src); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
		dst, err := inventory.NewLotBatch(product.ID, req.ToWarehouseID, src.Number, d.Quantity, src.ExpiryDate, time.Now())
		if err != nil {
			return nil, err
		}
		if src.Kind == inventory.BatchKindSerial {
			dst.Kind = inventory.BatchKindSerial
			dst.SerialStatus = inventory.SerialAvailable
		}
		if err := l.repos.BatchRepo().Save(ctx, dst); err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
		m, err := to.TransferIn(d.Quantity, &dst.ID, req.Document, req.Actor)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := l.saveBalance(ctx, from); err != nil {
		return nil, err
	}
	if err := l.saveBalance(ctx, to); err != nil {
		return nil, err
	}
	if err := l.repos.MovementRepo().Create(ctx, movements...); err != nil {
		return nil, fmt.Errorf("failed to record stock movements: %w", err)
	}
	return movements, nil
}

// Available returns the unreserved quantity without taking a lock
func (l *Ledger) Available(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error) {
	b, err := l.repos.BalanceRepo().FindByProductAndWarehouse(ctx, productID, warehouseID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return b.AvailableQuantity(), nil
}

// AllocateBatch sets aside qty of a batch for a pick
func (l *Ledger) AllocateBatch(ctx context.Context, batchID, productID, warehouseID int64, qty decimal.Decimal) (*inventory.ProductBatch, error) {
	batch, err := l.repos.BatchRepo().GetForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.ProductID != productID || batch.WarehouseID != warehouseID {
		return nil, shared.NewValidationError("batch %s does not hold product %d in warehouse %d", batch.Number, productID, warehouseID)
	}
	if err := batch.Allocate(qty); err != nil {
		return nil, err
	}
	if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}
	return batch, nil
}

// DeallocateBatch undoes AllocateBatch when a pick is returned
func (l *Ledger) DeallocateBatch(ctx context.Context, batchID int64, qty decimal.Decimal) error {
	batch, err := l.repos.BatchRepo().GetForUpdate(ctx, batchID)
	if err != nil {
		return err
	}
	if err := batch.Deallocate(qty); err != nil {
		return err
	}
	if err := l.repos.BatchRepo().Save(ctx, batch); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// Product returns a catalog product
func (l *Ledger) Product(ctx context.Context, productID int64) (*catalog.Product, error) {
	return l.repos.Products().FindByID(ctx, productID)
}

func (l *Ledger) trackedProduct(ctx context.Context, productID int64) (*catalog.Product, error) {
	product, err := l.repos.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.TrackInventory {
		return nil, shared.NewValidationError("product %s does not track inventory", product.Code)
	}
	return product, nil
}

func (l *Ledger) warehouseCan(ctx context.Context, warehouseID int64, inbound bool) error {
	wh, err := l.repos.Warehouses().FindByID(ctx, warehouseID)
	if err != nil {
		return err
	}
	if inbound {
		return wh.CanReceive()
	}
	return wh.CanShip()
}

func (l *Ledger) saveBalance(ctx context.Context, balance *inventory.StockBalance) error {
	if err := balance.CheckInvariants(); err != nil {
		return err
	}
	if err := l.repos.BalanceRepo().Save(ctx, balance); err != nil {
		return err
	}
	l.events = append(l.events, balance.PullDomainEvents()...)
	return nil
}

func findBatch(batches []*inventory.ProductBatch, id int64) *inventory.ProductBatch {
	for _, b := range batches {
		if b.ID == id {
			return b
		}
	}
	return nil
}
