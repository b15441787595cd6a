package manufacturing

import (
	"context"

	appinventory "github.com/erp/manufacturing/internal/application/inventory"
	"github.com/erp/manufacturing/internal/domain/inventory"
	"github.com/erp/manufacturing/internal/domain/shared"
	"go.uber.org/zap"
)

// UnitOfWork is what a service callback sees inside a transaction: the
// repositories, a ledger bound to them, and the events to publish on commit.
type UnitOfWork struct {
	Repositories
	Ledger *appinventory.Ledger
	events []shared.DomainEvent
}

// Collect takes the pending events of each aggregate
func (u *UnitOfWork) Collect(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		u.events = append(u.events, a.PullDomainEvents()...)
	}
}

func (u *UnitOfWork) allEvents() []shared.DomainEvent {
	return append(append([]shared.DomainEvent{}, u.Ledger.Events()...), u.events...)
}

// runner wraps TransactionScope with conflict retries and post-commit publishing
type runner struct {
	scope     TransactionScope
	selector  inventory.BatchSelector
	retry     appinventory.RetryPolicy
	publisher shared.EventPublisher
	logger    *zap.Logger
}

func (r *runner) run(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	var uow *UnitOfWork
	err := r.retry.Do(ctx, func() error {
		return r.scope.Execute(ctx, func(repos Repositories) error {
			uow = &UnitOfWork{Repositories: repos, Ledger: appinventory.NewLedger(repos, r.selector)}
			return fn(uow)
		})
	})
	if err != nil {
		return err
	}
	r.publish(ctx, uow.allEvents())
	return nil
}

// read runs fn in a transaction without retries or events
func (r *runner) read(ctx context.Context, fn func(repos Repositories) error) error {
	return r.scope.Execute(ctx, fn)
}

func (r *runner) publish(ctx context.Context, events []shared.DomainEvent) {
	if r.publisher == nil || len(events) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Warn("failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}
