// Package memory holds process-local stores used for local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/eventmap"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
)

// OrderRepository keeps orders in a map. Returned orders are copies.
type OrderRepository struct {
	mu           sync.RWMutex
	orders       map[string]*domain.Order
	outbox       *OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewOrderRepository creates an empty repository. outbox may be nil to drop events.
func NewOrderRepository(eventFactory *cloudevents.EventFactory, outbox *OutboxRepository) *OrderRepository {
	return &OrderRepository{
		orders:       make(map[string]*domain.Order),
		outbox:       outbox,
		eventFactory: eventFactory,
	}
}

// FindByID returns nil, nil when the order does not exist
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

// Save writes AWB metadata and status, then records the pending events
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	return r.write(ctx, order, func(stored *domain.Order) {
		stored.AWBNumber = order.AWBNumber
		stored.Status = order.Status
	})
}

// SaveStatus writes only the status and leaves the stored AWB metadata alone
func (r *OrderRepository) SaveStatus(ctx context.Context, order *domain.Order) error {
	return r.write(ctx, order, func(stored *domain.Order) {
		stored.Status = order.Status
	})
}

func (r *OrderRepository) write(ctx context.Context, order *domain.Order, apply func(stored *domain.Order)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outboxEvents, err := eventmap.ToOutboxEvents(ctx, r.eventFactory, order)
	if err != nil {
		return err
	}

	r.mu.Lock()
	stored, ok := r.orders[order.ID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrOrderNotFound
	}
	apply(stored)
	stored.UpdatedAt = order.UpdatedAt
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	r.mu.Unlock()

	if r.outbox != nil {
		if err := r.outbox.SaveAll(ctx, outboxEvents); err != nil {
			return err
		}
	}

	order.ClearDomainEvents()
	return nil
}

// Upsert stores a snapshot. A snapshot without AWB metadata keeps the stored one.
func (r *OrderRepository) Upsert(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := cloneOrder(order)
	snapshot.DomainEvents = nil
	now := time.Now().UTC()
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = now
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.orders[order.ID]; ok {
		if !snapshot.HasAWB() {
			snapshot.AWBNumber = existing.AWBNumber
		}
		snapshot.CreatedAt = existing.CreatedAt
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	r.orders[order.ID] = snapshot
	return nil
}

// Count returns the number of stored orders
func (r *OrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func cloneOrder(order *domain.Order) *domain.Order {
	c := *order
	c.Items = append([]domain.LineItem(nil), order.Items...)
	c.DomainEvents = append([]domain.DomainEvent(nil), order.DomainEvents...)
	return &c
}
