package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Upcasted/optimus-courier/pkg/outbox"
)

// OutboxRepository implements outbox.Repository in memory
type OutboxRepository struct {
	mu     sync.Mutex
	events map[string]*outbox.OutboxEvent
}

// NewOutboxRepository creates an empty in-memory outbox
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{events: make(map[string]*outbox.OutboxEvent)}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range events {
		c := *e
		r.events[e.ID] = &c
	}
	return nil
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*outbox.OutboxEvent
	for _, e := range r.events {
		if e.ShouldRetry() {
			c := *e
			pending = append(pending, &c)
		}
	}
	sortByCreatedAt(pending)

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("outbox event not found: %s", eventID)
	}
	now := time.Now().UTC()
	e.PublishedAt = &now
	return nil
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("outbox event not found: %s", eventID)
	}
	e.RetryCount++
	e.LastError = errorMsg
	return nil
}

func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []*outbox.OutboxEvent
	for _, e := range r.events {
		if e.AggregateID == aggregateID {
			c := *e
			events = append(events, &c)
		}
	}
	sortByCreatedAt(events)
	return events, nil
}

func sortByCreatedAt(events []*outbox.OutboxEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}
