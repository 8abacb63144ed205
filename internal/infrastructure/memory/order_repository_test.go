package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
)

func newRepo() (*OrderRepository, *OutboxRepository) {
	outbox := NewOutboxRepository()
	return NewOrderRepository(cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier), outbox), outbox
}

func TestOrderRepository_FindMissing(t *testing.T) {
	repo, _ := newRepo()

	order, err := repo.FindByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrderRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1", Items: []domain.LineItem{{Name: "a", Weight: 1, Quantity: 1}}}))

	order, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	order.AWBNumber = "X"
	order.Items[0].Quantity = 9

	again, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, again.AWBNumber)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestOrderRepository_SaveRecordsOutbox(t *testing.T) {
	ctx := context.Background()
	repo, outbox := newRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1", Number: "1001", Status: "processing"}))

	order, _ := repo.FindByID(ctx, "1")
	order.AssignAWB([]string{"A", "B"})
	require.NoError(t, repo.Save(ctx, order))
	assert.Empty(t, order.GetDomainEvents())

	stored, _ := repo.FindByID(ctx, "1")
	assert.Equal(t, "A, B", stored.AWBNumber)

	events, err := outbox.FindByAggregateID(ctx, "1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, cloudevents.AWBGenerated, events[0].EventType)
}

func TestOrderRepository_SaveStatusKeepsAWB(t *testing.T) {
	ctx := context.Background()
	repo, outbox := newRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1", Number: "1001", Status: "processing"}))

	stale, _ := repo.FindByID(ctx, "1")
	stale.AWBNumber = "OLD"
	require.True(t, stale.Complete())
	require.NoError(t, repo.SaveStatus(ctx, stale))

	stored, _ := repo.FindByID(ctx, "1")
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Empty(t, stored.AWBNumber)

	events, _ := outbox.FindByAggregateID(ctx, "1")
	require.Len(t, events, 1)
	assert.Equal(t, cloudevents.OrderCompleted, events[0].EventType)
}

func TestOrderRepository_SaveUnknown(t *testing.T) {
	repo, outbox := newRepo()
	order := &domain.Order{ID: "ghost"}
	order.AssignAWB([]string{"A"})

	err := repo.Save(context.Background(), order)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	events, _ := outbox.FindByAggregateID(context.Background(), "ghost")
	assert.Empty(t, events)
}

func TestOrderRepository_UpsertKeepsAWB(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1", Status: "processing", AWBNumber: "A1"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1", Status: "completed"}))

	stored, _ := repo.FindByID(ctx, "1")
	assert.Equal(t, "A1", stored.AWBNumber)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, 1, repo.Count())
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo, outbox := newRepo()
	require.NoError(t, repo.Upsert(ctx, &domain.Order{ID: "1"}))

	order, _ := repo.FindByID(ctx, "1")
	order.AssignAWB([]string{"A"})
	require.NoError(t, repo.Save(ctx, order))

	pending, err := outbox.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, outbox.IncrementRetry(ctx, pending[0].ID, "boom"))
	pending, _ = outbox.FindUnpublished(ctx, 10)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "boom", pending[0].LastError)

	require.NoError(t, outbox.MarkPublished(ctx, pending[0].ID))
	pending, _ = outbox.FindUnpublished(ctx, 10)
	assert.Empty(t, pending)

	assert.Error(t, outbox.MarkPublished(ctx, "missing"))
}
