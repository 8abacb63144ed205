package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

type fakeRepo struct {
	mu        sync.Mutex
	events    []*OutboxEvent
	published map[string]bool
	retries   map[string]string
}

func newFakeRepo(events ...*OutboxEvent) *fakeRepo {
	return &fakeRepo{events: events, published: map[string]bool{}, retries: map[string]string{}}
}

func (r *fakeRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *fakeRepo) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, e := range r.events {
		if !r.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkPublished(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[eventID] = true
	return nil
}

func (r *fakeRepo) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[eventID] = errorMsg
	return nil
}

func (r *fakeRepo) FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error) {
	return nil, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	sent   []*cloudevents.CloudEvent
	failOn string
}

func (p *fakeProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Type == p.failOn {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, event)
	return nil
}

func newEvent(t *testing.T, eventType string) *OutboxEvent {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier)
	ce := factory.CreateEvent(context.Background(), eventType, "order/1", map[string]string{"orderId": "1"})
	ev, err := NewOutboxEventFromCloudEvent("1", "Order", "optimus.awb.events", ce)
	require.NoError(t, err)
	return ev
}

func TestPublisher_ProcessOnce(t *testing.T) {
	ok := newEvent(t, cloudevents.AWBGenerated)
	bad := newEvent(t, cloudevents.AWBDeleted)
	repo := newFakeRepo(ok, bad)
	producer := &fakeProducer{failOn: cloudevents.AWBDeleted}

	p := NewPublisher(repo, producer, logging.NewNop(), nil, nil)
	delivered := p.ProcessOnce(context.Background())

	assert.Equal(t, 1, delivered)
	assert.True(t, repo.published[ok.ID])
	assert.False(t, repo.published[bad.ID])
	assert.Contains(t, repo.retries[bad.ID], "broker unavailable")
	require.Len(t, producer.sent, 1)
	assert.Equal(t, cloudevents.AWBGenerated, producer.sent[0].Type)
	assert.Equal(t, map[string]int{"published": 1, "failed": 1}, p.Stats())
}

func TestPublisher_StartStop(t *testing.T) {
	ev := newEvent(t, cloudevents.AWBGenerated)
	repo := newFakeRepo(ev)
	producer := &fakeProducer{}

	p := NewPublisher(repo, producer, logging.NewNop(), nil, &PublisherConfig{PollInterval: 10 * time.Millisecond, BatchSize: 10})
	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.published[ev.ID]
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.Error(t, p.Stop())
}

func TestOutboxEvent_RetryPolicy(t *testing.T) {
	ev := newEvent(t, cloudevents.AWBGenerated)
	assert.True(t, ev.ShouldRetry())

	ev.RetryCount = DefaultMaxRetries
	assert.False(t, ev.ShouldRetry())

	now := time.Now()
	ev.RetryCount = 0
	ev.PublishedAt = &now
	assert.False(t, ev.ShouldRetry())

	ce, err := ev.ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, cloudevents.AWBGenerated, ce.Type)
}
