package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/memory"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/kafka"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

type MockStatusHandler struct {
	mock.Mock
}

func (m *MockStatusHandler) HandleStatusChange(ctx context.Context, change application.StatusChange) *application.GenerationResult {
	args := m.Called(ctx, change)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*application.GenerationResult)
}

type MockSubscriber struct {
	mock.Mock
}

func (m *MockSubscriber) Subscribe(topic string, eventType string, handler kafka.EventHandler) {
	m.Called(topic, eventType, handler)
}

type failingRepo struct {
	domain.OrderRepository
}

func (failingRepo) Upsert(context.Context, *domain.Order) error { return errors.New("mongo down") }

func shopEvent(eventType string, data any) *cloudevents.CloudEvent {
	factory := cloudevents.NewEventFactory("/shop")
	return factory.CreateEvent(context.Background(), eventType, "order", data)
}

func TestRegister(t *testing.T) {
	sub := new(MockSubscriber)
	sub.On("Subscribe", kafka.Topics.ShopOrderEvents, cloudevents.OrderStatusChanged, mock.Anything).Once()
	sub.On("Subscribe", kafka.Topics.ShopOrderEvents, cloudevents.OrderSynced, mock.Anything).Once()

	NewOrderEventHandler(new(MockStatusHandler), nil, logging.NewNop()).Register(sub)
	sub.AssertExpectations(t)
}

func TestHandleStatusChanged(t *testing.T) {
	awb := new(MockStatusHandler)
	change := application.StatusChange{OrderID: "7", OldStatus: "pending", NewStatus: "wc-processing"}
	awb.On("HandleStatusChange", mock.Anything, change).
		Return(&application.GenerationResult{OrderID: "7", Outcome: application.OutcomeFailed, ErrorMessage: "x"}).Once()

	h := NewOrderEventHandler(awb, nil, logging.NewNop())
	err := h.HandleStatusChanged(context.Background(), shopEvent(cloudevents.OrderStatusChanged, map[string]any{
		"orderId":   "7",
		"oldStatus": "pending",
		"newStatus": "wc-processing",
	}))

	assert.NoError(t, err, "failed generations are not redelivered")
	awb.AssertExpectations(t)
}

func TestHandleStatusChanged_DropsInvalid(t *testing.T) {
	awb := new(MockStatusHandler)
	h := NewOrderEventHandler(awb, nil, logging.NewNop())

	assert.NoError(t, h.HandleStatusChanged(context.Background(), shopEvent(cloudevents.OrderStatusChanged, map[string]any{"newStatus": "processing"})))
	assert.NoError(t, h.HandleStatusChanged(context.Background(), shopEvent(cloudevents.OrderStatusChanged, "not an object")))
	awb.AssertNotCalled(t, "HandleStatusChange", mock.Anything, mock.Anything)
}

func TestHandleOrderSynced(t *testing.T) {
	repo := memory.NewOrderRepository(cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier), nil)
	h := NewOrderEventHandler(new(MockStatusHandler), repo, logging.NewNop())

	err := h.HandleOrderSynced(context.Background(), shopEvent(cloudevents.OrderSynced, map[string]any{
		"id":     "9",
		"number": "1009",
		"status": "processing",
		"shipping": map[string]any{
			"firstName": "Ana", "lastName": "Dobre", "address1": "Str. Mare 1",
			"city": "Iasi", "state": "IS", "postcode": "700000",
		},
		"billing": map[string]any{"email": "ana@example.ro", "phone": "0744000000"},
		"items":   []map[string]any{{"name": "Vaza", "weight": 1.2, "quantity": 2}},
	}))
	require.NoError(t, err)

	order, err := repo.FindByID(context.Background(), "9")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "1009", order.Number)
	assert.Equal(t, "Ana Dobre", order.RecipientName())
	assert.InDelta(t, 2.4, order.TotalWeight(), 1e-9)
}

func TestHandleOrderSynced_StorageErrorIsRetried(t *testing.T) {
	h := NewOrderEventHandler(new(MockStatusHandler), failingRepo{}, logging.NewNop())

	err := h.HandleOrderSynced(context.Background(), shopEvent(cloudevents.OrderSynced, map[string]any{"id": "1"}))
	assert.ErrorContains(t, err, "mongo down")

	assert.NoError(t, h.HandleOrderSynced(context.Background(), shopEvent(cloudevents.OrderSynced, map[string]any{"number": "1"})))
}
