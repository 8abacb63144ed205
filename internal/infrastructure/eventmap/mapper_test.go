package eventmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/kafka"
)

func TestToOutboxEvents(t *testing.T) {
	factory := cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier)
	order := &domain.Order{ID: "42", Number: "1042", Status: "processing"}
	order.AssignAWB([]string{"A1", "B2"})
	order.Complete()
	order.ClearAWB()

	events, err := ToOutboxEvents(context.Background(), factory, order)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, cloudevents.AWBGenerated, events[0].EventType)
	assert.Equal(t, cloudevents.OrderCompleted, events[1].EventType)
	assert.Equal(t, cloudevents.AWBDeleted, events[2].EventType)
	for _, e := range events {
		assert.Equal(t, "42", e.AggregateID)
		assert.Equal(t, AggregateType, e.AggregateType)
		assert.Equal(t, kafka.Topics.AWBEvents, e.Topic)
	}

	ce, err := events[0].ToCloudEvent()
	require.NoError(t, err)
	var data cloudevents.AWBGeneratedData
	require.NoError(t, ce.DecodeData(&data))
	assert.Equal(t, "A1, B2", data.AWBNumber)
	assert.Equal(t, []string{"A1", "B2"}, data.AWBNumbers)
	assert.Equal(t, "1042", data.OrderNumber)
}

func TestToOutboxEvents_NoEvents(t *testing.T) {
	factory := cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier)
	events, err := ToOutboxEvents(context.Background(), factory, &domain.Order{ID: "1"})
	require.NoError(t, err)
	assert.Empty(t, events)
}
