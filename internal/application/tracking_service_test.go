package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/memory"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

func newTrackingService(t *testing.T, settings config.Settings, orders ...*domain.Order) (*TrackingService, *MockCourier, *config.Store) {
	t.Helper()
	repo := memory.NewOrderRepository(cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier), nil)
	for _, o := range orders {
		require.NoError(t, repo.Upsert(context.Background(), o))
	}
	courier := new(MockCourier)
	store := config.NewStore(settings)
	return NewTrackingService(repo, courier, store, logging.NewNop()), courier, store
}

func TestTrack(t *testing.T) {
	svc, courier, _ := newTrackingService(t, config.Defaults())
	events := []domain.TrackingEvent{{Date: "2024-05-06 10:00", Title: "Preluat de curier"}}
	courier.On("TrackWaybill", mock.Anything, "T1", mock.Anything).Return(events, nil)
	courier.On("TrackWaybill", mock.Anything, "T2", mock.Anything).Return(nil, domain.NewDomainError(1, "AWB inexistent"))
	courier.On("TrackWaybill", mock.Anything, "T3", mock.Anything).Return(nil, domain.NewTransportError("invalid JSON", errors.New("eof")))

	view, err := svc.Track(context.Background(), " T1 ")
	require.NoError(t, err)
	assert.True(t, view.Found)
	assert.Equal(t, events, view.Events)

	for _, awb := range []string{"T2", "T3"} {
		view, err = svc.Track(context.Background(), awb)
		require.NoError(t, err)
		assert.False(t, view.Found)
		assert.Equal(t, MsgTrackingUnavailable, view.Message)
		assert.Empty(t, view.Events)
	}

	_, err = svc.Track(context.Background(), "  ")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestStatus(t *testing.T) {
	svc, courier, _ := newTrackingService(t, config.Defaults())
	courier.On("GetStatus", mock.Anything, "T1").Return(&domain.WaybillStatus{AWBNumber: "T1", Raw: map[string]any{"status": "livrat"}}, nil)

	status, err := svc.Status(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "livrat", status.Raw["status"])

	_, err = svc.Status(context.Background(), "")
	assert.Error(t, err)
}

func TestLinksForOrder(t *testing.T) {
	settings := config.Defaults()
	settings.TrackingPageURL = "https://shop.example/urmarire"
	order := sampleOrder("1")
	order.AWBNumber = "L1, L2"
	svc, _, _ := newTrackingService(t, settings, order)

	links, err := svc.LinksForOrder(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []TrackingLink{
		{AWBNumber: "L1", URL: "https://shop.example/urmarire?awb=L1"},
		{AWBNumber: "L2", URL: "https://shop.example/urmarire?awb=L2"},
	}, links)

	_, err = svc.LinksForOrder(context.Background(), "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestValidateCredentials_RecordsOutcome(t *testing.T) {
	svc, courier, store := newTrackingService(t, config.Defaults())
	courier.On("CheckCredentials", mock.Anything).Return(domain.CredentialStatus{Message: "Credențiale invalide"}).Once()
	courier.On("CheckCredentials", mock.Anything).Return(domain.CredentialStatus{Connected: true, Message: "Conectat"}).Once()

	status := svc.ValidateCredentials(context.Background())
	assert.False(t, status.Connected)
	assert.False(t, store.Current().IsConnected)
	assert.Equal(t, "Credențiale invalide", store.Current().ConnectionMessage)

	status = svc.ValidateCredentials(context.Background())
	assert.True(t, status.Connected)
	assert.True(t, store.Current().IsConnected)
	assert.Equal(t, "Conectat", store.Current().ConnectionMessage)
}
