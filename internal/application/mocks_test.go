package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
)

type MockCourier struct {
	mock.Mock
}

func (m *MockCourier) CreateWaybill(ctx context.Context, req domain.AWBRequest) (*domain.Waybill, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Waybill), args.Error(1)
}

func (m *MockCourier) GetWaybillPDF(ctx context.Context, awbID string) ([]byte, error) {
	args := m.Called(ctx, awbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCourier) TrackWaybill(ctx context.Context, awbNumber string, extra map[string]string) ([]domain.TrackingEvent, error) {
	args := m.Called(ctx, awbNumber, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrackingEvent), args.Error(1)
}

func (m *MockCourier) GetStatus(ctx context.Context, awbNumber string) (*domain.WaybillStatus, error) {
	args := m.Called(ctx, awbNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WaybillStatus), args.Error(1)
}

func (m *MockCourier) GetCounties(ctx context.Context) ([]domain.County, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.County), args.Error(1)
}

func (m *MockCourier) CheckCredentials(ctx context.Context) domain.CredentialStatus {
	args := m.Called(ctx)
	return args.Get(0).(domain.CredentialStatus)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyAWBGenerated(ctx context.Context, order *domain.Order, awbNumber string, settings config.Settings) error {
	args := m.Called(ctx, order, awbNumber, settings)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg *domain.MailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func sampleOrder(id string) *domain.Order {
	return &domain.Order{
		ID:     id,
		Number: "10" + id,
		Status: "processing",
		Shipping: domain.ShippingAddress{
			FirstName: "Maria",
			LastName:  "Ionescu",
			Address1:  "Str. Florilor 12",
			Address2:  "Ap. 3",
			City:      "Cluj-Napoca",
			State:     "CJ",
			Postcode:  "400000",
		},
		Billing: domain.BillingContact{
			FirstName: "Maria",
			LastName:  "Ionescu",
			Email:     "maria@example.ro",
			Phone:     "0722000111",
		},
		Items: []domain.LineItem{
			{Name: "Cana", Weight: 0.2, Quantity: 2},
			{Name: "Farfurie", Weight: 0.3, Quantity: 1},
		},
	}
}
