package application

import (
	"context"
	"strings"

	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

// MsgTrackingUnavailable is shown when the courier cannot answer a tracking lookup
const MsgTrackingUnavailable = "Nu am putut obține informațiile de urmărire"

// ConnectionRecorder stores the outcome of the last credential check
type ConnectionRecorder interface {
	SettingsProvider
	SetConnection(connected bool, message string) error
}

// TrackingService serves the public tracking lookup and courier status queries
type TrackingService struct {
	orders   domain.OrderRepository
	courier  domain.CourierClient
	settings ConnectionRecorder
	logger   *logging.Logger
}

// NewTrackingService creates a new TrackingService
func NewTrackingService(orders domain.OrderRepository, courier domain.CourierClient, settings ConnectionRecorder, logger *logging.Logger) *TrackingService {
	return &TrackingService{
		orders:   orders,
		courier:  courier,
		settings: settings,
		logger:   logger.WithComponent("tracking-service"),
	}
}

// Track looks up the tracking history of a waybill. Courier failures produce a not-found view.
func (s *TrackingService) Track(ctx context.Context, awbNumber string) (*TrackingView, error) {
	awbNumber = strings.TrimSpace(awbNumber)
	if awbNumber == "" {
		return nil, domain.NewValidationError("Introduceți un număr AWB", map[string]string{"awb": "câmp obligatoriu"})
	}

	events, err := s.courier.TrackWaybill(ctx, awbNumber, nil)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Info("Tracking lookup failed", "awbNumber", awbNumber)
		return &TrackingView{AWBNumber: awbNumber, Message: MsgTrackingUnavailable, Events: []domain.TrackingEvent{}}, nil
	}
	if events == nil {
		events = []domain.TrackingEvent{}
	}

	return &TrackingView{AWBNumber: awbNumber, Found: true, Events: events}, nil
}

// Status proxies /api-status
func (s *TrackingService) Status(ctx context.Context, awbNumber string) (*domain.WaybillStatus, error) {
	awbNumber = strings.TrimSpace(awbNumber)
	if awbNumber == "" {
		return nil, domain.NewValidationError("Introduceți un număr AWB", map[string]string{"awb": "câmp obligatoriu"})
	}
	return s.courier.GetStatus(ctx, awbNumber)
}

// TrackingLinks returns the public tracking URL of every waybill of the order
func (s *TrackingService) TrackingLinks(order *domain.Order) []TrackingLink {
	return TrackingLinks(s.settings.Current().TrackingURL(), order.AWBNumber)
}

// LinksForOrder loads the order and returns its tracking links
func (s *TrackingService) LinksForOrder(ctx context.Context, orderID string) ([]TrackingLink, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, domain.NewInternalError("Comanda nu a putut fi încărcată", err)
	}
	if order == nil {
		return nil, domain.NewNotFoundError()
	}
	return s.TrackingLinks(order), nil
}

// ValidateCredentials checks the stored credentials against the courier and records the outcome
func (s *TrackingService) ValidateCredentials(ctx context.Context) domain.CredentialStatus {
	status := s.courier.CheckCredentials(ctx)
	if err := s.settings.SetConnection(status.Connected, status.Message); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to record connection status")
	}

	s.logger.WithContext(ctx).Info("Credentials checked", "connected", status.Connected, "message", status.Message)
	return status
}
