package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
)

// DefaultLockTTL bounds how long a crashed attempt can block an order
const DefaultLockTTL = 30 * time.Second

// LockKey is the generation lock key of an order
func LockKey(orderID string) string {
	return "lock:" + orderID
}

// SettingsProvider returns the current business settings
type SettingsProvider interface {
	Current() config.Settings
}

// AWBNotifier sends the customer notification after a waybill is stored
type AWBNotifier interface {
	NotifyAWBGenerated(ctx context.Context, order *domain.Order, awbNumber string, settings config.Settings) error
}

// ParcelCountFunc decides the parcel count of a generated waybill
type ParcelCountFunc func(order *domain.Order, settings config.Settings) int

// AWBServiceOption configures an AWBService
type AWBServiceOption func(*AWBService)

// WithParcelCount overrides the settings-based parcel count
func WithParcelCount(fn ParcelCountFunc) AWBServiceOption {
	return func(s *AWBService) { s.parcelCount = fn }
}

// WithLockTTL overrides DefaultLockTTL
func WithLockTTL(ttl time.Duration) AWBServiceOption {
	return func(s *AWBService) { s.lockTTL = ttl }
}

// WithClock sets the clock used for collection dates
func WithClock(now func() time.Time) AWBServiceOption {
	return func(s *AWBService) { s.now = now }
}

// WithNotifier sets the customer notifier
func WithNotifier(n AWBNotifier) AWBServiceOption {
	return func(s *AWBService) { s.notifier = n }
}

// AWBService runs the per-order waybill lifecycle: generate, store, notify, delete
type AWBService struct {
	orders   domain.OrderRepository
	courier  domain.CourierClient
	locker   domain.Locker
	settings SettingsProvider
	notifier AWBNotifier
	logger   *logging.Logger
	metrics  *metrics.Metrics

	lockTTL     time.Duration
	parcelCount ParcelCountFunc
	now         func() time.Time
}

// NewAWBService creates a new AWBService
func NewAWBService(
	orders domain.OrderRepository,
	courier domain.CourierClient,
	locker domain.Locker,
	settings SettingsProvider,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...AWBServiceOption,
) *AWBService {
	s := &AWBService{
		orders:      orders,
		courier:     courier,
		locker:      locker,
		settings:    settings,
		logger:      logger.WithComponent("awb-service"),
		metrics:     m,
		lockTTL:     DefaultLockTTL,
		parcelCount: defaultParcelCount,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultParcelCount(_ *domain.Order, settings config.Settings) int {
	if settings.DefaultParcelCount > 0 {
		return settings.DefaultParcelCount
	}
	return 1
}

// GenerateForOrder creates a waybill for an order that has none.
// The result carries every failure; it never returns an error.
func (s *AWBService) GenerateForOrder(ctx context.Context, orderID string, trigger string) *GenerationResult {
	result := s.generateForOrder(ctx, orderID, trigger)
	s.metrics.RecordAWBGeneration(trigger, string(result.Outcome))
	return result
}

func (s *AWBService) generateForOrder(ctx context.Context, orderID string, trigger string) *GenerationResult {
	log := s.logger.WithContext(ctx).WithOrder(orderID)

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		log.WithError(err).Error("Failed to load order")
		return failedResult(orderID, domain.NewInternalError("Comanda nu a putut fi încărcată", err))
	}
	if order == nil {
		return failedResult(orderID, domain.NewNotFoundError())
	}
	if order.HasAWB() {
		log.Debug("Waybill already generated", "awbNumber", order.AWBNumber)
		return skippedResult(orderID)
	}

	settings := s.settings.Current()
	req := domain.BuildAWBRequest(order, domain.BuildOptions{
		Parcels:       s.parcelCount(order, settings),
		DefaultWeight: settings.DefaultWeight,
		Now:           s.now(),
	})
	if err := req.Validate(); err != nil {
		log.WithError(err).Warn("Waybill request rejected locally")
		return failedResult(orderID, err)
	}

	result, stored := s.createUnderLock(ctx, orderID, req, true)
	s.logOutcome(ctx, log, trigger, result)
	if stored != nil {
		s.runSideEffects(context.WithoutCancel(ctx), stored, result.AWBNumber, settings)
	}
	return result
}

// GenerateManual creates a waybill from operator-edited fields. It replaces an existing waybill.
func (s *AWBService) GenerateManual(ctx context.Context, cmd ManualAWBCommand) *GenerationResult {
	result := s.generateManual(ctx, cmd)
	s.metrics.RecordAWBGeneration(TriggerMetaBox, string(result.Outcome))
	return result
}

func (s *AWBService) generateManual(ctx context.Context, cmd ManualAWBCommand) *GenerationResult {
	if err := domain.ValidateStruct(cmd, "Date AWB invalide"); err != nil {
		return failedResult(cmd.OrderID, err)
	}

	log := s.logger.WithContext(ctx).WithOrder(cmd.OrderID)

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		log.WithError(err).Error("Failed to load order")
		return failedResult(cmd.OrderID, domain.NewInternalError("Comanda nu a putut fi încărcată", err))
	}
	if order == nil {
		return failedResult(cmd.OrderID, domain.NewNotFoundError())
	}

	req := domain.AWBRequest{
		RecipientName:    strings.TrimSpace(cmd.Name),
		RecipientContact: strings.TrimSpace(cmd.Contact),
		Address:          strings.TrimSpace(cmd.Address),
		City:             strings.TrimSpace(cmd.City),
		County:           strings.TrimSpace(cmd.County),
		PostalCode:       strings.TrimSpace(cmd.PostalCode),
		Phone:            strings.TrimSpace(cmd.Phone),
		Email:            strings.TrimSpace(cmd.Email),
		Parcels:          cmd.Parcels,
		Weight:           cmd.Weight,
		CollectionDate:   s.now().UTC().Format(domain.DateLayout),
		InvoiceRef:       order.Number,
	}
	if err := req.Validate(); err != nil {
		return failedResult(cmd.OrderID, err)
	}

	settings := s.settings.Current()
	result, stored := s.createUnderLock(ctx, cmd.OrderID, req, false)
	s.logOutcome(ctx, log, TriggerMetaBox, result)
	if stored != nil {
		s.runSideEffects(context.WithoutCancel(ctx), stored, result.AWBNumber, settings)
	}
	return result
}

// createUnderLock holds the order lock across re-read, remote create and save.
// The stored order is returned only on success so side effects run after the lock is gone.
func (s *AWBService) createUnderLock(ctx context.Context, orderID string, req domain.AWBRequest, skipExisting bool) (result *GenerationResult, stored *domain.Order) {
	log := s.logger.WithContext(ctx).WithOrder(orderID)
	key := LockKey(orderID)

	acquired, err := s.locker.TryAcquire(ctx, key, s.lockTTL)
	if err != nil {
		log.WithError(err).Error("Failed to acquire generation lock")
		return failedResult(orderID, domain.NewInternalError("Blocarea comenzii a eșuat", err)), nil
	}
	if !acquired {
		return conflictResult(orderID), nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.WithError(err).Warn("Failed to release generation lock")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Panic(ctx, r)
			result = failedResult(orderID, domain.NewInternalError("Eroare internă", fmt.Errorf("panic: %v", r)))
			stored = nil
		}
	}()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return failedResult(orderID, domain.NewInternalError("Comanda nu a putut fi încărcată", err)), nil
	}
	if order == nil {
		return failedResult(orderID, domain.NewNotFoundError()), nil
	}
	if skipExisting && order.HasAWB() {
		return skippedResult(orderID), nil
	}

	waybill, err := s.courier.CreateWaybill(ctx, req)
	if err != nil {
		return failedResult(orderID, err), nil
	}

	// the waybill exists remotely now; a client disconnect must not drop it
	order.AssignAWB(waybill.Numbers)
	if err := s.orders.Save(context.WithoutCancel(ctx), order); err != nil {
		log.WithError(err).Error("Waybill created but not stored", "awbNumber", waybill.Joined())
		return failedResult(orderID, domain.NewInternalError("AWB-ul nu a putut fi salvat", err)), nil
	}

	return &GenerationResult{
		OrderID:   orderID,
		Outcome:   OutcomeGenerated,
		AWBNumber: order.AWBNumber,
	}, order
}

// runSideEffects never changes the declared outcome
func (s *AWBService) runSideEffects(ctx context.Context, order *domain.Order, awbNumber string, settings config.Settings) {
	log := s.logger.WithContext(ctx).WithOrder(order.ID)

	if settings.NotifyCustomer && s.notifier != nil {
		err := s.notifier.NotifyAWBGenerated(ctx, order, awbNumber, settings)
		s.metrics.RecordSideEffect("notify_customer", err == nil)
		if err != nil {
			log.WithError(err).Warn("Customer notification failed")
		}
	}

	// the lock is released by now; only the status may be written
	if settings.AutoCompleteOrder && order.Complete() {
		err := s.orders.SaveStatus(ctx, order)
		s.metrics.RecordSideEffect("auto_complete", err == nil)
		if err != nil {
			log.WithError(err).Warn("Auto-complete failed")
		}
	}
}

func (s *AWBService) logOutcome(ctx context.Context, log *logging.Logger, trigger string, result *GenerationResult) {
	switch result.Outcome {
	case OutcomeGenerated:
		log.Event(ctx, "awb.generated", map[string]any{
			"orderId":   result.OrderID,
			"awbNumber": result.AWBNumber,
			"trigger":   trigger,
		})
	case OutcomeFailed:
		log.Warn("Waybill generation failed",
			"trigger", trigger,
			"errorKind", result.ErrorKind,
			"errorCode", result.ErrorCode,
			"message", result.ErrorMessage,
		)
	default:
		log.Info("Waybill generation not performed", "trigger", trigger, "outcome", result.Outcome, "reason", result.ErrorMessage)
	}
}

// BulkGenerate runs GenerateForOrder strictly sequentially.
// Not-found and conflicting orders are counted as skipped.
func (s *AWBService) BulkGenerate(ctx context.Context, orderIDs []string) *BulkResult {
	bulk := &BulkResult{
		PerOrderErrors: make(map[string]string),
		SkipReasons:    make(map[string]string),
		Results:        make([]*GenerationResult, 0, len(orderIDs)),
	}

	for _, orderID := range orderIDs {
		result := s.safeGenerate(ctx, orderID, TriggerBulk)
		bulk.Results = append(bulk.Results, result)

		switch {
		case result.Outcome == OutcomeGenerated:
			bulk.Processed++
		case result.Outcome == OutcomeFailed && result.ErrorKind != domain.KindNotFound:
			bulk.Failed++
			bulk.PerOrderErrors[orderID] = result.ErrorMessage
		default:
			bulk.Skipped++
			bulk.SkipReasons[orderID] = result.ErrorMessage
		}
	}

	s.logger.WithContext(ctx).Info("Bulk generation finished",
		"requested", len(orderIDs),
		"processed", bulk.Processed,
		"failed", bulk.Failed,
		"skipped", bulk.Skipped,
	)
	return bulk
}

// safeGenerate keeps one order's panic from aborting a batch
func (s *AWBService) safeGenerate(ctx context.Context, orderID, trigger string) (result *GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Panic(ctx, r)
			result = failedResult(orderID, domain.NewInternalError("Eroare internă", fmt.Errorf("panic: %v", r)))
		}
	}()
	return s.GenerateForOrder(ctx, orderID, trigger)
}

// HandleStatusChange generates a waybill when an order enters the configured trigger status.
// It returns nil when the change does not trigger generation.
func (s *AWBService) HandleStatusChange(ctx context.Context, change StatusChange) *GenerationResult {
	trigger := s.settings.Current().TriggerStatus()
	if trigger == "" || domain.NormalizeStatus(change.NewStatus) != trigger {
		return nil
	}

	s.logger.WithContext(ctx).WithOrder(change.OrderID).Info("Order entered trigger status",
		"oldStatus", change.OldStatus,
		"newStatus", change.NewStatus,
	)
	return s.safeGenerate(ctx, change.OrderID, TriggerAuto)
}

// DeleteWaybill clears the stored waybill numbers. The courier is not called.
func (s *AWBService) DeleteWaybill(ctx context.Context, orderID string) error {
	log := s.logger.WithContext(ctx).WithOrder(orderID)
	key := LockKey(orderID)

	acquired, err := s.locker.TryAcquire(ctx, key, s.lockTTL)
	if err != nil {
		return domain.NewInternalError("Blocarea comenzii a eșuat", err)
	}
	if !acquired {
		return domain.NewConflictError()
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.WithError(err).Warn("Failed to release generation lock")
		}
	}()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.NewInternalError("Comanda nu a putut fi încărcată", err)
	}
	if order == nil {
		return domain.NewNotFoundError()
	}
	if !order.HasAWB() {
		return nil
	}

	previous := order.AWBNumber
	order.ClearAWB()
	if err := s.orders.Save(ctx, order); err != nil {
		return domain.NewInternalError("AWB-ul nu a putut fi șters", err)
	}

	s.metrics.RecordAWBDeletion()
	log.Event(ctx, "awb.deleted", map[string]any{"orderId": orderID, "awbNumber": previous})
	return nil
}

// Regenerate deletes the stored waybill and generates a new one
func (s *AWBService) Regenerate(ctx context.Context, orderID string) *GenerationResult {
	if err := s.DeleteWaybill(ctx, orderID); err != nil {
		result := failedResult(orderID, err)
		s.metrics.RecordAWBGeneration(TriggerManual, string(result.Outcome))
		return result
	}
	return s.GenerateForOrder(ctx, orderID, TriggerManual)
}

func failedResult(orderID string, err error) *GenerationResult {
	awbErr, ok := domain.AsAWBError(err)
	if !ok {
		awbErr = domain.NewInternalError(err.Error(), err)
	}
	if awbErr.Kind == domain.KindConflict {
		return conflictResult(orderID)
	}
	return &GenerationResult{
		OrderID:      orderID,
		Outcome:      OutcomeFailed,
		ErrorMessage: awbErr.Message,
		ErrorKind:    awbErr.Kind,
		ErrorCode:    awbErr.Code,
		Fields:       awbErr.Fields,
	}
}

func skippedResult(orderID string) *GenerationResult {
	return &GenerationResult{
		OrderID:      orderID,
		Outcome:      OutcomeSkipped,
		ErrorMessage: domain.MsgAlreadyGenerated,
	}
}

func conflictResult(orderID string) *GenerationResult {
	return &GenerationResult{
		OrderID:      orderID,
		Outcome:      OutcomeConflict,
		ErrorMessage: domain.MsgOperationInFlight,
		ErrorKind:    domain.KindConflict,
	}
}
