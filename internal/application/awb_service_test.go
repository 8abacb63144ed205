package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/lock"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/memory"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/logging"
)

// 01:30 in Bucharest is still the previous day in UTC
var fixedNow = time.Date(2024, 5, 7, 1, 30, 0, 0, time.FixedZone("EEST", 3*3600))

type fixture struct {
	svc      *AWBService
	orders   *memory.OrderRepository
	outbox   *memory.OutboxRepository
	courier  *MockCourier
	locker   *lock.MemoryLocker
	notifier *MockNotifier
	store    *config.Store
}

func newFixture(t *testing.T, settings config.Settings, opts ...AWBServiceOption) *fixture {
	t.Helper()
	outbox := memory.NewOutboxRepository()
	f := &fixture{
		orders:   memory.NewOrderRepository(cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier), outbox),
		outbox:   outbox,
		courier:  new(MockCourier),
		locker:   lock.NewMemoryLocker(),
		notifier: new(MockNotifier),
		store:    config.NewStore(settings),
	}
	opts = append([]AWBServiceOption{WithClock(func() time.Time { return fixedNow }), WithNotifier(f.notifier)}, opts...)
	f.svc = NewAWBService(f.orders, f.courier, f.locker, f.store, logging.NewNop(), nil, opts...)
	return f
}

func (f *fixture) seed(t *testing.T, orders ...*domain.Order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, f.orders.Upsert(context.Background(), o))
	}
}

func (f *fixture) stored(t *testing.T, id string) *domain.Order {
	t.Helper()
	o, err := f.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o
}

func (f *fixture) lockIsFree(t *testing.T, orderID string) bool {
	t.Helper()
	ok, err := f.locker.TryAcquire(context.Background(), LockKey(orderID), time.Second)
	require.NoError(t, err)
	if ok {
		_ = f.locker.Release(context.Background(), LockKey(orderID))
	}
	return ok
}

func TestGenerateForOrder_Success(t *testing.T) {
	f := newFixture(t, config.Defaults())
	f.seed(t, sampleOrder("1"))

	var sent domain.AWBRequest
	f.courier.On("CreateWaybill", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(domain.AWBRequest) }).
		Return(&domain.Waybill{Numbers: []string{"A", "B"}}, nil).Once()

	result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

	require.Equal(t, OutcomeGenerated, result.Outcome)
	assert.Equal(t, "A, B", result.AWBNumber)
	assert.Equal(t, "A, B", f.stored(t, "1").AWBNumber)

	assert.Equal(t, "Maria Ionescu", sent.RecipientName)
	assert.Equal(t, "Str. Florilor 12 Ap. 3", sent.Address)
	assert.Equal(t, "0722000111", sent.Phone, "billing phone is the fallback")
	assert.Equal(t, 1.0, sent.Weight, "0.7 kg is replaced by the default weight")
	assert.Equal(t, 1, sent.Parcels)
	assert.Equal(t, "2024-05-06", sent.CollectionDate)
	assert.Equal(t, "101", sent.InvoiceRef)

	events, err := f.outbox.FindByAggregateID(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, cloudevents.AWBGenerated, events[0].EventType)

	assert.True(t, f.lockIsFree(t, "1"))
	f.notifier.AssertNotCalled(t, "NotifyAWBGenerated", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.courier.AssertExpectations(t)
}

func TestGenerateForOrder_SkipsExistingAWB(t *testing.T) {
	f := newFixture(t, config.Defaults())
	order := sampleOrder("1")
	order.AWBNumber = "EXIST1"
	f.seed(t, order)

	result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, domain.MsgAlreadyGenerated, result.ErrorMessage)
	f.courier.AssertNotCalled(t, "CreateWaybill", mock.Anything, mock.Anything)
	assert.Equal(t, "EXIST1", f.stored(t, "1").AWBNumber)
}

func TestGenerateForOrder_NotFound(t *testing.T) {
	f := newFixture(t, config.Defaults())

	result := f.svc.GenerateForOrder(context.Background(), "missing", TriggerManual)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, domain.KindNotFound, result.ErrorKind)
	assert.Equal(t, domain.MsgOrderNotFound, result.ErrorMessage)
}

func TestGenerateForOrder_ValidationTakesNoLock(t *testing.T) {
	f := newFixture(t, config.Defaults())
	order := sampleOrder("1")
	order.Shipping.City = ""
	f.seed(t, order)

	// a held lock would turn this into a conflict if validation ran after locking
	ok, err := f.locker.TryAcquire(context.Background(), LockKey("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, domain.KindValidation, result.ErrorKind)
	assert.Contains(t, result.Fields, "destinatar_localitate")
	f.courier.AssertNotCalled(t, "CreateWaybill", mock.Anything, mock.Anything)
}

func TestGenerateForOrder_LockConflict(t *testing.T) {
	f := newFixture(t, config.Defaults())
	f.seed(t, sampleOrder("1"))

	ok, err := f.locker.TryAcquire(context.Background(), LockKey("1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

	assert.Equal(t, OutcomeConflict, result.Outcome)
	assert.Equal(t, domain.MsgOperationInFlight, result.ErrorMessage)
	f.courier.AssertNotCalled(t, "CreateWaybill", mock.Anything, mock.Anything)
}

func TestGenerateForOrder_ConcurrentAttemptsConflict(t *testing.T) {
	f := newFixture(t, config.Defaults())
	f.seed(t, sampleOrder("1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.courier.On("CreateWaybill", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&domain.Waybill{Numbers: []string{"W1"}}, nil).Once()

	first := make(chan *GenerationResult)
	go func() { first <- f.svc.GenerateForOrder(context.Background(), "1", TriggerManual) }()

	<-entered
	second := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)
	close(release)

	assert.Equal(t, OutcomeConflict, second.Outcome)
	assert.Equal(t, OutcomeGenerated, (<-first).Outcome)
	f.courier.AssertNumberOfCalls(t, "CreateWaybill", 1)
}

func TestGenerateForOrder_RemoteErrorsLeaveOrderUntouched(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind domain.ErrorKind
		wantCode int
		wantMsg  string
	}{
		{"domain error", domain.NewDomainError(3, ""), domain.KindDomain, 3, domain.MsgUnknownAPIError},
		{"transport error", domain.NewTransportError("courier unreachable", errors.New("dial tcp")), domain.KindTransport, 0, "courier unreachable"},
		{"malformed", domain.NewMalformedError("missing pcl"), domain.KindMalformed, 0, "missing pcl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.Defaults())
			f.seed(t, sampleOrder("1"))
			f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, tt.wantKind, result.ErrorKind)
			assert.Equal(t, tt.wantCode, result.ErrorCode)
			assert.Equal(t, tt.wantMsg, result.ErrorMessage)
			assert.False(t, f.stored(t, "1").HasAWB())
			assert.True(t, f.lockIsFree(t, "1"))
		})
	}
}

func TestGenerateForOrder_PanicReleasesLock(t *testing.T) {
	f := newFixture(t, config.Defaults())
	f.seed(t, sampleOrder("1"))
	f.courier.On("CreateWaybill", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("boom") }).
		Return(nil, nil).Once()

	result := f.svc.GenerateForOrder(context.Background(), "1", TriggerManual)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, domain.KindInternal, result.ErrorKind)
	assert.True(t, f.lockIsFree(t, "1"))
}

func TestGenerateForOrder_ParcelCountAndWeightSettings(t *testing.T) {
	settings := config.Defaults()
	settings.DefaultWeight = 2.5
	f := newFixture(t, settings, WithParcelCount(func(o *domain.Order, _ config.Settings) int { return len(o.Items) }))

	heavy := sampleOrder("1")
	heavy.Items = []domain.LineItem{{Weight: 1.5, Quantity: 2}, {Weight: 0, Quantity: 4}}
	f.seed(t, heavy, sampleOrder("2"))

	f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool {
		return r.InvoiceRef == "101" && r.Weight == 3.0 && r.Parcels == 2
	})).Return(&domain.Waybill{Numbers: []string{"H1"}}, nil).Once()
	f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool {
		return r.InvoiceRef == "102" && r.Weight == 2.5 && r.ToForm().Get("colet_greutate") == "2.50"
	})).Return(&domain.Waybill{Numbers: []string{"L1"}}, nil).Once()

	assert.Equal(t, OutcomeGenerated, f.svc.GenerateForOrder(context.Background(), "1", TriggerManual).Outcome)
	assert.Equal(t, OutcomeGenerated, f.svc.GenerateForOrder(context.Background(), "2", TriggerManual).Outcome)
	f.courier.AssertExpectations(t)
}

func TestGenerateForOrder_SideEffects(t *testing.T) {
	settings := config.Defaults()
	settings.NotifyCustomer = true
	settings.ShopEmail = "shop@example.ro"
	settings.AutoCompleteOrder = true

	t.Run("notify and complete", func(t *testing.T) {
		f := newFixture(t, settings)
		f.seed(t, sampleOrder("1"))
		f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"N1"}}, nil)
		f.notifier.On("NotifyAWBGenerated", mock.Anything, mock.Anything, "N1", mock.Anything).Return(nil).Once()

		result := f.svc.GenerateForOrder(context.Background(), "1", TriggerAuto)

		assert.Equal(t, OutcomeGenerated, result.Outcome)
		assert.Equal(t, domain.StatusCompleted, f.stored(t, "1").Status)
		f.notifier.AssertExpectations(t)

		events, _ := f.outbox.FindByAggregateID(context.Background(), "1")
		types := make([]string, 0, len(events))
		for _, e := range events {
			types = append(types, e.EventType)
		}
		assert.ElementsMatch(t, []string{cloudevents.AWBGenerated, cloudevents.OrderCompleted}, types)
	})

	t.Run("notification failure keeps success", func(t *testing.T) {
		f := newFixture(t, settings)
		f.seed(t, sampleOrder("1"))
		f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"N2"}}, nil)
		f.notifier.On("NotifyAWBGenerated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		result := f.svc.GenerateForOrder(context.Background(), "1", TriggerAuto)

		assert.Equal(t, OutcomeGenerated, result.Outcome)
		assert.Equal(t, "N2", f.stored(t, "1").AWBNumber)
		assert.Equal(t, domain.StatusCompleted, f.stored(t, "1").Status)
	})

	t.Run("already completed order is left alone", func(t *testing.T) {
		f := newFixture(t, settings)
		order := sampleOrder("1")
		order.Status = "wc-completed"
		f.seed(t, order)
		f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"N3"}}, nil)
		f.notifier.On("NotifyAWBGenerated", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		f.svc.GenerateForOrder(context.Background(), "1", TriggerAuto)

		events, _ := f.outbox.FindByAggregateID(context.Background(), "1")
		assert.Len(t, events, 1)
	})

	t.Run("deletion during notification is not undone by auto-complete", func(t *testing.T) {
		f := newFixture(t, settings)
		f.seed(t, sampleOrder("1"))
		f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"N5"}}, nil)
		f.notifier.On("NotifyAWBGenerated", mock.Anything, mock.Anything, "N5", mock.Anything).
			Run(func(mock.Arguments) {
				require.NoError(t, f.svc.DeleteWaybill(context.Background(), "1"))
			}).
			Return(nil).Once()

		result := f.svc.GenerateForOrder(context.Background(), "1", TriggerAuto)

		assert.Equal(t, OutcomeGenerated, result.Outcome)
		stored := f.stored(t, "1")
		assert.Empty(t, stored.AWBNumber)
		assert.Equal(t, domain.StatusCompleted, stored.Status)

		events, _ := f.outbox.FindByAggregateID(context.Background(), "1")
		types := make([]string, 0, len(events))
		for _, e := range events {
			types = append(types, e.EventType)
		}
		assert.ElementsMatch(t, []string{cloudevents.AWBGenerated, cloudevents.AWBDeleted, cloudevents.OrderCompleted}, types)
	})

	t.Run("client disconnect after create still stores and notifies", func(t *testing.T) {
		f := newFixture(t, settings)
		f.seed(t, sampleOrder("1"))

		ctx, cancel := context.WithCancel(context.Background())
		f.courier.On("CreateWaybill", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(&domain.Waybill{Numbers: []string{"N4"}}, nil)
		f.notifier.On("NotifyAWBGenerated", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), mock.Anything, "N4", mock.Anything).
			Return(nil).Once()

		result := f.svc.GenerateForOrder(ctx, "1", TriggerAuto)

		assert.Equal(t, OutcomeGenerated, result.Outcome)
		assert.Equal(t, "N4", f.stored(t, "1").AWBNumber)
		f.notifier.AssertExpectations(t)
		assert.True(t, f.lockIsFree(t, "1"))
	})
}

func TestBulkGenerate(t *testing.T) {
	f := newFixture(t, config.Defaults())
	existing := sampleOrder("2")
	existing.AWBNumber = "OLD"
	f.seed(t, sampleOrder("1"), existing, sampleOrder("3"), sampleOrder("5"))

	f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool { return r.InvoiceRef == "101" })).
		Return(&domain.Waybill{Numbers: []string{"B1"}}, nil)
	f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool { return r.InvoiceRef == "103" })).
		Return(nil, domain.NewDomainError(7, "Localitate invalida"))
	f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool { return r.InvoiceRef == "105" })).
		Return(&domain.Waybill{Numbers: []string{"B5"}}, nil)

	ids := []string{"1", "2", "3", "4", "5"}
	result := f.svc.BulkGenerate(context.Background(), ids)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, len(ids), result.Processed+result.Failed+result.Skipped)

	assert.Equal(t, map[string]string{"3": "Localitate invalida"}, result.PerOrderErrors)
	assert.Equal(t, domain.MsgAlreadyGenerated, result.SkipReasons["2"])
	assert.Equal(t, domain.MsgOrderNotFound, result.SkipReasons["4"])
	require.Len(t, result.Results, len(ids))
	for i, r := range result.Results {
		assert.Equal(t, ids[i], r.OrderID)
	}

	assert.Equal(t, "B5", f.stored(t, "5").AWBNumber, "a failure does not block later orders")
}

func TestBulkGenerate_ConflictIsSkipped(t *testing.T) {
	f := newFixture(t, config.Defaults())
	f.seed(t, sampleOrder("1"))
	_, _ = f.locker.TryAcquire(context.Background(), LockKey("1"), time.Minute)

	result := f.svc.BulkGenerate(context.Background(), []string{"1"})

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, domain.MsgOperationInFlight, result.SkipReasons["1"])
}

func TestHandleStatusChange(t *testing.T) {
	tests := []struct {
		name      string
		trigger   string
		newStatus string
		want      bool
	}{
		{"matching status", "processing", "processing", true},
		{"prefixed trigger", "wc-processing", "processing", true},
		{"prefixed event", "processing", "wc-processing", true},
		{"other status", "processing", "on-hold", false},
		{"trigger disabled", "", "processing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := config.Defaults()
			settings.AutoGenerateStatus = tt.trigger
			f := newFixture(t, settings)
			f.seed(t, sampleOrder("1"))
			f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"S1"}}, nil).Maybe()

			result := f.svc.HandleStatusChange(context.Background(), StatusChange{OrderID: "1", OldStatus: "pending", NewStatus: tt.newStatus})

			if !tt.want {
				assert.Nil(t, result)
				f.courier.AssertNotCalled(t, "CreateWaybill", mock.Anything, mock.Anything)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, OutcomeGenerated, result.Outcome)
		})
	}
}

func TestDeleteWaybill(t *testing.T) {
	f := newFixture(t, config.Defaults())
	order := sampleOrder("1")
	order.AWBNumber = "D1, D2"
	f.seed(t, order, sampleOrder("2"))

	require.NoError(t, f.svc.DeleteWaybill(context.Background(), "1"))
	assert.False(t, f.stored(t, "1").HasAWB())

	events, _ := f.outbox.FindByAggregateID(context.Background(), "1")
	require.Len(t, events, 1)
	assert.Equal(t, cloudevents.AWBDeleted, events[0].EventType)

	assert.NoError(t, f.svc.DeleteWaybill(context.Background(), "2"), "nothing to delete")

	err := f.svc.DeleteWaybill(context.Background(), "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	f.courier.AssertNotCalled(t, "CreateWaybill", mock.Anything, mock.Anything)
}

func TestRegenerate(t *testing.T) {
	f := newFixture(t, config.Defaults())
	order := sampleOrder("1")
	order.AWBNumber = "OLD1"
	f.seed(t, order)
	f.courier.On("CreateWaybill", mock.Anything, mock.Anything).Return(&domain.Waybill{Numbers: []string{"NEW1"}}, nil).Once()

	result := f.svc.Regenerate(context.Background(), "1")

	assert.Equal(t, OutcomeGenerated, result.Outcome)
	assert.Equal(t, "NEW1", f.stored(t, "1").AWBNumber)

	missing := f.svc.Regenerate(context.Background(), "nope")
	assert.Equal(t, domain.KindNotFound, missing.ErrorKind)
}

func manualCommand(orderID string) ManualAWBCommand {
	return ManualAWBCommand{
		OrderID:    orderID,
		Name:       "Andrei Pop",
		Contact:    "Andrei Pop",
		Address:    "Bd. Unirii 5",
		City:       "Bucuresti",
		County:     "B",
		PostalCode: "030000",
		Phone:      "0733111222",
		Email:      "andrei@example.ro",
		Parcels:    2,
		Weight:     0.5,
	}
}

func TestGenerateManual(t *testing.T) {
	t.Run("validation reports fields first", func(t *testing.T) {
		f := newFixture(t, config.Defaults())
		cmd := manualCommand("missing")
		cmd.City = ""
		cmd.Weight = 0
		cmd.Email = "not-an-email"

		result := f.svc.GenerateManual(context.Background(), cmd)

		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, domain.KindValidation, result.ErrorKind)
		assert.Contains(t, result.Fields, "city")
		assert.Contains(t, result.Fields, "weight")
		assert.Contains(t, result.Fields, "email")
	})

	t.Run("overrides existing waybill with operator fields", func(t *testing.T) {
		f := newFixture(t, config.Defaults())
		order := sampleOrder("1")
		order.AWBNumber = "OLD"
		f.seed(t, order)

		f.courier.On("CreateWaybill", mock.Anything, mock.MatchedBy(func(r domain.AWBRequest) bool {
			return r.RecipientName == "Andrei Pop" && r.Weight == 0.5 && r.Parcels == 2 && r.InvoiceRef == "101"
		})).Return(&domain.Waybill{Numbers: []string{"M1"}}, nil).Once()

		result := f.svc.GenerateManual(context.Background(), manualCommand("1"))

		assert.Equal(t, OutcomeGenerated, result.Outcome)
		assert.Equal(t, "M1", f.stored(t, "1").AWBNumber)
		f.courier.AssertExpectations(t)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t, config.Defaults())
		result := f.svc.GenerateManual(context.Background(), manualCommand("nope"))
		assert.Equal(t, domain.KindNotFound, result.ErrorKind)
	})
}
