package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Upcasted/optimus-courier/internal/api"
	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/internal/domain"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/events"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/labels"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/lock"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/mail"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/memory"
	mongorepo "github.com/Upcasted/optimus-courier/internal/infrastructure/mongodb"
	"github.com/Upcasted/optimus-courier/internal/infrastructure/optimus"
	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/kafka"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
	"github.com/Upcasted/optimus-courier/pkg/mongodb"
	"github.com/Upcasted/optimus-courier/pkg/outbox"
	"github.com/Upcasted/optimus-courier/pkg/tracing"
)

// storage groups the persistence adapters selected by STORE
type storage struct {
	orders domain.OrderRepository
	locker domain.Locker
	outbox outbox.Repository
	ready  func() error
	close  func(context.Context) error
}

// cliApp is the subset of the service the one-shot commands need
type cliApp struct {
	tracking *application.TrackingService
}

func newLogger(cfg *Config) *logging.Logger {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logConfig.Version = Version
	logger := logging.New(logConfig)
	logger.SetDefault()
	return logger
}

func newCourier(cfg *Config, settings *config.Store, logger *logging.Logger, m *metrics.Metrics) *optimus.Client {
	return optimus.NewClient(optimus.Config{
		BaseURL: cfg.OptimusBaseURL,
		Timeout: cfg.OptimusTimeout,
		Credentials: func() domain.Credentials {
			return settings.Current().Credentials()
		},
	}, logger, m)
}

func newCLIApp(cfg *Config) (*cliApp, error) {
	cfg.LogLevel = getEnv("LOG_LEVEL", "warn")
	logger := newLogger(cfg)

	settings, err := config.Load(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}

	courier := newCourier(cfg, settings, logger, nil)
	orders := memory.NewOrderRepository(cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier), nil)
	return &cliApp{tracking: application.NewTrackingService(orders, courier, settings, logger)}, nil
}

func newMailer(cfg *Config, logger *logging.Logger, m *metrics.Metrics) domain.Mailer {
	sendmail := mail.NewSendmailMailer(cfg.SendmailPath)
	if cfg.SMTPHost == "" {
		return mail.NewFallbackMailer(sendmail, nil, logger, m)
	}

	smtp := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Timeout:  15 * time.Second,
	})
	return mail.NewFallbackMailer(smtp, sendmail, logger, m)
}

func openStorage(ctx context.Context, cfg *Config, logger *logging.Logger) (*storage, error) {
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceOptimusCourier)

	if cfg.Store == storeMemory {
		logger.Warn("Using in-memory storage, orders are lost on restart")
		outboxRepo := memory.NewOutboxRepository()
		return &storage{
			orders: memory.NewOrderRepository(eventFactory, outboxRepo),
			locker: lock.NewMemoryLocker(),
			outbox: outboxRepo,
			ready:  func() error { return nil },
			close:  func(context.Context) error { return nil },
		}, nil
	}
	if cfg.Store != storeMongo {
		return nil, fmt.Errorf("unknown STORE %q, expected %s or %s", cfg.Store, storeMongo, storeMemory)
	}

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = cfg.MongoURI
	mongoConfig.Database = cfg.MongoDatabase

	client, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := client.Database()
	outboxRepo := mongorepo.NewOutboxRepository(db)
	orders := mongorepo.NewOrderRepository(db, eventFactory, outboxRepo)
	locker := lock.NewMongoLocker(db)

	if err := orders.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create order indexes")
	}
	if err := locker.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create lock indexes")
	}
	if pending, err := outboxRepo.CountUnpublished(ctx); err == nil && pending > 0 {
		logger.Info("Outbox backlog found", "pending", pending)
	}

	logger.Info("Connected to MongoDB", "database", cfg.MongoDatabase)
	return &storage{
		orders: orders,
		locker: locker,
		outbox: outboxRepo,
		ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.HealthCheck(ctx)
		},
		close: client.Close,
	}, nil
}

func newTokenIssuer(cfg *Config, logger *logging.Logger) *api.TokenIssuer {
	secret := cfg.AuthSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("AUTH_SECRET not set, using a per-process secret; tokens do not survive restarts")
	}
	return api.NewTokenIssuer(secret)
}

func serve(cfg *Config) error {
	logger := newLogger(cfg)
	logger.Info("Starting optimus-courier", "version", Version, "store", cfg.Store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = cfg.OTLPEndpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.ServiceVersion = Version
	tracingConfig.Enabled = cfg.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	settings, err := config.Load(cfg.SettingsFile)
	if err != nil {
		return err
	}
	settings.OnChange(func(s config.Settings) {
		logger.Info("Settings changed", "autoGenerateStatus", s.TriggerStatus(), "notifyCustomer", s.NotifyCustomer)
	})

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}()

	courier := newCourier(cfg, settings, logger, m)
	notifier := application.NewNotifier(newMailer(cfg, logger, m), logger)

	awbService := application.NewAWBService(store.orders, courier, store.locker, settings, logger, m,
		application.WithNotifier(notifier))
	labelService := application.NewLabelService(store.orders, courier, labels.NewAssembler(logger), logger, m)
	trackingService := application.NewTrackingService(store.orders, courier, settings, logger)

	if cfg.KafkaEnabled {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = kafka.ParseBrokers(cfg.KafkaBrokers)

		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()

		publisher := outbox.NewPublisher(store.outbox, producer, logger, m, &outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		})
		if err := publisher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start outbox publisher: %w", err)
		}
		defer func() { _ = publisher.Stop() }()

		consumer := kafka.NewConsumer(kafkaConfig, logger.Logger, m)
		events.NewOrderEventHandler(awbService, store.orders, logger).Register(consumer)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Order event consumer stopped")
			}
		}()
		defer consumer.Close()

		logger.Info("Kafka wired", "brokers", kafkaConfig.Brokers, "consume", kafka.Topics.ShopOrderEvents, "publish", kafka.Topics.AWBEvents)
	}

	router := api.NewRouter(api.Dependencies{
		ServiceName: serviceName,
		AWB:         awbService,
		Labels:      labelService,
		Tracking:    trackingService,
		Settings:    settings,
		Tokens:      newTokenIssuer(cfg, logger),
		Logger:      logger,
		Metrics:     m,
		Ready:       store.ready,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			cancel()
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	cancel()

	logger.Info("Server stopped")
	return nil
}
