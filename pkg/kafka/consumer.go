package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Upcasted/optimus-courier/pkg/cloudevents"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
)

// EventHandler is a function that handles a CloudEvent
type EventHandler func(ctx context.Context, event *cloudevents.CloudEvent) error

// Consumer reads CloudEvents from Kafka topics and routes them by event type
type Consumer struct {
	config   *Config
	mu       sync.Mutex
	readers  map[string]*kafka.Reader
	handlers map[string]map[string]EventHandler // topic -> eventType -> handler
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config *Config, logger *slog.Logger, m *metrics.Metrics) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		config:   config,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]map[string]EventHandler),
		logger:   logger,
		metrics:  m,
	}
}

// Subscribe registers a handler for one event type on a topic
func (c *Consumer) Subscribe(topic string, eventType string, handler EventHandler) {
	if _, exists := c.handlers[topic]; !exists {
		c.handlers[topic] = make(map[string]EventHandler)
	}
	c.handlers[topic][eventType] = handler
}

// SubscribeAll registers a fallback handler for every event type on a topic
func (c *Consumer) SubscribeAll(topic string, handler EventHandler) {
	c.Subscribe(topic, "*", handler)
}

func (c *Consumer) getReader(topic string) *kafka.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reader, exists := c.readers[topic]; exists {
		return reader
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.ConsumerGroup,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: 0,
	})

	c.readers[topic] = reader
	return reader
}

// Start consumes all subscribed topics until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for topic := range c.handlers {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			c.consumeTopic(ctx, topic)
		}(topic)
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string) {
	reader := c.getReader(topic)

	c.logger.Info("Starting consumer for topic", "topic", topic, "group", c.config.ConsumerGroup)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping consumer for topic", "topic", topic)
				return
			}
			c.logger.Error("Error fetching message", "topic", topic, "error", err)
			continue
		}

		event, err := parseMessage(msg)
		if err != nil {
			c.logger.Error("Error parsing message", "topic", topic, "offset", msg.Offset, "error", err)
			// poison message: commit so the partition keeps moving
			if commitErr := reader.CommitMessages(ctx, msg); commitErr != nil {
				c.logger.Error("Error committing message", "topic", topic, "error", commitErr)
			}
			continue
		}

		if err := c.handleEvent(ctx, topic, event); err != nil {
			c.metrics.RecordKafkaConsume(topic, event.Type, false)
			c.logger.Error("Error handling event",
				"topic", topic,
				"eventType", event.Type,
				"eventId", event.ID,
				"error", err,
			)
			// not committed: redelivered after rebalance or restart
			continue
		}
		c.metrics.RecordKafkaConsume(topic, event.Type, true)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Error committing message", "topic", topic, "error", err)
		}
	}
}

func parseMessage(msg kafka.Message) (*cloudevents.CloudEvent, error) {
	var event cloudevents.CloudEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	for _, header := range msg.Headers {
		switch header.Key {
		case "ce-type":
			if event.Type == "" {
				event.Type = string(header.Value)
			}
		case "ce-correlationid":
			event.CorrelationID = string(header.Value)
		case "ce-orderid":
			event.OrderID = string(header.Value)
		case "ce-traceparent":
			event.TraceParent = string(header.Value)
		}
	}

	if event.Type == "" {
		return nil, fmt.Errorf("event %q has no type", event.ID)
	}

	return &event, nil
}

func (c *Consumer) handleEvent(ctx context.Context, topic string, event *cloudevents.CloudEvent) error {
	handlers, exists := c.handlers[topic]
	if !exists {
		return fmt.Errorf("no handlers registered for topic %s", topic)
	}

	if event.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID)
	}
	if event.OrderID != "" {
		ctx = logging.ContextWithOrderID(ctx, event.OrderID)
	}

	if handler, exists := handlers[event.Type]; exists {
		return handler(ctx, event)
	}

	if handler, exists := handlers["*"]; exists {
		return handler(ctx, event)
	}

	c.logger.Debug("No handler found for event type", "topic", topic, "eventType", event.Type)
	return nil
}

// Close closes all readers
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for topic, reader := range c.readers {
		if err := reader.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close reader for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
