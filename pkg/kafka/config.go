package kafka

import (
	"strings"
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	// Consumer settings
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "optimus-courier",
		ClientID:      "optimus-courier",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,

		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,
	}
}

// ParseBrokers splits a comma separated broker list (KAFKA_BROKERS)
func ParseBrokers(value string) []string {
	var brokers []string
	for _, b := range strings.Split(value, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Topics contains the topic names this service touches
var Topics = struct {
	// ShopOrderEvents carries order snapshots and status transitions from the shop
	ShopOrderEvents string
	// AWBEvents carries events emitted by this service
	AWBEvents string
}{
	ShopOrderEvents: "shop.orders.events",
	AWBEvents:       "optimus.awb.events",
}
