// Package kafka publishes guess events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/skyguess/internal/domain/model"
)

const (
	defaultWriteTimeout = 5 * time.Second
	eventTypeHeader     = "event-type"
	guessEventType      = "guess"
)

// ErrNoBrokers is returned when a publisher is built without brokers.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per guess event. Events of a lobby share a
// key so they land on one partition in order.
type Publisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

// Option applies a configuration option to the Publisher.
type Option func(*Publisher)

// WithWriteTimeout bounds each publish.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.writeTimeout = d
		}
	}
}

// withWriter replaces the Kafka writer.
func withWriter(w messageWriter) Option {
	return func(p *Publisher) {
		p.writer = w
	}
}

// NewPublisher creates a Publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	p := &Publisher{
		topic:        topic,
		writeTimeout: defaultWriteTimeout,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish encodes e as JSON and writes it.
func (p *Publisher) Publish(ctx context.Context, e model.GuessEvent) error { //nolint:gocritic // events travel by value
	msg, err := message(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}
	return nil
}

// Name labels the publisher in metrics.
func (p *Publisher) Name() string { return "kafka" }

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(e model.GuessEvent) (kafkago.Message, error) { //nolint:gocritic // events travel by value
	value, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("kafka: encode event %s: %w", e.EventID, err)
	}
	key := e.LobbyID
	if key == "" {
		key = e.FlightID
	}
	return kafkago.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    e.TS,
		Headers: []kafkago.Header{{Key: eventTypeHeader, Value: []byte(guessEventType)}},
	}, nil
}

// EnsureTopic creates topic through the cluster controller if it is missing.
func EnsureTopic(ctx context.Context, broker, topic string, partitions int) error {
	var d kafkago.Dialer
	conn, err := d.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka: dial %s: %w", broker, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka: find controller: %w", err)
	}
	ctrl, err := d.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka: dial controller: %w", err)
	}
	defer ctrl.Close()

	if partitions < 1 {
		partitions = 1
	}
	return ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
}
