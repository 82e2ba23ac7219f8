package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"skillswap-service/internal/logger"
	"skillswap-service/internal/observability"
)

// ErrClosed is returned by Publish once the broker connection is gone.
var ErrClosed = errors.New("rabbitmq: publisher closed")

const appID = "skillswap-service"

// Publisher publishes JSON events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

type headersKey struct{}

// WithHeaders attaches message headers to the next Publish made with ctx.
func WithHeaders(ctx context.Context, headers map[string]string) context.Context {
	return context.WithValue(ctx, headersKey{}, headers)
}

func headersFrom(ctx context.Context) amqp.Table {
	headers, _ := ctx.Value(headersKey{}).(map[string]string)
	if len(headers) == 0 {
		return nil
	}
	table := make(amqp.Table, len(headers))
	for k, v := range headers {
		table[k] = v
	}
	return table
}

// NewPublisher connects to the broker and declares a durable topic exchange.
// Any failure degrades to a noop publisher that records why.
func NewPublisher(amqpURL, exchange string) Publisher {
	log := logger.Get()
	if amqpURL == "" {
		log.Info().Msg("event publishing disabled: empty amqp url")
		return noopPublisher{reason: "empty amqp url"}
	}

	p, err := dial(amqpURL, exchange)
	if err != nil {
		log.Warn().Err(err).Str("exchange", exchange).Msg("event publishing disabled, broker unavailable")
		return noopPublisher{reason: err.Error()}
	}
	log.Info().Str("exchange", exchange).Msg("rabbitmq connected")
	return p
}

func dial(amqpURL, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p := &amqpPublisher{conn: conn, ch: ch, exchange: exchange}
	go p.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return p, nil
}

type amqpPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	closed   bool
}

// watch marks the publisher closed when the broker drops the connection.
func (p *amqpPublisher) watch(notify <-chan *amqp.Error) {
	err, ok := <-notify
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	if ok && err != nil {
		logger.Get().Error().Str("reason", err.Reason).Int("code", err.Code).Msg("rabbitmq connection lost")
	}
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		observability.IncAMQPPublishError()
		return ErrClosed
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		AppId:        appID,
		Headers:      headersFrom(ctx),
		Body:         body,
	})
	if err != nil {
		observability.IncAMQPPublishError()
		logger.Get().Error().Err(err).Str("routing_key", routingKey).Msg("rabbitmq publish failed")
	}
	return err
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason string
}

func (noopPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	logger.Get().Debug().Str("routing_key", routingKey).Msg("noop publish")
	return nil
}

func (noopPublisher) Close() error { return nil }

// PublisherMode reports "amqp", "noop" or "unknown" for startup logs.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

// PublisherNoopReason explains a noop publisher; empty otherwise.
func PublisherNoopReason(p Publisher) string {
	if np, ok := p.(noopPublisher); ok {
		return np.reason
	}
	return ""
}
