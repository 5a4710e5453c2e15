package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/portfolio/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the queue contact messages wait in for the notifier
	DefaultQueueName = "contact_messages"
	// DefaultExchangeName is the exchange contact messages are published to
	DefaultExchangeName = "contact"
	// RoutingKey routes contact messages to DefaultQueueName
	RoutingKey = "contact.message"
)

// RabbitMQRelay implements Relay and Consumer using RabbitMQ. The queue is not
// durable and publishings are transient, so a broker restart drops pending messages.
type RabbitMQRelay struct {
	conn         *amqp.Connection
	mu           sync.Mutex
	channel      *amqp.Channel
	queueName    string
	exchangeName string
	now          func() time.Time
}

// NewRabbitMQRelay connects to amqpURL and declares the exchange and queue
func NewRabbitMQRelay(amqpURL string) (*RabbitMQRelay, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	relay := &RabbitMQRelay{
		conn:         conn,
		channel:      ch,
		queueName:    DefaultQueueName,
		exchangeName: DefaultExchangeName,
		now:          time.Now,
	}

	if err := relay.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return relay, nil
}

// setup configures the exchange and queue
func (q *RabbitMQRelay) setup() error {
	err := q.channel.ExchangeDeclare(
		q.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.queueName,
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = q.channel.QueueBind(
		q.queueName,
		RoutingKey,
		q.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	return nil
}

// Publish implements Relay
func (q *RabbitMQRelay) Publish(ctx context.Context, m *models.ContactMessage) error {
	if m == nil {
		return errors.New("nil contact message")
	}
	publishing, err := buildPublishing(m, q.now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	err = q.channel.PublishWithContext(
		ctx,
		q.exchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish contact message: %w", err)
	}
	return nil
}

// Consume implements Consumer on a dedicated channel. Every delivery is
// forwarded so the consumer settles it: expired messages keep their Message,
// undecodable bodies arrive with a nil Message and their error on the error
// channel.
func (q *RabbitMQRelay) Consume(ctx context.Context, prefetchCount int) (<-chan *Delivery, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(
		q.queueName,
		"",    // consumer tag (empty = auto-generate)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	out := make(chan *Delivery, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errChan)
		defer func() {
			_ = consumeCh.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				d, err := newDelivery(delivery.Body, delivery.DeliveryTag, consumeCh, q.now())
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
				}
				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case out <- d:
				}
			}
		}
	}()

	return out, errChan, nil
}

// HealthCheck implements Relay
func (q *RabbitMQRelay) HealthCheck(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	q.mu.Lock()
	closed := q.channel == nil || q.channel.IsClosed()
	q.mu.Unlock()
	if closed {
		return errors.New("rabbitmq channel is closed")
	}
	return ctx.Err()
}

// Close implements Relay
func (q *RabbitMQRelay) Close() error {
	var errs []error
	q.mu.Lock()
	if q.channel != nil {
		if err := q.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	q.mu.Unlock()
	if q.conn != nil {
		if err := q.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ Relay    = (*RabbitMQRelay)(nil)
	_ Consumer = (*RabbitMQRelay)(nil)
	_ Relay    = (*LogRelay)(nil)
)
