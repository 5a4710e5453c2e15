package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/portfolio/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMessageExpired marks a message whose ExpiresAt has passed.
var ErrMessageExpired = errors.New("contact message expired")

// Delivery wraps a consumed ContactMessage with its RabbitMQ delivery information
type Delivery struct {
	Message     *models.ContactMessage
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack acknowledges the delivery
func (d *Delivery) Ack() error {
	return d.Channel.Ack(d.DeliveryTag, false)
}

// Nack negatively acknowledges the delivery
func (d *Delivery) Nack(requeue bool) error {
	return d.Channel.Nack(d.DeliveryTag, false, requeue)
}

// GetMessage returns the relayed contact message
func (d *Delivery) GetMessage() *models.ContactMessage {
	return d.Message
}

var _ DeliveryInterface = (*Delivery)(nil)

// buildPublishing encodes m as a transient publishing that the broker drops at m.ExpiresAt.
func buildPublishing(m *models.ContactMessage, now time.Time) (amqp.Publishing, error) {
	ttl := m.TTL(now)
	if ttl <= 0 {
		return amqp.Publishing{}, ErrMessageExpired
	}

	body, err := json.Marshal(m)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal contact message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Transient,
		MessageId:    m.ID.String(),
		Timestamp:    m.ReceivedAt,
		Expiration:   strconv.FormatInt(ttl.Milliseconds(), 10),
	}, nil
}

// decodeMessage parses a delivery body, rejecting messages already past their expiry.
func decodeMessage(body []byte, now time.Time) (*models.ContactMessage, error) {
	var m models.ContactMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact message: %w", err)
	}
	if !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt) {
		return &m, ErrMessageExpired
	}
	return &m, nil
}

// newDelivery wraps a consumed body for the notifier. Expired messages pass
// through with their Message set; an undecodable body yields a Delivery with
// a nil Message together with the decode error.
func newDelivery(body []byte, tag uint64, ch *amqp.Channel, now time.Time) (*Delivery, error) {
	d := &Delivery{DeliveryTag: tag, Channel: ch}
	m, err := decodeMessage(body, now)
	if err != nil && !errors.Is(err, ErrMessageExpired) {
		return d, err
	}
	d.Message = m
	return d, nil
}
