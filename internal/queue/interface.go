package queue

import (
	"context"

	"github.com/benvon/portfolio/internal/models"
)

// Relay hands accepted contact messages to whatever notifies the site owner.
// Relays never store messages.
type Relay interface {
	// Publish forwards m. It returns once the message is handed off.
	Publish(ctx context.Context, m *models.ContactMessage) error

	// HealthCheck verifies the relay can accept messages
	HealthCheck(ctx context.Context) error

	// Close releases the relay's connections
	Close() error
}

// DeliveryInterface is one consumed message awaiting acknowledgement.
type DeliveryInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetMessage() *models.ContactMessage
}

// Consumer streams relayed messages to a notifier.
type Consumer interface {
	// Consume returns a channel of deliveries that is closed when ctx is cancelled
	// or the connection drops. Prefetch bounds unacknowledged deliveries.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Delivery, <-chan error, error)
}
