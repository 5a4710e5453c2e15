// Package workers holds the background consumers of relayed contact messages.
package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	logpkg "github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/queue"
	"go.uber.org/zap"
)

// ErrNoMessage is returned for a delivery that carries no contact message.
var ErrNoMessage = errors.New("delivery has no contact message")

// Notifier tells the site owner about relayed contact messages. It records
// metadata only; message bodies and addresses never reach the logs.
type Notifier struct {
	log *zap.Logger
	now func() time.Time
}

// NewNotifier creates a notifier logging to log.
func NewNotifier(log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{log: log, now: time.Now}
}

// ProcessDelivery notifies about one delivery and acknowledges it. Expired
// messages are acknowledged without notifying; deliveries without a decodable
// message are nacked without requeue.
func (n *Notifier) ProcessDelivery(ctx context.Context, msg queue.DeliveryInterface) error {
	m := msg.GetMessage()
	if m == nil {
		n.log.Warn("contact_message_undecodable")
		if nackErr := msg.Nack(false); nackErr != nil {
			n.log.Warn("failed_to_nack_delivery", zap.Error(nackErr))
		}
		return ErrNoMessage
	}

	now := n.now()
	if !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt) {
		n.log.Info("contact_message_expired",
			zap.String("message_id", m.ID.String()),
			zap.Time("expires_at", m.ExpiresAt),
		)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired message: %w", ackErr)
		}
		return nil
	}

	n.log.Info("contact_message_received",
		zap.String("message_id", m.ID.String()),
		zap.String("client_id", logpkg.SanitizeClientID(m.ClientID)),
		zap.String("request_id", logpkg.SanitizeString(m.RequestID, logpkg.MaxClientIDLength)),
		zap.Int("name_length", len([]rune(m.Name))),
		zap.Int("message_length", len([]rune(m.Message))),
		zap.Duration("queued_for", now.Sub(m.ReceivedAt)),
	)

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack message: %w", ackErr)
	}
	return nil
}

// Consume processes deliveries until ctx is cancelled or the delivery channel
// closes. Queue errors are logged and do not stop consumption. A closed
// delivery channel is reported as an error so the caller can reconnect or exit.
func Consume[D queue.DeliveryInterface](ctx context.Context, n *Notifier, deliveries <-chan D, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			n.log.Error("queue_error", zap.Error(err))
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			if err := n.ProcessDelivery(ctx, d); err != nil {
				n.log.Error("failed_to_process_contact_message", zap.Error(err))
			}
		}
	}
}
