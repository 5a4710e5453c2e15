package queue

import (
	"context"
	"errors"
	"unicode/utf8"

	logpkg "github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/models"
	"go.uber.org/zap"
)

// LogRelay records accepted messages as log entries. Only metadata is logged,
// never the sender's address or message text.
type LogRelay struct {
	log *zap.Logger
}

// NewLogRelay creates a relay that writes to log.
func NewLogRelay(log *zap.Logger) *LogRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogRelay{log: log}
}

// Publish implements Relay.
func (r *LogRelay) Publish(ctx context.Context, m *models.ContactMessage) error {
	if m == nil {
		return errors.New("nil contact message")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Info("contact_message_accepted",
		zap.String("message_id", m.ID.String()),
		zap.String("client_id", logpkg.SanitizeClientID(m.ClientID)),
		zap.String("request_id", m.RequestID),
		zap.Int("name_length", utf8.RuneCountInString(m.Name)),
		zap.Int("message_length", utf8.RuneCountInString(m.Message)),
		zap.Time("expires_at", m.ExpiresAt),
	)
	return nil
}

// HealthCheck implements Relay.
func (r *LogRelay) HealthCheck(context.Context) error { return nil }

// Close implements Relay.
func (r *LogRelay) Close() error { return nil }
