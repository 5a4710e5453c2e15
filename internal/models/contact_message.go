package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactMessage is an accepted contact submission on its way to the relay.
// It is never stored; ExpiresAt bounds how long a relay may hold it.
type ContactMessage struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ClientID   string    `json:"client_id"`
	RequestID  string    `json:"request_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewContactMessage stamps a sanitised submission with an id and an expiry ttl from now.
func NewContactMessage(name, email, message, clientID string, now time.Time, ttl time.Duration) *ContactMessage {
	now = now.UTC()
	return &ContactMessage{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Message:    message,
		ClientID:   clientID,
		ReceivedAt: now,
		ExpiresAt:  now.Add(ttl),
	}
}

// TTL returns the time left before the message expires, never negative.
func (m *ContactMessage) TTL(now time.Time) time.Duration {
	if d := m.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
