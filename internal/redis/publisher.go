package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is the message other modules (chat, prescriptions) receive when an
// appointment changes. They only rely on the appointment id.
type Event struct {
	Type          string          `json:"type"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, eventType string, appointmentID uuid.UUID, payload []byte) error {
	data, err := json.Marshal(Event{
		Type:          eventType,
		AppointmentID: appointmentID,
		Payload:       payload,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event to %s: %w", p.channel, err)
	}
	return nil
}
