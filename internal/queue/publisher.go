package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher emits booking events. A Publisher with an empty URL is a no-op,
// so deployments without a broker keep working.
type Publisher struct {
	url    string
	logger zerolog.Logger
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{url: url, logger: logger}
}

// PublishBookingConfirmed sends the event to the booking.confirmed queue.
// Errors are logged and returned so callers can ignore them; a lost event
// must never fail the webhook that recorded the booking.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event BookingConfirmedEvent) error {
	if p.url == "" {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Error().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Error().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
		p.logger.Error().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", bookingQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	p.logger.Info().Uint64("booking_id", event.BookingID).Msg("booking event published")
	return nil
}
