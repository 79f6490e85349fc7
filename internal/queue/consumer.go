package queue

import (
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartBookingConsumer connects to RabbitMQ, declares the booking.confirmed
// queue (durable) and consumes it forever, writing one structured log line
// per confirmed booking. It runs a reconnect loop with capped backoff and
// never returns under normal operation; run it in its own goroutine. With an
// empty URL it returns immediately.
func StartBookingConsumer(url string, logger zerolog.Logger) {
	if url == "" {
		logger.Info().Msg("booking-consumer: no broker configured, skipping")
		return
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("booking-consumer: dial failed")
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, logger); err != nil {
			logger.Warn().Err(err).Msg("booking-consumer: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, logger zerolog.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(bookingQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(bookingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		var event BookingConfirmedEvent
		if err := json.Unmarshal(d.Body, &event); err != nil {
			logger.Error().Err(err).Msg("booking-consumer: bad message, rejecting")
			_ = d.Reject(false)
			continue
		}
		logger.Info().
			Uint64("booking_id", event.BookingID).
			Uint64("tour_id", event.TourID).
			Str("tour", event.TourName).
			Str("email", event.Email).
			Float64("price", event.Price).
			Time("booked_at", event.BookedAt).
			Msg("booking confirmed")
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}
