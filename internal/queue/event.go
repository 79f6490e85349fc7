// Package queue publishes and consumes booking domain events over RabbitMQ.
package queue

import "time"

const bookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is emitted after a paid checkout has been recorded.
type BookingConfirmedEvent struct {
	BookingID uint64    `json:"booking_id"`
	TourID    uint64    `json:"tour_id"`
	TourName  string    `json:"tour_name"`
	UserID    uint64    `json:"user_id"`
	Email     string    `json:"email"`
	Price     float64   `json:"price"`
	BookedAt  time.Time `json:"booked_at"`
}
