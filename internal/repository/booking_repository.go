package repository

import (
	"context"
	"database/sql"
	"time"
)

// Booking mirrors the 'bookings' table. TourName is joined in for listings.
type Booking struct {
	ID        uint64    `json:"id"`
	TourID    uint64    `json:"tour"`
	TourName  string    `json:"tourName,omitempty"`
	UserID    uint64    `json:"user"`
	Price     float64   `json:"price"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
}

type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingSelect = `SELECT b.id, b.tour_id, t.name, b.user_id, b.price, b.paid, b.created_at
	FROM bookings b JOIN tours t ON t.id = b.tour_id`

func collectBookings(rows *sql.Rows) ([]Booking, error) {
	defer rows.Close()
	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.TourID, &b.TourName, &b.UserID,
			&b.Price, &b.Paid, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create records a paid booking and returns its id.
func (r *BookingRepo) Create(ctx context.Context, tourID, userID uint64, price float64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, price, paid) VALUES (?,?,?,1)",
		tourID, userID, price)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns all bookings (admin listing).
func (r *BookingRepo) List(ctx context.Context) ([]Booking, error) {
	rows, err := r.DB.QueryContext(ctx, bookingSelect+" ORDER BY b.created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ListByUser returns the bookings of one user for the "my bookings" view.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingSelect+" WHERE b.user_id=? ORDER BY b.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// ToursByUser returns the tours a user has booked.
func (r *BookingRepo) ToursByUser(ctx context.Context, userID uint64) ([]Tour, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tourColumns+` FROM tours
		 WHERE id IN (SELECT tour_id FROM bookings WHERE user_id=?)`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	return tours, rows.Err()
}

// GetByID fetches a single booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (Booking, error) {
	var b Booking
	err := r.DB.QueryRowContext(ctx, bookingSelect+" WHERE b.id=? LIMIT 1", id).
		Scan(&b.ID, &b.TourID, &b.TourName, &b.UserID, &b.Price, &b.Paid, &b.CreatedAt)
	return b, notFound(err)
}

// Update changes price and/or paid state of a booking.
func (r *BookingRepo) Update(ctx context.Context, id uint64, price float64, paid bool) (Booking, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET price = IF(?=0, price, ?), paid=? WHERE id=?",
		price, price, paid, id)
	if err != nil {
		return Booking{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a booking.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
