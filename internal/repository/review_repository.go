package repository

import (
	"context"
	"database/sql"
	"time"
)

// Review mirrors the 'reviews' table. UserName is joined in for rendering.
type Review struct {
	ID        uint64    `json:"id"`
	Body      string    `json:"review"`
	Rating    int       `json:"rating"`
	TourID    uint64    `json:"tour"`
	UserID    uint64    `json:"user"`
	UserName  string    `json:"userName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewSelect = `SELECT r.id, r.body, r.rating, r.tour_id, r.user_id, u.name, r.created_at
	FROM reviews r JOIN users u ON u.id = r.user_id`

func collectReviews(rows *sql.Rows) ([]Review, error) {
	defer rows.Close()
	var reviews []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.Body, &rv.Rating, &rv.TourID, &rv.UserID,
			&rv.UserName, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// List returns all reviews, optionally restricted to one tour (tourID > 0).
func (r *ReviewRepo) List(ctx context.Context, tourID uint64) ([]Review, error) {
	if tourID > 0 {
		rows, err := r.DB.QueryContext(ctx, reviewSelect+" WHERE r.tour_id=? ORDER BY r.created_at DESC", tourID)
		if err != nil {
			return nil, err
		}
		return collectReviews(rows)
	}
	rows, err := r.DB.QueryContext(ctx, reviewSelect+" ORDER BY r.created_at DESC")
	if err != nil {
		return nil, err
	}
	return collectReviews(rows)
}

// GetByID fetches a single review.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (Review, error) {
	var rv Review
	err := r.DB.QueryRowContext(ctx, reviewSelect+" WHERE r.id=? LIMIT 1", id).
		Scan(&rv.ID, &rv.Body, &rv.Rating, &rv.TourID, &rv.UserID, &rv.UserName, &rv.CreatedAt)
	return rv, notFound(err)
}

// Create inserts a review. Duplicate (tour,user) pairs propagate the
// driver's unique-constraint error.
func (r *ReviewRepo) Create(ctx context.Context, body string, rating int, tourID, userID uint64) (Review, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (body, rating, tour_id, user_id) VALUES (?,?,?,?)",
		body, rating, tourID, userID)
	if err != nil {
		return Review{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Review{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update changes body and/or rating of an existing review.
func (r *ReviewRepo) Update(ctx context.Context, id uint64, body string, rating int) (Review, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE reviews SET
		 body   = COALESCE(NULLIF(?, ''), body),
		 rating = IF(?=0, rating, ?)
		 WHERE id=?`,
		body, rating, rating, id)
	if err != nil {
		return Review{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
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
