package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Tour mirrors the 'tours' table.
type Tour struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Duration        int       `json:"duration"`
	MaxGroupSize    int       `json:"maxGroupSize"`
	Difficulty      string    `json:"difficulty"`
	Price           float64   `json:"price"`
	Summary         string    `json:"summary"`
	Description     string    `json:"description,omitempty"`
	ImageCover      string    `json:"imageCover,omitempty"`
	RatingsAverage  float64   `json:"ratingsAverage"`
	RatingsQuantity int       `json:"ratingsQuantity"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TourFilter carries the supported list query parameters. Sort and filter
// inputs are matched against whitelists; anything else is ignored rather
// than interpolated.
type TourFilter struct {
	Difficulty string
	PriceGTE   float64
	PriceLTE   float64
	Duration   int
	Sort       string // e.g. "price", "-ratingsAverage"
	Limit      int
	Page       int
}

// TourStats is one aggregation row of the stats endpoint.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

type TourRepo struct{ DB *sql.DB }

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, price,
	summary, description, image_cover, ratings_average, ratings_quantity, created_at`

// sortColumns maps the API sort keys onto real columns.
var sortColumns = map[string]string{
	"price":           "price",
	"duration":        "duration",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"createdAt":       "created_at",
	"name":            "name",
}

func scanTour(rows interface{ Scan(...any) error }) (Tour, error) {
	var t Tour
	err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
		&t.Price, &t.Summary, &t.Description, &t.ImageCover,
		&t.RatingsAverage, &t.RatingsQuantity, &t.CreatedAt)
	return t, err
}

// List returns tours matching the filter with sorting and pagination.
func (r *TourRepo) List(ctx context.Context, f TourFilter) ([]Tour, error) {
	var (
		where []string
		args  []any
	)
	if f.Difficulty != "" {
		where = append(where, "difficulty=?")
		args = append(args, f.Difficulty)
	}
	if f.PriceGTE > 0 {
		where = append(where, "price>=?")
		args = append(args, f.PriceGTE)
	}
	if f.PriceLTE > 0 {
		where = append(where, "price<=?")
		args = append(args, f.PriceLTE)
	}
	if f.Duration > 0 {
		where = append(where, "duration=?")
		args = append(args, f.Duration)
	}

	q := "SELECT " + tourColumns + " FROM tours"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	order := "created_at DESC"
	if f.Sort != "" {
		dir := "ASC"
		key := f.Sort
		if strings.HasPrefix(key, "-") {
			dir = "DESC"
			key = key[1:]
		}
		if col, ok := sortColumns[key]; ok {
			order = col + " " + dir
		}
	}
	q += " ORDER BY " + order

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, (page-1)*limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
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

// GetByID fetches a single tour.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (Tour, error) {
	t, err := scanTour(r.DB.QueryRowContext(ctx,
		"SELECT "+tourColumns+" FROM tours WHERE id=? LIMIT 1", id))
	return t, notFound(err)
}

// GetBySlug fetches a tour by its URL slug for the detail view.
func (r *TourRepo) GetBySlug(ctx context.Context, slug string) (Tour, error) {
	t, err := scanTour(r.DB.QueryRowContext(ctx,
		"SELECT "+tourColumns+" FROM tours WHERE slug=? LIMIT 1", slug))
	return t, notFound(err)
}

// Create inserts a tour. The slug is derived from the name.
func (r *TourRepo) Create(ctx context.Context, t Tour) (Tour, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tours
		 (name, slug, duration, max_group_size, difficulty, price, summary, description, image_cover)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.Name, Slugify(t.Name), t.Duration, t.MaxGroupSize, t.Difficulty,
		t.Price, t.Summary, t.Description, t.ImageCover)
	if err != nil {
		return Tour{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tour{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update applies non-zero fields of t to an existing tour.
func (r *TourRepo) Update(ctx context.Context, id uint64, t Tour) (Tour, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE tours SET
		 name           = COALESCE(NULLIF(?, ''), name),
		 slug           = IF(?='', slug, ?),
		 duration       = IF(?=0, duration, ?),
		 max_group_size = IF(?=0, max_group_size, ?),
		 difficulty     = COALESCE(NULLIF(?, ''), difficulty),
		 price          = IF(?=0, price, ?),
		 summary        = COALESCE(NULLIF(?, ''), summary),
		 description    = COALESCE(NULLIF(?, ''), description),
		 image_cover    = COALESCE(NULLIF(?, ''), image_cover)
		 WHERE id=?`,
		t.Name,
		slugOrEmpty(t.Name), slugOrEmpty(t.Name),
		t.Duration, t.Duration,
		t.MaxGroupSize, t.MaxGroupSize,
		t.Difficulty,
		t.Price, t.Price,
		t.Summary, t.Description, t.ImageCover, id)
	if err != nil {
		return Tour{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a tour.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
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

// Stats aggregates tours grouped by difficulty.
func (r *TourRepo) Stats(ctx context.Context) ([]TourStats, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT difficulty, COUNT(*), AVG(ratings_average), AVG(price), MIN(price), MAX(price)
		 FROM tours GROUP BY difficulty ORDER BY AVG(price)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TourStats
	for rows.Next() {
		var s TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.AvgRating,
			&s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Slugify lowercases a tour name and replaces runs of non-alphanumerics with
// single dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func slugOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return Slugify(name)
}
